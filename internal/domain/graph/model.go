package graph

// Edge is a directed connection between two nodes.
type Edge struct {
	From string
	To   string
}

// Model is the capability a pass is given: read and mutate nodes, edges and
// named attributes. Node order is insertion order and is stable.
type Model interface {
	Nodes() []string
	HasNode(id string) bool
	Op(id string) (string, error)
	AddNode(id, op string) error
	RemoveNode(id string) error
	Bypass(id string) error

	Edges() []Edge
	AddEdge(from, to string) error
	RemoveEdge(from, to string) error
	Predecessors(id string) []string
	Successors(id string) []string

	Attr(id, key string) (any, bool)
	SetAttr(id, key string, value any) error
	DeleteAttr(id, key string) error
	AttrKeys(id string) []string

	GraphAttr(key string) (any, bool)
	SetGraphAttr(key string, value any)
	GraphAttrKeys() []string
}

var _ Model = (*Graph)(nil)
