package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type node struct {
	op    string
	attrs map[string]any
}

// Graph is an in-memory Model. It is not safe for concurrent mutation; a
// graph belongs to one compilation at a time.
type Graph struct {
	order []string
	nodes map[string]*node
	edges []Edge
	attrs map[string]any
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
		attrs: make(map[string]any),
	}
}

func (g *Graph) Nodes() []string {
	return slices.Clone(g.order)
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

func (g *Graph) Op(id string) (string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return "", nodeErr(id, ErrNodeNotFound)
	}
	return n.op, nil
}

func (g *Graph) AddNode(id, op string) error {
	if strings.TrimSpace(id) == "" {
		return nodeErr(id, ErrInvalidNodeID)
	}
	if _, ok := g.nodes[id]; ok {
		return nodeErr(id, ErrDuplicateNode)
	}
	g.nodes[id] = &node{op: op, attrs: make(map[string]any)}
	g.order = append(g.order, id)
	return nil
}

// RemoveNode deletes the node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return nodeErr(id, ErrNodeNotFound)
	}
	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(n string) bool { return n == id })
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.From == id || e.To == id })
	return nil
}

// Bypass removes id and connects each of its predecessors to each of its
// successors, preserving the data path around the removed node.
func (g *Graph) Bypass(id string) error {
	if !g.HasNode(id) {
		return nodeErr(id, ErrNodeNotFound)
	}
	preds, succs := g.Predecessors(id), g.Successors(id)
	if err := g.RemoveNode(id); err != nil {
		return err
	}
	for _, p := range preds {
		for _, s := range succs {
			if !g.hasEdge(p, s) {
				g.edges = append(g.edges, Edge{From: p, To: s})
			}
		}
	}
	return nil
}

func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// AddEdge connects two existing nodes. Adding an existing edge is a no-op.
func (g *Graph) AddEdge(from, to string) error {
	for _, id := range []string{from, to} {
		if !g.HasNode(id) {
			return nodeErr(id, ErrNodeNotFound)
		}
	}
	if g.hasEdge(from, to) {
		return nil
	}
	g.edges = append(g.edges, Edge{From: from, To: to})
	return nil
}

func (g *Graph) RemoveEdge(from, to string) error {
	idx := slices.Index(g.edges, Edge{From: from, To: to})
	if idx < 0 {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrEdgeNotFound)
	}
	g.edges = slices.Delete(g.edges, idx, idx+1)
	return nil
}

func (g *Graph) hasEdge(from, to string) bool {
	return slices.Contains(g.edges, Edge{From: from, To: to})
}

// Predecessors returns the sources of edges into id, in edge order.
func (g *Graph) Predecessors(id string) []string {
	var out []string
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e.From)
		}
	}
	return out
}

// Successors returns the targets of edges out of id, in edge order.
func (g *Graph) Successors(id string) []string {
	var out []string
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

func (g *Graph) Attr(id, key string) (any, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	v, ok := n.attrs[key]
	return v, ok
}

func (g *Graph) SetAttr(id, key string, value any) error {
	n, ok := g.nodes[id]
	if !ok {
		return nodeErr(id, ErrNodeNotFound)
	}
	n.attrs[key] = value
	return nil
}

func (g *Graph) DeleteAttr(id, key string) error {
	n, ok := g.nodes[id]
	if !ok {
		return nodeErr(id, ErrNodeNotFound)
	}
	delete(n.attrs, key)
	return nil
}

// AttrKeys returns the node's attribute keys, sorted.
func (g *Graph) AttrKeys(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(n.attrs))
}

func (g *Graph) GraphAttr(key string) (any, bool) {
	v, ok := g.attrs[key]
	return v, ok
}

func (g *Graph) SetGraphAttr(key string, value any) {
	g.attrs[key] = value
}

// GraphAttrKeys returns graph-level attribute keys, sorted.
func (g *Graph) GraphAttrKeys() []string {
	return slices.Sorted(maps.Keys(g.attrs))
}

// Clone returns a copy whose nodes, edges and attribute maps are independent
// of g. Attribute values themselves are shared.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		order: slices.Clone(g.order),
		nodes: make(map[string]*node, len(g.nodes)),
		edges: slices.Clone(g.edges),
		attrs: maps.Clone(g.attrs),
	}
	for id, n := range g.nodes {
		c.nodes[id] = &node{op: n.op, attrs: maps.Clone(n.attrs)}
	}
	return c
}

// NodesByOp returns the ids of nodes whose op equals op, in node order.
func NodesByOp(m Model, op string) []string {
	var out []string
	for _, id := range m.Nodes() {
		if got, err := m.Op(id); err == nil && got == op {
			out = append(out, id)
		}
	}
	return out
}
