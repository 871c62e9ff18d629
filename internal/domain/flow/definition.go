package flow

// Definition is a registered flow. It is immutable: accessors return copies.
type Definition struct {
	name     Name
	passes   []string
	requires []Name
}

// newDefinition copies its inputs so callers cannot edit the stored lists.
func newDefinition(name Name, passes []string, requires []Name) *Definition {
	return &Definition{
		name:     name,
		passes:   cloneStrings(passes),
		requires: cloneNames(requires),
	}
}

// Name returns the flow's qualified name.
func (d *Definition) Name() Name {
	return d.name
}

// Backend returns the backend namespace owning the flow.
func (d *Definition) Backend() string {
	return d.name.Backend
}

// Passes returns the flow's own passes in order.
func (d *Definition) Passes() []string {
	return cloneStrings(d.passes)
}

// Requires returns the prerequisite flows in declared order.
func (d *Definition) Requires() []Name {
	return cloneNames(d.requires)
}

// IsAggregate reports whether the flow has no passes of its own and exists
// only to order its prerequisites.
func (d *Definition) IsAggregate() bool {
	return len(d.passes) == 0
}

// Plan is the flattened, deduplicated pass order for one requested flow.
type Plan struct {
	Flow   Name
	Passes []string
}

// Len returns the number of passes in the plan.
func (p Plan) Len() int {
	return len(p.Passes)
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	return Plan{Flow: p.Flow, Passes: cloneStrings(p.Passes)}
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func cloneNames(values []Name) []Name {
	if len(values) == 0 {
		return nil
	}
	out := make([]Name, len(values))
	copy(out, values)
	return out
}
