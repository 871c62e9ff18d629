package flow

import (
	"errors"
	"fmt"
)

// Position says on which side of its anchor an insertion lands.
type Position int

const (
	Before Position = iota
	After
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// Insertion splices Prerequisite into a requirement list next to Anchor.
type Insertion struct {
	Anchor       Name
	Prerequisite Name
	Position     Position
}

// InsertBefore places prerequisite immediately before anchor.
func InsertBefore(anchor, prerequisite Name) Insertion {
	return Insertion{Anchor: anchor, Prerequisite: prerequisite, Position: Before}
}

// InsertAfter places prerequisite immediately after anchor.
func InsertAfter(anchor, prerequisite Name) Insertion {
	return Insertion{Anchor: anchor, Prerequisite: prerequisite, Position: After}
}

// Splice applies insertions in order to a copy of requires. Each insertion
// sees the result of the previous ones; anchors match their first occurrence.
func Splice(requires []Name, insertions []Insertion) ([]Name, error) {
	out := cloneNames(requires)
	for _, ins := range insertions {
		idx := indexOf(out, ins.Anchor)
		if idx < 0 {
			return nil, &AnchorNotFoundError{Anchor: ins.Anchor, Requires: cloneNames(out)}
		}
		switch ins.Position {
		case Before:
		case After:
			idx++
		default:
			return nil, fmt.Errorf("flow: unknown insertion position %s", ins.Position)
		}
		out = append(out, Name{})
		copy(out[idx+1:], out[idx:])
		out[idx] = ins.Prerequisite
	}
	return out, nil
}

func indexOf(names []Name, target Name) int {
	for i, n := range names {
		if n == target {
			return i
		}
	}
	return -1
}

// DeriveOption configures a Derive call.
type DeriveOption func(*deriveConfig)

type deriveConfig struct {
	passes         []string
	overridePasses bool
}

// WithPasses replaces the inherited pass list of the derived flow.
func WithPasses(passes ...string) DeriveOption {
	return func(c *deriveConfig) {
		c.passes = cloneStrings(passes)
		c.overridePasses = true
	}
}

// WithoutPasses makes the derived flow a pure aggregation of its requirements.
func WithoutPasses() DeriveOption {
	return func(c *deriveConfig) {
		c.passes = nil
		c.overridePasses = true
	}
}

// Composer builds derived flows on top of a registry.
type Composer struct {
	registry *Registry
}

// NewComposer creates a composer that registers derived flows into registry.
func NewComposer(registry *Registry) *Composer {
	return &Composer{registry: registry}
}

// Derive registers target as a copy of base with insertions spliced into its
// requirement list. The derived flow inherits base's passes unless an option
// overrides them. Nothing is registered when any insertion fails.
func (c *Composer) Derive(base, target Name, insertions []Insertion, opts ...DeriveOption) (*Definition, error) {
	baseDef, err := c.registry.Get(base)
	if err != nil {
		return nil, err
	}

	cfg := deriveConfig{passes: baseDef.Passes()}
	for _, opt := range opts {
		opt(&cfg)
	}

	requires, err := Splice(baseDef.requires, insertions)
	if err != nil {
		var anchorErr *AnchorNotFoundError
		if errors.As(err, &anchorErr) {
			anchorErr.Base = base
		}
		return nil, err
	}

	if err := target.Validate(); err != nil {
		return nil, err
	}
	return c.registry.Register(target.Flow, cfg.passes, requires, target.Backend)
}
