package flow

import (
	"fmt"
	"strings"
)

// nameSeparator joins the backend and flow parts of a Name.
const nameSeparator = ":"

// Name identifies a flow within a backend namespace.
type Name struct {
	Backend string // lower-case backend id, empty for the global namespace
	Flow    string // e.g. "init_layers"
}

// NewName builds a Name, normalizing the backend id.
func NewName(backend, flow string) Name {
	return Name{Backend: NormalizeBackend(backend), Flow: strings.TrimSpace(flow)}
}

// ParseName parses "<backend>:<flow>" or a bare global flow name.
func ParseName(s string) (Name, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Name{}, fmt.Errorf("%w: empty flow name", ErrInvalidName)
	}
	backend, flow, qualified := strings.Cut(s, nameSeparator)
	if !qualified {
		return Name{Flow: s}, nil
	}
	name := NewName(backend, flow)
	if err := name.Validate(); err != nil {
		return Name{}, fmt.Errorf("%w: %q", err, s)
	}
	return name, nil
}

// MustParseName is ParseName for static names; it panics on malformed input.
func MustParseName(s string) Name {
	name, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return name
}

// ParseNames parses a list of flow names, stopping at the first malformed one.
func ParseNames(values ...string) ([]Name, error) {
	if len(values) == 0 {
		return nil, nil
	}
	names := make([]Name, 0, len(values))
	for _, v := range values {
		name, err := ParseName(v)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// MustParseNames is ParseNames for static names.
func MustParseNames(values ...string) []Name {
	names, err := ParseNames(values...)
	if err != nil {
		panic(err)
	}
	return names
}

// NormalizeBackend lower-cases a backend id so "VitisAccelerator" and
// "vitisaccelerator" address the same namespace.
func NormalizeBackend(backend string) string {
	return strings.ToLower(strings.TrimSpace(backend))
}

// String renders the name as "<backend>:<flow>".
func (n Name) String() string {
	if n.Backend == "" {
		return n.Flow
	}
	return n.Backend + nameSeparator + n.Flow
}

// IsZero reports whether the name is unset.
func (n Name) IsZero() bool {
	return n.Backend == "" && n.Flow == ""
}

// Validate checks that both parts are usable as a registry key.
func (n Name) Validate() error {
	if n.Flow == "" {
		return fmt.Errorf("%w: flow part is required", ErrInvalidName)
	}
	if strings.Contains(n.Flow, nameSeparator) {
		return fmt.Errorf("%w: flow part %q contains %q", ErrInvalidName, n.Flow, nameSeparator)
	}
	if strings.Contains(n.Backend, nameSeparator) {
		return fmt.Errorf("%w: backend %q contains %q", ErrInvalidName, n.Backend, nameSeparator)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Name) UnmarshalText(text []byte) error {
	parsed, err := ParseName(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// JoinNames renders names as a comma-separated list.
func JoinNames(names []Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
