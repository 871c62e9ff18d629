package flow

import (
	"errors"
	"fmt"
	"strings"
)

// Registry and composition errors without a diagnostic payload.
var (
	ErrInvalidName    = errors.New("invalid flow name")
	ErrInvalidPass    = errors.New("invalid pass name")
	ErrEmptyFlow      = errors.New("flow has no passes and no requirements")
	ErrRegistryFrozen = errors.New("flow registry is frozen")
)

// DuplicateFlowError is returned when a (backend, flow) key is registered twice.
type DuplicateFlowError struct {
	Name Name
}

func (e *DuplicateFlowError) Error() string {
	return fmt.Sprintf("flow %s already registered", e.Name)
}

// FlowNotFoundError is returned when a flow is looked up but not registered.
// ReferencedBy is set when the lookup came from another flow's requirements.
type FlowNotFoundError struct {
	Name         Name
	ReferencedBy Name
}

func (e *FlowNotFoundError) Error() string {
	if !e.ReferencedBy.IsZero() {
		return fmt.Sprintf("flow %s not found (required by %s)", e.Name, e.ReferencedBy)
	}
	return fmt.Sprintf("flow %s not found", e.Name)
}

// UnknownFlowReferenceError is returned by Register when a requirement names a
// flow that has not been registered yet.
type UnknownFlowReferenceError struct {
	Flow    Name
	Missing Name
}

func (e *UnknownFlowReferenceError) Error() string {
	return fmt.Sprintf("flow %s requires unregistered flow %s", e.Flow, e.Missing)
}

// AnchorNotFoundError is returned by Derive when an insertion anchor is absent
// from the requirement list being spliced.
type AnchorNotFoundError struct {
	Base     Name
	Anchor   Name
	Requires []Name // the list as it stood when the insertion was applied
}

func (e *AnchorNotFoundError) Error() string {
	if e.Base.IsZero() {
		return fmt.Sprintf("anchor %s not found in [%s]", e.Anchor, JoinNames(e.Requires))
	}
	return fmt.Sprintf("anchor %s not found in requirements of %s [%s]", e.Anchor, e.Base, JoinNames(e.Requires))
}

// CyclicFlowDependencyError carries the full cycle, first and last entries equal.
type CyclicFlowDependencyError struct {
	Path []Name
}

func (e *CyclicFlowDependencyError) Error() string {
	parts := make([]string, len(e.Path))
	for i, n := range e.Path {
		parts[i] = n.String()
	}
	return "cyclic flow dependency: " + strings.Join(parts, " -> ")
}
