package graph

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrDuplicateNode = errors.New("duplicate node")
	ErrInvalidNodeID = errors.New("invalid node id")
	ErrEdgeNotFound  = errors.New("edge not found")
)

// NodeError ties a node id to one of the sentinel errors above.
type NodeError struct {
	ID  string
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.ID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func nodeErr(id string, err error) error {
	return &NodeError{ID: id, Err: err}
}
