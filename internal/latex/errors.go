package latex

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrUnknownOperator       = errors.New("operator has no catalog template")
	ErrShapeMissing          = errors.New("output shape could not be resolved")
	ErrWeightIndexOutOfRange = errors.New("weight index out of range")
	ErrNonWeightableTarget   = errors.New("node is not weightable")
	ErrNoTerminal            = errors.New("no terminal node reachable")
	ErrNodeOutOfRange        = errors.New("node id out of range")
)

// NodeError reports a failure tied to a single graph node.
type NodeError struct {
	Index  int    // node id
	OpName string // operator type of the node
	Err    error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.OpName != "" {
		return fmt.Sprintf("node %d (%s): %v", e.Index, e.OpName, e.Err)
	}
	return fmt.Sprintf("node %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}
