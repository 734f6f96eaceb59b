package onnx

import "errors"

// Model errors.
var (
	// ErrMalformedModel is returned when the protobuf cannot be decoded or the
	// graph is structurally broken (missing graph, dangling tensor reference).
	ErrMalformedModel = errors.New("malformed model")

	// ErrUnsupportedOperator is returned in strict mode when the graph uses an
	// operator type the registry does not know.
	ErrUnsupportedOperator = errors.New("unsupported operator")
)
