// Package onnx loads ONNX models into the node graph the LaTeX engine walks.
//
// Models are decoded with a small built-in protobuf reader; no generated
// code or protobuf runtime is required. Graph inputs become Source nodes and
// initializers become Const nodes, so every tensor has exactly one producer
// and every node has a stable integer id.
//
// # Example Usage
//
//	import "github.com/born-ml/latexgen/onnx"
//
//	graph, err := onnx.Load("mlp.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, id := range graph.Order {
//	    n := graph.Node(id)
//	    fmt.Println(id, n.Op.OpType, n.Shape)
//	}
//
// # Shapes
//
// Output shapes come from the model's value_info, then initializer
// dimensions, then propagation through Gemm, MatMul, Conv, pooling,
// Flatten, Reshape and element-wise operators. Dynamic dimensions are
// replaced by [LoadOptions].BatchSize.
//
// Use [ListSupportedOps] to get the operators with a dedicated rendering.
package onnx

import (
	internalonnx "github.com/born-ml/latexgen/internal/onnx"
)

// Graph is a loaded model: an arena of nodes in topological order.
type Graph = internalonnx.Graph

// GraphNode is one node of a Graph.
type GraphNode = internalonnx.GraphNode

// ModelProto is a decoded ONNX model.
type ModelProto = internalonnx.ModelProto

// LoadOptions configures ONNX model loading behavior.
type LoadOptions = internalonnx.LoadOptions

// Errors returned by the loader.
var (
	ErrMalformedModel      = internalonnx.ErrMalformedModel
	ErrUnsupportedOperator = internalonnx.ErrUnsupportedOperator
)

// DefaultLoadOptions returns the default options for loading ONNX models.
//
// Default configuration:
//   - Strict mode: disabled (unknown operators are kept)
//   - Batch size: 1
func DefaultLoadOptions() LoadOptions {
	return internalonnx.DefaultLoadOptions()
}

// Load loads an ONNX model from a file path.
//
// For custom loading options, pass LoadOptions:
//
//	opts := onnx.DefaultLoadOptions()
//	opts.StrictMode = true // Reject unknown operators
//	graph, err := onnx.Load("model.onnx", opts)
func Load(path string, opts ...LoadOptions) (*Graph, error) {
	return internalonnx.Load(path, opts...)
}

// LoadFromBytes loads an ONNX model from raw bytes.
//
// This is useful when the model is embedded in the binary or loaded
// from a network source.
func LoadFromBytes(data []byte, opts ...LoadOptions) (*Graph, error) {
	return internalonnx.LoadFromBytes(data, opts...)
}

// ModelInfo contains metadata about an ONNX model without building its graph.
//
// Use [GetModelInfo] to quickly inspect a model file.
type ModelInfo = internalonnx.ModelInfo

// GetModelInfo extracts metadata from an ONNX file without building the graph.
//
// Example:
//
//	info, err := onnx.GetModelInfo("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Producer: %s\n", info.ProducerName)
//	fmt.Printf("Opset: %d\n", info.OpsetVersion)
//	fmt.Printf("Operators: %v\n", info.OpTypes)
func GetModelInfo(path string) (*ModelInfo, error) {
	return internalonnx.GetModelInfo(path)
}

// ListSupportedOps returns every operator type with a registered variant.
func ListSupportedOps() []string {
	return internalonnx.ListSupportedOps()
}
