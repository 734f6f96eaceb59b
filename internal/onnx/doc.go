// Package onnx decodes ONNX models into a node arena the LaTeX engine walks.
//
// This package implements a hand-written protobuf parser for .onnx files
// without external dependencies, then turns the decoded graph into a Graph:
// a dense slice of nodes indexed by integer id with resolved producer and
// consumer links, a topological order and static output shapes.
//
// Key components:
//   - ModelProto: Top-level ONNX model structure with metadata and graph
//   - GraphProto: Computation graph with nodes, inputs, outputs, and initializers
//   - Graph: node arena with synthetic Source nodes for graph inputs and
//     Const nodes for initializers
//   - LoadOptions: strict operator checking, batch size for dynamic dimensions
//
// Example usage:
//
//	graph, err := onnx.Load("mnist.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, id := range graph.Order {
//	    n := graph.Node(id)
//	    fmt.Printf("%d %s %v\n", id, n.Op.OpType, n.Shape)
//	}
package onnx
