package onnx

import (
	"fmt"
	"io"

	"github.com/born-ml/latexgen/internal/onnx/operators"
)

// LoadOptions configures model loading behavior.
type LoadOptions struct {
	// StrictMode fails on operators the registry does not know
	// (default: false = keep them as Undefined nodes).
	StrictMode bool

	// BatchSize replaces dynamic dimensions during shape resolution.
	BatchSize int

	// CustomOps maps additional operator types to variants.
	CustomOps map[string]operators.Variant
}

// DefaultLoadOptions returns default loading options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		StrictMode: false,
		BatchSize:  1,
		CustomOps:  nil,
	}
}

func pickOptions(opts []LoadOptions) LoadOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return DefaultLoadOptions()
}

// Load loads an ONNX model from file and builds its graph.
//
// Example:
//
//	graph, err := onnx.Load("mlp.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, id := range graph.Order {
//	    fmt.Println(graph.Node(id).Op.OpType)
//	}
func Load(path string, opts ...LoadOptions) (*Graph, error) {
	proto, err := ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX file: %w", err)
	}
	return LoadFromProto(proto, pickOptions(opts))
}

// LoadFromBytes loads an ONNX model from bytes.
func LoadFromBytes(data []byte, opts ...LoadOptions) (*Graph, error) {
	proto, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX data: %w", err)
	}
	return LoadFromProto(proto, pickOptions(opts))
}

// LoadFromReader loads an ONNX model from a stream.
func LoadFromReader(r io.Reader, opts ...LoadOptions) (*Graph, error) {
	proto, err := ParseReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX stream: %w", err)
	}
	return LoadFromProto(proto, pickOptions(opts))
}

// LoadFromProto builds the graph of a parsed ModelProto.
func LoadFromProto(proto *ModelProto, opt LoadOptions) (*Graph, error) {
	if proto == nil || proto.Graph == nil {
		return nil, fmt.Errorf("%w: model has no graph", ErrMalformedModel)
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = 1
	}

	registry := operators.NewRegistry()
	for opType, v := range opt.CustomOps {
		registry.Register(opType, v)
	}

	if opt.StrictMode {
		if err := validateOperators(proto.Graph, registry); err != nil {
			return nil, err
		}
	}

	g, err := buildGraph(proto.Graph, opt.BatchSize)
	if err != nil {
		return nil, err
	}
	g.Registry = registry
	return g, nil
}

// validateOperators checks that all operators are supported.
func validateOperators(graph *GraphProto, registry *operators.Registry) error {
	if registry == nil {
		return fmt.Errorf("registry is nil")
	}

	unsupported := make([]string, 0)
	for i := range graph.Nodes {
		if _, ok := registry.Get(graph.Nodes[i].OpType); !ok {
			unsupported = append(unsupported, graph.Nodes[i].OpType)
		}
	}

	if len(unsupported) > 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedOperator, unsupported)
	}

	return nil
}

// ModelInfo contains basic information about an ONNX model without building
// its graph.
type ModelInfo struct {
	IRVersion       int64
	OpsetVersion    int64
	ProducerName    string
	ProducerVersion string
	GraphName       string
	InputNames      []string
	OutputNames     []string
	NodeCount       int
	WeightCount     int
	OpTypes         map[string]int
}

// GetModelInfo extracts basic info from an ONNX file.
func GetModelInfo(path string) (*ModelInfo, error) {
	proto, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return ModelInfoFromProto(proto), nil
}

// ModelInfoFromProto summarizes a parsed model.
func ModelInfoFromProto(proto *ModelProto) *ModelInfo {
	info := &ModelInfo{
		IRVersion:       proto.IRVersion,
		ProducerName:    proto.ProducerName,
		ProducerVersion: proto.ProducerVersion,
		OpTypes:         make(map[string]int),
	}

	// Get opset version
	for _, opset := range proto.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			info.OpsetVersion = opset.Version
			break
		}
	}

	if proto.Graph != nil {
		info.GraphName = proto.Graph.Name

		// Get inputs (excluding initializers)
		initNames := make(map[string]bool)
		for i := range proto.Graph.Initializers {
			initNames[proto.Graph.Initializers[i].Name] = true
		}
		for i := range proto.Graph.Inputs {
			if !initNames[proto.Graph.Inputs[i].Name] {
				info.InputNames = append(info.InputNames, proto.Graph.Inputs[i].Name)
			}
		}

		for i := range proto.Graph.Outputs {
			info.OutputNames = append(info.OutputNames, proto.Graph.Outputs[i].Name)
		}

		for i := range proto.Graph.Nodes {
			info.OpTypes[proto.Graph.Nodes[i].OpType]++
		}

		info.NodeCount = len(proto.Graph.Nodes)
		info.WeightCount = len(proto.Graph.Initializers)
	}

	return info
}

// ListSupportedOps returns all operator types the default registry knows.
func ListSupportedOps() []string {
	return operators.NewRegistry().SupportedOps()
}
