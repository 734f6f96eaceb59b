package latex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/latexgen/internal/onnx"
)

func tensorInfo(name string, dims ...int64) onnx.ValueInfoProto {
	shape := &onnx.TensorShapeProto{}
	for _, d := range dims {
		if d < 0 {
			shape.Dims = append(shape.Dims, onnx.DimensionProto{DimParam: "batch"})
		} else {
			shape.Dims = append(shape.Dims, onnx.DimensionProto{DimValue: d})
		}
	}
	return onnx.ValueInfoProto{
		Name: name,
		Type: &onnx.TypeProto{TensorType: &onnx.TensorTypeProto{ElemType: onnx.TensorProtoFloat, Shape: shape}},
	}
}

func weight(name string, dims ...int64) onnx.TensorProto {
	return onnx.TensorProto{Name: name, DataType: onnx.TensorProtoFloat, Dims: dims}
}

func intsAttr(name string, values ...int64) onnx.AttributeProto {
	return onnx.AttributeProto{Name: name, Type: onnx.AttributeProtoInts, Ints: values}
}

func gemm(name, in, w, b, out string) onnx.NodeProto {
	return onnx.NodeProto{
		Name: name, OpType: "Gemm", Inputs: []string{in, w, b}, Outputs: []string{out},
		Attributes: []onnx.AttributeProto{{Name: "transB", Type: onnx.AttributeProtoInt, I: 1}},
	}
}

// mlpModel is Source -> Gemm -> Sigmoid -> Gemm -> Sigmoid.
//
// Node ids: 0 input, 1 fc1.weight, 2 fc1.bias, 3 Gemm, 4 Sigmoid,
// 5 fc2.weight, 6 fc2.bias, 7 Gemm, 8 Sigmoid.
func mlpModel() *onnx.ModelProto {
	return &onnx.ModelProto{Graph: &onnx.GraphProto{
		Name: "mlp",
		Nodes: []onnx.NodeProto{
			gemm("/fc1/Gemm", "input", "fc1.weight", "fc1.bias", "z1"),
			{Name: "/act1/Sigmoid", OpType: "Sigmoid", Inputs: []string{"z1"}, Outputs: []string{"a1"}},
			gemm("/fc2/Gemm", "a1", "fc2.weight", "fc2.bias", "z2"),
			{Name: "/act2/Sigmoid", OpType: "Sigmoid", Inputs: []string{"z2"}, Outputs: []string{"output"}},
		},
		Initializers: []onnx.TensorProto{
			weight("fc1.weight", 64, 784),
			weight("fc1.bias", 64),
			weight("fc2.weight", 10, 64),
			weight("fc2.bias", 10),
		},
		Inputs:  []onnx.ValueInfoProto{tensorInfo("input", -1, 784)},
		Outputs: []onnx.ValueInfoProto{tensorInfo("output", -1, 10)},
	}}
}

// convModel is Source -> Conv -> MaxPool.
//
// Node ids: 0 image, 1 conv.weight, 2 conv.bias, 3 Conv, 4 MaxPool.
func convModel() *onnx.ModelProto {
	return &onnx.ModelProto{Graph: &onnx.GraphProto{
		Name: "cnn",
		Nodes: []onnx.NodeProto{
			{Name: "/conv/Conv", OpType: "Conv", Inputs: []string{"image", "conv.weight", "conv.bias"}, Outputs: []string{"c1"},
				Attributes: []onnx.AttributeProto{intsAttr("kernel_shape", 3, 3), intsAttr("pads", 1, 1, 1, 1)}},
			{Name: "/pool/MaxPool", OpType: "MaxPool", Inputs: []string{"c1"}, Outputs: []string{"p1"},
				Attributes: []onnx.AttributeProto{intsAttr("kernel_shape", 2, 2), intsAttr("strides", 2, 2)}},
		},
		Initializers: []onnx.TensorProto{
			weight("conv.weight", 8, 1, 3, 3),
			weight("conv.bias", 8),
		},
		Inputs: []onnx.ValueInfoProto{tensorInfo("image", -1, 1, 28, 28)},
	}}
}

// sigmoidModel is Source -> Sigmoid.
func sigmoidModel() *onnx.ModelProto {
	return &onnx.ModelProto{Graph: &onnx.GraphProto{
		Nodes: []onnx.NodeProto{
			{Name: "/Sigmoid", OpType: "Sigmoid", Inputs: []string{"x"}, Outputs: []string{"y"}},
		},
		Inputs: []onnx.ValueInfoProto{tensorInfo("x", 1, 4)},
	}}
}

// unknownModel is Source -> Foo -> Sigmoid where Foo has no template.
func unknownModel() *onnx.ModelProto {
	return &onnx.ModelProto{Graph: &onnx.GraphProto{
		Nodes: []onnx.NodeProto{
			{Name: "/Foo", OpType: "Foo", Inputs: []string{"x"}, Outputs: []string{"f"}},
			{Name: "/Sigmoid", OpType: "Sigmoid", Inputs: []string{"f"}, Outputs: []string{"y"}},
		},
		Inputs: []onnx.ValueInfoProto{tensorInfo("x", 1, 4)},
	}}
}

// flattenModel is Source -> Gemm -> Flatten -> Sigmoid. Flatten has no
// template and shows its input.
func flattenModel() *onnx.ModelProto {
	return &onnx.ModelProto{Graph: &onnx.GraphProto{
		Nodes: []onnx.NodeProto{
			gemm("/fc/Gemm", "x", "fc.weight", "fc.bias", "z"),
			{Name: "/Flatten", OpType: "Flatten", Inputs: []string{"z"}, Outputs: []string{"flat"}},
			{Name: "/Sigmoid", OpType: "Sigmoid", Inputs: []string{"flat"}, Outputs: []string{"y"}},
		},
		Initializers: []onnx.TensorProto{weight("fc.weight", 3, 4), weight("fc.bias", 3)},
		Inputs:       []onnx.ValueInfoProto{tensorInfo("x", 1, 4)},
	}}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine()
	require.NoError(t, err)
	return e
}

func load(t *testing.T, m *onnx.ModelProto) *onnx.Graph {
	t.Helper()
	g, err := onnx.LoadFromProto(m, onnx.DefaultLoadOptions())
	require.NoError(t, err)
	return g
}

func parse(t *testing.T, m *onnx.ModelProto, opts ParseOptions) *Result {
	t.Helper()
	res, err := newEngine(t).Parse(context.Background(), load(t, m), opts)
	require.NoError(t, err)
	return res
}

// flattenMLPModel is Source -> Gemm -> Flatten -> Gemm -> Sigmoid.
//
// Node ids: 0 x, 1 fc1.weight, 2 fc1.bias, 3 Gemm, 4 Flatten,
// 5 fc2.weight, 6 fc2.bias, 7 Gemm, 8 Sigmoid.
func flattenMLPModel() *onnx.ModelProto {
	return &onnx.ModelProto{Graph: &onnx.GraphProto{
		Nodes: []onnx.NodeProto{
			gemm("/fc1/Gemm", "x", "fc1.weight", "fc1.bias", "z1"),
			{Name: "/Flatten", OpType: "Flatten", Inputs: []string{"z1"}, Outputs: []string{"flat"}},
			gemm("/fc2/Gemm", "flat", "fc2.weight", "fc2.bias", "z2"),
			{Name: "/Sigmoid", OpType: "Sigmoid", Inputs: []string{"z2"}, Outputs: []string{"y"}},
		},
		Initializers: []onnx.TensorProto{
			weight("fc1.weight", 3, 4),
			weight("fc1.bias", 3),
			weight("fc2.weight", 2, 3),
			weight("fc2.bias", 2),
		},
		Inputs: []onnx.ValueInfoProto{tensorInfo("x", 1, 4)},
	}}
}
