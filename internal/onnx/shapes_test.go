package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/latexgen/internal/onnx/operators"
)

// convModel is Source -> Conv -> MaxPool -> Flatten -> Gemm with no declared
// intermediate shapes.
func convModel() *ModelProto {
	return &ModelProto{Graph: &GraphProto{
		Name: "cnn",
		Nodes: []NodeProto{
			{Name: "/conv1/Conv", OpType: "Conv", Inputs: []string{"image", "conv1.weight", "conv1.bias"}, Outputs: []string{"c1"},
				Attributes: []AttributeProto{intsAttr("kernel_shape", 3, 3), intsAttr("pads", 1, 1, 1, 1)}},
			{Name: "/pool/MaxPool", OpType: "MaxPool", Inputs: []string{"c1"}, Outputs: []string{"p1"},
				Attributes: []AttributeProto{intsAttr("kernel_shape", 2, 2), intsAttr("strides", 2, 2)}},
			{Name: "/Flatten", OpType: "Flatten", Inputs: []string{"p1"}, Outputs: []string{"flat"}},
			{Name: "/fc/Gemm", OpType: "Gemm", Inputs: []string{"flat", "fc.weight", "fc.bias"}, Outputs: []string{"logits"},
				Attributes: []AttributeProto{{Name: "transB", Type: AttributeProtoInt, I: 1}}},
		},
		Initializers: []TensorProto{
			weight("conv1.weight", 8, 1, 3, 3),
			weight("conv1.bias", 8),
			weight("fc.weight", 10, 8*14*14),
			weight("fc.bias", 10),
		},
		Inputs: []ValueInfoProto{tensorInfo("image", -1, 1, 28, 28)},
	}}
}

func shapeOf(t *testing.T, g *Graph, op string) []int {
	t.Helper()
	for i := range g.Nodes {
		if g.Nodes[i].Op.OpType == op {
			return g.Nodes[i].Shape
		}
	}
	t.Fatalf("no %s node", op)
	return nil
}

func TestShapePropagationConv(t *testing.T) {
	g, err := LoadFromProto(convModel(), LoadOptions{BatchSize: 4})
	require.NoError(t, err)

	assert.Equal(t, []int{4, 1, 28, 28}, shapeOf(t, g, "Source"))
	assert.Equal(t, []int{4, 8, 28, 28}, shapeOf(t, g, "Conv"))
	assert.Equal(t, []int{4, 8, 14, 14}, shapeOf(t, g, "MaxPool"))
	assert.Equal(t, []int{4, 8 * 14 * 14}, shapeOf(t, g, "Flatten"))
	assert.Equal(t, []int{4, 10}, shapeOf(t, g, "Gemm"))
}

func TestShapeDeclaredWins(t *testing.T) {
	proto := convModel()
	proto.Graph.ValueInfo = []ValueInfoProto{tensorInfo("c1", 1, 8, 30, 30)}

	g, err := LoadFromProto(proto, DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 8, 30, 30}, shapeOf(t, g, "Conv"))
	assert.Equal(t, []int{1, 8, 15, 15}, shapeOf(t, g, "MaxPool"))
}

func TestShapeReshapeConstant(t *testing.T) {
	proto := &ModelProto{Graph: &GraphProto{
		Nodes: []NodeProto{
			{OpType: "Constant", Outputs: []string{"shape"}, Attributes: []AttributeProto{{
				Name: "value", Type: AttributeProtoTensor,
				T: &TensorProto{DataType: TensorProtoInt64, Dims: []int64{2}, Int64Data: []int64{0, -1}},
			}}},
			{OpType: "Reshape", Inputs: []string{"x", "shape"}, Outputs: []string{"y"}},
		},
		Inputs: []ValueInfoProto{tensorInfo("x", 2, 3, 4)},
	}}

	g, err := LoadFromProto(proto, DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{2}, shapeOf(t, g, "Constant"))
	assert.Equal(t, []int{2, 12}, shapeOf(t, g, "Reshape"))
}

func TestInferShapeOps(t *testing.T) {
	g := &Graph{}
	node := func(op string, attrs ...operators.Attribute) *operators.Node {
		return &operators.Node{OpType: op, Attributes: attrs}
	}
	ints := func(name string, v ...int64) operators.Attribute {
		return operators.Attribute{Name: name, Type: AttributeProtoInts, Ints: v}
	}

	tests := []struct {
		name string
		op   *operators.Node
		ins  [][]int
		want []int
	}{
		{"gemm", node("Gemm"), [][]int{{2, 3}, {3, 5}}, []int{2, 5}},
		{"gemm transA", node("Gemm", operators.Attribute{Name: "transA", I: 1}), [][]int{{3, 2}, {3, 5}}, []int{2, 5}},
		{"matmul", node("MatMul"), [][]int{{7, 2, 3}, {3, 5}}, []int{7, 2, 5}},
		{"conv stride", node("Conv", ints("strides", 2, 2)), [][]int{{1, 3, 32, 32}, {16, 3, 3, 3}}, []int{1, 16, 15, 15}},
		{"conv same", node("Conv", operators.Attribute{Name: "auto_pad", S: []byte("SAME_UPPER")}, ints("strides", 2, 2)),
			[][]int{{1, 3, 32, 32}, {16, 3, 3, 3}}, []int{1, 16, 16, 16}},
		{"avgpool ceil", node("AveragePool", ints("kernel_shape", 2, 2), ints("strides", 2, 2),
			operators.Attribute{Name: "ceil_mode", I: 1}), [][]int{{1, 4, 5, 5}}, []int{1, 4, 3, 3}},
		{"global pool", node("GlobalAveragePool"), [][]int{{1, 64, 7, 7}}, []int{1, 64, 1, 1}},
		{"flatten axis", node("Flatten", operators.Attribute{Name: "axis", I: 2}), [][]int{{2, 3, 4, 5}}, []int{6, 20}},
		{"pad", node("Pad", ints("pads", 0, 0, 1, 1, 0, 0, 1, 1)), [][]int{{1, 3, 4, 4}}, []int{1, 3, 6, 6}},
		{"add broadcast", node("Add"), [][]int{{4, 1}, {3}}, []int{4, 3}},
		{"relu", node("Relu"), [][]int{{2, 2}}, []int{2, 2}},
		{"maxpool zero stride", node("MaxPool", ints("kernel_shape", 2, 2), ints("strides", 0, 0)), [][]int{{1, 1, 4, 4}}, nil},
		{"conv zero dilation", node("Conv", ints("dilations", 1, 0)), [][]int{{1, 3, 8, 8}, {16, 3, 3, 3}}, nil},
		{"maxpool kernel too large", node("MaxPool", ints("kernel_shape", 5, 5)), [][]int{{1, 1, 4, 4}}, nil},
		{"unknown", node("TopK"), [][]int{{2, 2}}, nil},
		{"missing input", node("Gemm"), [][]int{{2, 3}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferShape(g, tt.op, tt.ins))
		})
	}
}

func TestReshapeInference(t *testing.T) {
	assert.Equal(t, []int{6, 4}, reshape([]int{2, 3, 4}, []int64{-1, 4}))
	assert.Equal(t, []int{2, 12}, reshape([]int{2, 3, 4}, []int64{0, -1}))
	assert.Nil(t, reshape([]int{2, 3}, []int64{-1, -1}))
	assert.Nil(t, reshape(nil, []int64{1}))
}
