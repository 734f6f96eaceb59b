package onnx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGraphMLP(t *testing.T) {
	g, err := LoadFromProto(mlpModel(), DefaultLoadOptions())
	require.NoError(t, err)

	ops := make([]string, g.Len())
	for i := range g.Nodes {
		ops[i] = g.Nodes[i].Op.OpType
	}
	assert.Equal(t, []string{
		"Source", "Const", "Const", "Gemm", "Sigmoid", "Const", "Const", "Gemm", "Sigmoid",
	}, ops)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, g.Order)
	assert.Equal(t, []int{0}, g.Inputs)
	assert.Equal(t, []int{8}, g.Outputs)

	assert.Equal(t, []int{0, 1, 2}, g.Node(3).Inputs)
	assert.Equal(t, []int{4}, g.Node(3).Successors)
	assert.Equal(t, "fc1.weight", g.Node(1).Op.Name)
	assert.Equal(t, "weight", g.Node(1).Op.Qualifier())

	next, ok := g.Successor(0)
	require.True(t, ok)
	assert.Equal(t, 3, next)
	_, ok = g.Successor(8)
	assert.False(t, ok)

	assert.Equal(t, []int{1, 784}, g.Node(0).Shape)
	assert.Equal(t, []int{64, 784}, g.Node(1).Shape)
	assert.Equal(t, []int{1, 64}, g.Node(3).Shape)
	assert.Equal(t, []int{1, 64}, g.Node(4).Shape)
	assert.Equal(t, []int{1, 10}, g.Node(8).Shape)
	assert.Equal(t, []int{1, 64}, g.InputShape(4))
}

func TestTopologicalSort(t *testing.T) {
	// A -> B -> C
	//      B -> D
	nodes := []GraphNode{
		{ID: 0, Inputs: []int{3}}, // C
		{ID: 1},                   // A
		{ID: 2, Inputs: []int{3}}, // D
		{ID: 3, Inputs: []int{1}}, // B
	}

	order := topologicalSort(nodes)
	require.Len(t, order, 4)

	pos := make(map[int]int)
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos[1], pos[3])
	assert.Less(t, pos[3], pos[0])
	assert.Less(t, pos[3], pos[2])
}

func TestBuildGraphOutOfOrderNodes(t *testing.T) {
	proto := &ModelProto{Graph: &GraphProto{
		Nodes: []NodeProto{
			{OpType: "Relu", Inputs: []string{"b"}, Outputs: []string{"c"}},
			{OpType: "Sigmoid", Inputs: []string{"a"}, Outputs: []string{"b"}},
		},
		Inputs: []ValueInfoProto{tensorInfo("a", 1, 4)},
	}}

	g, err := LoadFromProto(proto, DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 1}, g.Order)
	assert.Equal(t, []int{1}, g.Node(2).Successors)
	assert.Equal(t, []int{1, 4}, g.Node(1).Shape)
}

func TestBuildGraphFanOut(t *testing.T) {
	proto := &ModelProto{Graph: &GraphProto{
		Nodes: []NodeProto{
			{OpType: "Relu", Inputs: []string{"x"}, Outputs: []string{"r"}},
			{OpType: "Sigmoid", Inputs: []string{"r"}, Outputs: []string{"s"}},
			{OpType: "Add", Inputs: []string{"r", "s"}, Outputs: []string{"y"}},
		},
		Inputs: []ValueInfoProto{tensorInfo("x", 2, 3)},
	}}

	g, err := LoadFromProto(proto, DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, g.Node(1).Successors)
	assert.Equal(t, []int{2, 3}, g.Node(3).Shape)
}

func TestBuildGraphZeroStride(t *testing.T) {
	proto := &ModelProto{Graph: &GraphProto{
		Nodes: []NodeProto{{
			OpType: "MaxPool", Inputs: []string{"x"}, Outputs: []string{"p"},
			Attributes: []AttributeProto{intsAttr("kernel_shape", 2, 2), intsAttr("strides", 0, 0)},
		}},
		Inputs: []ValueInfoProto{tensorInfo("x", 1, 1, 4, 4)},
	}}

	g, err := LoadFromProto(proto, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Nil(t, g.Node(1).Shape)
}

func TestBuildGraphDanglingInput(t *testing.T) {
	proto := &ModelProto{Graph: &GraphProto{
		Nodes: []NodeProto{{Name: "r", OpType: "Relu", Inputs: []string{"missing"}, Outputs: []string{"y"}}},
	}}

	_, err := LoadFromProto(proto, DefaultLoadOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedModel))
	assert.Contains(t, err.Error(), "missing")
}

func TestBuildGraphOptionalInputs(t *testing.T) {
	proto := &ModelProto{Graph: &GraphProto{
		Nodes:  []NodeProto{{OpType: "Clip", Inputs: []string{"x", "", "hi"}, Outputs: []string{"y"}}},
		Inputs: []ValueInfoProto{tensorInfo("x", 1, 4)},
		Initializers: []TensorProto{
			{Name: "hi", DataType: TensorProtoFloat},
		},
	}}

	g, err := LoadFromProto(proto, DefaultLoadOptions())
	require.NoError(t, err)

	clip := g.Node(2)
	assert.Equal(t, "Clip", clip.Op.OpType)
	assert.Equal(t, []int{0, 1}, clip.Inputs)
}

func TestBuildGraphUnusedInitializer(t *testing.T) {
	proto := mlpModel()
	proto.Graph.Initializers = append(proto.Graph.Initializers, weight("unused", 3))

	g, err := LoadFromProto(proto, DefaultLoadOptions())
	require.NoError(t, err)

	last := g.Node(g.Len() - 1)
	assert.Equal(t, "unused", last.Op.Name)
	assert.Empty(t, last.Successors)
}

func TestTensorInts(t *testing.T) {
	assert.Equal(t, []int64{1, 2}, tensorInts(&TensorProto{Int64Data: []int64{1, 2}}))
	assert.Equal(t, []int64{-1, 7}, tensorInts(&TensorProto{Int32Data: []int32{-1, 7}}))

	raw := []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x03, 0, 0, 0, 0, 0, 0, 0,
	}
	assert.Equal(t, []int64{-1, 3}, tensorInts(&TensorProto{DataType: TensorProtoInt64, RawData: raw}))
	assert.Nil(t, tensorInts(&TensorProto{DataType: TensorProtoFloat, RawData: raw}))
}
