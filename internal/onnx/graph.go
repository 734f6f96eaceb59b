package onnx

import (
	"encoding/binary"
	"fmt"

	"github.com/born-ml/latexgen/internal/onnx/operators"
)

// GraphNode is one node of the graph arena.
type GraphNode struct {
	ID         int
	Op         *operators.Node
	Inputs     []int // producer ids, in input order; optional inputs are omitted
	Successors []int // consumers of the first output, in id order
	Shape      []int // shape of the first output, nil if unresolved
}

// Graph is an arena of nodes indexed by id. Graph inputs become Source nodes
// and initializers become Const nodes placed just before their first
// consumer, so every tensor in the graph has exactly one producer.
type Graph struct {
	Name    string
	Nodes   []GraphNode
	Order   []int // topological order, dependencies first
	Inputs  []int // Source node ids
	Outputs []int // ids of nodes producing a graph output

	// Registry is the operator registry the graph was loaded with.
	Registry *operators.Registry
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) *GraphNode {
	return &g.Nodes[id]
}

// Successor returns the first consumer of the node's first output.
func (g *Graph) Successor(id int) (int, bool) {
	if s := g.Nodes[id].Successors; len(s) > 0 {
		return s[0], true
	}
	return 0, false
}

// InputShape returns the output shape of the node's first input.
func (g *Graph) InputShape(id int) []int {
	if in := g.Nodes[id].Inputs; len(in) > 0 {
		return g.Nodes[in[0]].Shape
	}
	return nil
}

// buildGraph converts a decoded graph into the node arena.
//
//nolint:gocognit // Arena construction resolves every tensor reference in one pass.
func buildGraph(gp *GraphProto, batchSize int) (*Graph, error) {
	g := &Graph{Name: gp.Name}

	initializers := make(map[string]*TensorProto, len(gp.Initializers))
	for i := range gp.Initializers {
		initializers[gp.Initializers[i].Name] = &gp.Initializers[i]
	}

	producer := make(map[string]int)
	add := func(op *operators.Node) int {
		id := len(g.Nodes)
		g.Nodes = append(g.Nodes, GraphNode{ID: id, Op: op})
		for _, out := range op.Outputs {
			if out != "" {
				producer[out] = id
			}
		}
		return id
	}

	// Graph inputs minus initializers
	for i := range gp.Inputs {
		name := gp.Inputs[i].Name
		if _, isInit := initializers[name]; isInit {
			continue
		}
		g.Inputs = append(g.Inputs, add(&operators.Node{
			Name:    name,
			OpType:  operators.SourceOpType,
			Outputs: []string{name},
		}))
	}

	for i := range gp.Nodes {
		np := &gp.Nodes[i]
		for _, in := range np.Inputs {
			if in == "" {
				continue
			}
			if _, ok := producer[in]; ok {
				continue
			}
			if t, ok := initializers[in]; ok {
				add(constNode(t))
			}
		}
		add(nodeProtoToOperatorNode(np))
	}

	// Initializers nothing consumes
	for i := range gp.Initializers {
		if _, ok := producer[gp.Initializers[i].Name]; !ok {
			add(constNode(&gp.Initializers[i]))
		}
	}

	for id := range g.Nodes {
		n := &g.Nodes[id]
		for _, in := range n.Op.Inputs {
			if in == "" {
				continue
			}
			src, ok := producer[in]
			if !ok {
				return nil, fmt.Errorf("%w: node %q (%s) reads unknown tensor %q",
					ErrMalformedModel, n.Op.Name, n.Op.OpType, in)
			}
			n.Inputs = append(n.Inputs, src)
		}
	}

	// Successors of the first output port, in id order
	for id := range g.Nodes {
		for _, src := range g.Nodes[id].Inputs {
			if first := g.Nodes[src].Op.Outputs; len(first) == 0 || !consumes(g.Nodes[id].Op, first[0]) {
				continue
			}
			s := g.Nodes[src].Successors
			if len(s) == 0 || s[len(s)-1] != id {
				g.Nodes[src].Successors = append(s, id)
			}
		}
	}

	for i := range gp.Outputs {
		if id, ok := producer[gp.Outputs[i].Name]; ok {
			g.Outputs = append(g.Outputs, id)
		}
	}

	g.Order = topologicalSort(g.Nodes)

	shapes := resolveShapes(gp, g, batchSize)
	for id := range g.Nodes {
		if outs := g.Nodes[id].Op.Outputs; len(outs) > 0 {
			g.Nodes[id].Shape = shapes[outs[0]]
		}
	}

	return g, nil
}

func consumes(op *operators.Node, tensor string) bool {
	for _, in := range op.Inputs {
		if in == tensor {
			return true
		}
	}
	return false
}

// constNode wraps an initializer as a Const node carrying the tensor as its
// value attribute.
func constNode(t *TensorProto) *operators.Node {
	return &operators.Node{
		Name:    t.Name,
		OpType:  operators.ConstOpType,
		Outputs: []string{t.Name},
		Attributes: []operators.Attribute{{
			Name: "value",
			Type: AttributeProtoTensor,
			T:    tensorFromProto(t),
		}},
	}
}

// tensorFromProto keeps the shape and integer payload of a tensor.
func tensorFromProto(proto *TensorProto) *operators.Tensor {
	return &operators.Tensor{
		DataType: proto.DataType,
		Dims:     proto.Dims,
		Ints:     tensorInts(proto),
	}
}

// tensorInts decodes an int32/int64 payload. Data fields are mutually
// exclusive.
func tensorInts(proto *TensorProto) []int64 {
	switch {
	case len(proto.Int64Data) > 0:
		return proto.Int64Data
	case len(proto.Int32Data) > 0:
		ints := make([]int64, len(proto.Int32Data))
		for i, v := range proto.Int32Data {
			ints[i] = int64(v)
		}
		return ints
	case len(proto.RawData) > 0 && proto.DataType == TensorProtoInt64:
		ints := make([]int64, len(proto.RawData)/8)
		for i := range ints {
			ints[i] = int64(binary.LittleEndian.Uint64(proto.RawData[i*8:])) //nolint:gosec // G115: two's complement reinterpretation.
		}
		return ints
	case len(proto.RawData) > 0 && proto.DataType == TensorProtoInt32:
		ints := make([]int64, len(proto.RawData)/4)
		for i := range ints {
			ints[i] = int64(int32(binary.LittleEndian.Uint32(proto.RawData[i*4:]))) //nolint:gosec // G115: two's complement reinterpretation.
		}
		return ints
	}
	return nil
}

// nodeProtoToOperatorNode converts NodeProto to operators.Node.
func nodeProtoToOperatorNode(proto *NodeProto) *operators.Node {
	attrs := make([]operators.Attribute, len(proto.Attributes))
	for i := range proto.Attributes {
		attr := &proto.Attributes[i]
		attrs[i] = operators.Attribute{
			Name:    attr.Name,
			Type:    attr.Type,
			F:       attr.F,
			I:       attr.I,
			S:       attr.S,
			Floats:  attr.Floats,
			Ints:    attr.Ints,
			Strings: attr.Strings,
		}
		if attr.T != nil {
			attrs[i].T = tensorFromProto(attr.T)
		}
	}
	return &operators.Node{
		Name:       proto.Name,
		OpType:     proto.OpType,
		Inputs:     proto.Inputs,
		Outputs:    proto.Outputs,
		Attributes: attrs,
		Domain:     proto.Domain,
	}
}

// topologicalSort orders node ids so that dependencies come before
// dependents. Ties keep id order.
func topologicalSort(nodes []GraphNode) []int {
	visited := make([]bool, len(nodes))
	result := make([]int, 0, len(nodes))

	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true

		// Visit dependencies first
		for _, dep := range nodes[i].Inputs {
			visit(dep)
		}

		result = append(result, i)
	}

	for i := range nodes {
		visit(i)
	}

	return result
}
