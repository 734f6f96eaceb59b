package onnx

import "github.com/born-ml/latexgen/internal/onnx/operators"

// resolveShapes returns the static shape of every tensor it can determine.
//
// Declared shapes (value_info, graph inputs and outputs) win over
// initializer dims, which win over shapes propagated through the nodes in
// topological order. Dynamic dimensions are replaced by batchSize.
func resolveShapes(gp *GraphProto, g *Graph, batchSize int) map[string][]int {
	shapes := make(map[string][]int)

	declared := func(infos []ValueInfoProto) {
		for i := range infos {
			if _, ok := shapes[infos[i].Name]; ok {
				continue
			}
			if s := valueInfoShape(&infos[i], batchSize); s != nil {
				shapes[infos[i].Name] = s
			}
		}
	}
	declared(gp.ValueInfo)
	declared(gp.Inputs)
	declared(gp.Outputs)

	for i := range gp.Initializers {
		init := &gp.Initializers[i]
		if _, ok := shapes[init.Name]; !ok {
			shapes[init.Name] = toInts(init.Dims)
		}
	}

	for _, id := range g.Order {
		op := g.Nodes[id].Op
		if len(op.Outputs) == 0 || op.Outputs[0] == "" {
			continue
		}
		if _, ok := shapes[op.Outputs[0]]; ok {
			continue
		}
		ins := make([][]int, len(op.Inputs))
		for i, name := range op.Inputs {
			ins[i] = shapes[name]
		}
		if s := inferShape(g, op, ins); s != nil {
			shapes[op.Outputs[0]] = s
		}
	}

	return shapes
}

func valueInfoShape(vi *ValueInfoProto, batchSize int) []int {
	if vi.Type == nil || vi.Type.TensorType == nil || vi.Type.TensorType.Shape == nil {
		return nil
	}
	dims := vi.Type.TensorType.Shape.Dims
	shape := make([]int, len(dims))
	for i, d := range dims {
		if d.DimValue > 0 {
			shape[i] = int(d.DimValue)
		} else {
			shape[i] = batchSize
		}
	}
	return shape
}

// inferShape propagates the output shape of a single node.
//
//nolint:gocyclo,cyclop // One case per supported operator.
func inferShape(g *Graph, op *operators.Node, ins [][]int) []int {
	in := func(i int) []int {
		if i < len(ins) {
			return ins[i]
		}
		return nil
	}
	x := in(0)

	switch op.OpType {
	case "Constant":
		if t := operators.GetAttrTensor(op, "value"); t != nil {
			return toInts(t.Dims)
		}
		return nil
	case "Gemm":
		a, b := in(0), in(1)
		if len(a) != 2 || len(b) != 2 {
			return nil
		}
		m, n := a[0], b[1]
		if operators.GetAttrInt(op, "transA", 0) != 0 {
			m = a[1]
		}
		if operators.GetAttrInt(op, "transB", 0) != 0 {
			n = b[0]
		}
		return []int{m, n}
	case "MatMul":
		a, b := in(0), in(1)
		if len(a) == 0 || len(b) < 2 {
			return nil
		}
		out := append([]int{}, a[:len(a)-1]...)
		return append(out, b[len(b)-1])
	case "Conv":
		w := in(1)
		if len(x) < 3 || len(w) != len(x) {
			return nil
		}
		sp := spatial(op, x[2:], w[2:])
		if sp == nil {
			return nil
		}
		return append([]int{x[0], w[0]}, sp...)
	case "MaxPool", "AveragePool":
		kernel := toInts(operators.GetAttrInts(op, "kernel_shape"))
		if len(x) < 3 || len(kernel) != len(x)-2 {
			return nil
		}
		sp := spatial(op, x[2:], kernel)
		if sp == nil {
			return nil
		}
		return append([]int{x[0], x[1]}, sp...)
	case "GlobalAveragePool", "GlobalMaxPool":
		if len(x) < 3 {
			return nil
		}
		out := []int{x[0], x[1]}
		for range x[2:] {
			out = append(out, 1)
		}
		return out
	case "Flatten":
		if x == nil {
			return nil
		}
		axis := int(operators.GetAttrInt(op, "axis", 1))
		if axis < 0 {
			axis += len(x)
		}
		if axis < 0 || axis > len(x) {
			return nil
		}
		return []int{product(x[:axis]), product(x[axis:])}
	case "Reshape":
		return reshape(x, constInts(g, op, 1))
	case "Pad":
		pads := toInts(operators.GetAttrInts(op, "pads"))
		if pads == nil {
			pads = toInts(constInts(g, op, 1))
		}
		if x == nil || len(pads) != 2*len(x) {
			return nil
		}
		out := make([]int, len(x))
		for i := range x {
			out[i] = x[i] + pads[i] + pads[i+len(x)]
		}
		return out
	case "Add", "Sub", "Mul", "Div", "Pow":
		return broadcast(in(0), in(1))
	case "Relu", "Sigmoid", "Tanh", "Softmax", "LogSoftmax", "Clip", "LeakyRelu", "Elu",
		"Identity", "Dropout", "BatchNormalization", "Neg", "Exp", "Log", "Sqrt":
		return x
	}
	return nil
}

// spatial computes output extents of a sliding-window op, or nil when
// the attributes do not describe a valid window.
func spatial(op *operators.Node, in, kernel []int) []int {
	n := len(in)
	strides := toInts(operators.GetAttrInts(op, "strides"))
	dilations := toInts(operators.GetAttrInts(op, "dilations"))
	pads := toInts(operators.GetAttrInts(op, "pads"))
	autoPad := operators.GetAttrString(op, "auto_pad", "NOTSET")
	ceil := operators.GetAttrInt(op, "ceil_mode", 0) != 0

	out := make([]int, n)
	for i := 0; i < n; i++ {
		s, d := 1, 1
		if i < len(strides) {
			s = strides[i]
		}
		if i < len(dilations) {
			d = dilations[i]
		}
		if s <= 0 || d <= 0 {
			return nil
		}
		if autoPad == "SAME_UPPER" || autoPad == "SAME_LOWER" {
			out[i] = (in[i] + s - 1) / s
			continue
		}
		padded := in[i]
		if len(pads) == 2*n {
			padded += pads[i] + pads[i+n]
		}
		span := padded - d*(kernel[i]-1) - 1
		if span < 0 {
			return nil
		}
		if ceil {
			out[i] = (span+s-1)/s + 1
		} else {
			out[i] = span/s + 1
		}
	}
	return out
}

func reshape(x []int, target []int64) []int {
	if x == nil || target == nil {
		return nil
	}
	out := make([]int, len(target))
	infer := -1
	known := 1
	for i, t := range target {
		switch {
		case t == 0 && i < len(x):
			out[i] = x[i]
		case t == -1 && infer < 0:
			infer = i
			continue
		case t > 0:
			out[i] = int(t)
		default:
			return nil
		}
		known *= out[i]
	}
	if infer >= 0 {
		if known == 0 {
			return nil
		}
		out[infer] = product(x) / known
	}
	return out
}

// constInts returns the integer payload of the node's idx-th input when it
// is produced by a Const or Constant node.
func constInts(g *Graph, op *operators.Node, idx int) []int64 {
	if idx >= len(op.Inputs) || op.Inputs[idx] == "" {
		return nil
	}
	name := op.Inputs[idx]
	for i := range g.Nodes {
		src := g.Nodes[i].Op
		if len(src.Outputs) == 0 || src.Outputs[0] != name {
			continue
		}
		if t := operators.GetAttrTensor(src, "value"); t != nil {
			return t.Ints
		}
		return nil
	}
	return nil
}

func broadcast(a, b []int) []int {
	if a == nil || b == nil {
		if b == nil {
			return a
		}
		return b
	}
	if len(b) > len(a) {
		a, b = b, a
	}
	out := append([]int{}, a...)
	off := len(a) - len(b)
	for i, d := range b {
		if out[off+i] == 1 {
			out[off+i] = d
		}
	}
	return out
}

func product(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}

func toInts(values []int64) []int {
	if values == nil {
		return nil
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
