package latex

import (
	"context"

	"github.com/born-ml/latexgen/internal/catalog"
	"github.com/born-ml/latexgen/internal/onnx/operators"
)

// forward fills the symbol map in topological order.
func (s *parseState) forward(ctx context.Context, opts ParseOptions) error {
	depth := -1
	if opts.Depth != nil {
		depth = max(*opts.Depth, 0)
	}

	for _, id := range s.g.Order {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.configure(id)
		node := s.g.Node(id)
		for _, in := range node.Inputs {
			s.configure(in)
		}

		rec := s.records[id]
		inShape := s.g.InputShape(id)
		if rec.Kind == catalog.Cnn {
			rec.InputShapeRef = cloneShape(inShape)
		}
		rec.OutputShape = cloneShape(node.Shape)

		a := s.adapters[id]
		brief := s.briefInputs(id)
		switch opts.Mode {
		case Full:
			children := make([]string, len(node.Inputs))
			for i, in := range node.Inputs {
				children[i] = s.expand(in, depth)
			}
			rec.ForwardValue = a.ForwardValue(children, rec.Symbol, inShape)
		default:
			rec.ForwardValue = a.ForwardValue(brief, rec.Symbol, inShape)
		}

		if rec.Kind.Layer() {
			if len(brief) > 0 {
				rec.LocalBackwardSymbol = a.Backward(rec.Symbol, brief[0])
				rec.LocalBackwardValue = a.LocalDiff(brief, rec.Symbol, inShape)
			}
			s.scenario = append(s.scenario, id)
		}
	}
	return nil
}

// briefInputs returns the display symbols of the inputs of node id.
func (s *parseState) briefInputs(id int) []string {
	ins := s.g.Node(id).Inputs
	out := make([]string, len(ins))
	for i, in := range ins {
		out[i] = s.display(in)
	}
	return out
}

// display returns the symbol shown for node id when it is used as an
// input. Shape-only nodes without a template show their first input.
func (s *parseState) display(id int) string {
	for s.passThrough(id) {
		id = s.g.Node(id).Inputs[0]
	}
	return s.records[id].Symbol
}

// expand renders the forward string of node id with its inputs expanded
// depth more levels. A negative depth expands down to the leaves.
func (s *parseState) expand(id, depth int) string {
	if s.passThrough(id) {
		return s.expand(s.g.Node(id).Inputs[0], depth)
	}
	node := s.g.Node(id)
	rec := s.records[id]
	if len(node.Inputs) == 0 || depth == 0 {
		return rec.Symbol
	}
	children := make([]string, len(node.Inputs))
	for i, in := range node.Inputs {
		children[i] = s.expand(in, depth-1)
	}
	return s.adapters[id].ForwardValue(children, rec.Symbol, s.g.InputShape(id))
}

func (s *parseState) passThrough(id int) bool {
	a := s.adapters[id]
	return !a.Found && a.Variant == operators.Dummy && len(s.g.Node(id).Inputs) > 0
}

func cloneShape(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	return append([]int(nil), shape...)
}
