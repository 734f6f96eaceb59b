package latex

import (
	"fmt"
	"strings"

	"github.com/born-ml/latexgen/internal/catalog"
)

// DiffNode is one element of a chain-rule expansion.
type DiffNode interface {
	diffNode()
	fmt.Stringer
}

// Weightable is a layer with trainable parameters.
type Weightable struct {
	ID     int
	Symbol string
}

// UnWeightable is a layer without trainable parameters.
type UnWeightable struct {
	ID     int
	Symbol string
}

// Sum wraps Inner in one summation per entry of Dims.
type Sum struct {
	Inner DiffNode
	Dims  []int
}

// Chain is an ordered product of factors. Factor 0 is the composed
// downstream part; the last factor is the layer being differentiated.
type Chain struct {
	Factors []DiffNode
}

// Not marks the absence of a chain.
type Not struct{}

func (Weightable) diffNode()   {}
func (UnWeightable) diffNode() {}
func (Sum) diffNode()          {}
func (Chain) diffNode()        {}
func (Not) diffNode()          {}

func (n Weightable) String() string   { return fmt.Sprintf("W(%d,%s)", n.ID, n.Symbol) }
func (n UnWeightable) String() string { return fmt.Sprintf("U(%d,%s)", n.ID, n.Symbol) }
func (n Sum) String() string          { return fmt.Sprintf("Sum(%v,%v)", n.Inner, n.Dims) }
func (Not) String() string            { return "Not" }

func (n Chain) String() string {
	parts := make([]string, len(n.Factors))
	for i, f := range n.Factors {
		parts[i] = f.String()
	}
	return "Chain[" + strings.Join(parts, " ") + "]"
}

// Expand builds the chain-rule expansion of node start down to the
// terminal node of res, following the first successor of every node.
func Expand(res *Result, start int) (DiffNode, error) {
	end, ok := res.Terminal()
	if !ok {
		return Not{}, ErrNoTerminal
	}
	if res.Record(start) == nil {
		return Not{}, fmt.Errorf("%w: %d", ErrNodeOutOfRange, start)
	}
	x := &expander{res: res, end: end, budget: res.Len()}
	return x.expand(start)
}

type expander struct {
	res    *Result
	end    int
	budget int // remaining recursion steps, bounds malformed maps
}

func (x *expander) expand(id int) (DiffNode, error) {
	x.budget--
	if x.budget < 0 {
		return Not{}, fmt.Errorf("%w: chain from node %d does not reach node %d", ErrNoTerminal, id, x.end)
	}

	self := x.diffNode(id)
	next, ok := x.successor(id)
	if id == x.end || !ok {
		return Chain{Factors: []DiffNode{self}}, nil
	}

	if x.weightable(next) {
		sum, err := x.sum(next)
		if err != nil {
			return Not{}, err
		}
		return Chain{Factors: []DiffNode{sum, self}}, nil
	}

	nn := x.diffNode(next)
	after, ok := x.successor(next)
	if next == x.end || !ok {
		return Chain{Factors: []DiffNode{nn, self}}, nil
	}
	sum, err := x.sum(after)
	if err != nil {
		return Not{}, err
	}
	return Chain{Factors: []DiffNode{sum, nn, self}}, nil
}

// sum expands id and wraps the result in a summation over its output axes.
func (x *expander) sum(id int) (DiffNode, error) {
	inner, err := x.expand(id)
	if err != nil {
		return Not{}, err
	}
	dims, err := x.dims(id)
	if err != nil {
		return Not{}, err
	}
	return Sum{Inner: inner, Dims: dims}, nil
}

func (x *expander) diffNode(id int) DiffNode {
	rec := x.res.Record(id)
	if rec.Kind.Weightable() {
		return Weightable{ID: id, Symbol: rec.Symbol}
	}
	return UnWeightable{ID: id, Symbol: rec.Symbol}
}

func (x *expander) weightable(id int) bool {
	return x.res.Record(id).Kind.Weightable()
}

// successor returns the first consumer of id. Nodes without a symbol, such
// as Flatten or Reshape, are stepped over as the forward strings do.
func (x *expander) successor(id int) (int, bool) {
	for range x.res.Len() {
		outs := x.res.Record(id).Outputs
		if len(outs) == 0 || x.res.Record(outs[0]) == nil {
			return 0, false
		}
		id = outs[0]
		if !x.hidden(id) {
			return id, true
		}
	}
	return 0, false
}

func (x *expander) hidden(id int) bool {
	rec := x.res.Record(id)
	return rec.Kind == catalog.Undefined && rec.Symbol == ""
}

// dims returns the output shape of id without its batch axis. Single-axis
// shapes are kept as they are.
func (x *expander) dims(id int) ([]int, error) {
	rec := x.res.Record(id)
	return reducedDims(rec)
}

func reducedDims(rec *Record) ([]int, error) {
	shape := rec.OutputShape
	switch len(shape) {
	case 0:
		return nil, &NodeError{Index: rec.Index, OpName: rec.OpName, Err: ErrShapeMissing}
	case 1:
		return append([]int(nil), shape...), nil
	}
	return append([]int(nil), shape[1:]...), nil
}
