package latex

import (
	"errors"
	"fmt"

	"github.com/born-ml/latexgen/internal/catalog"
)

// Coordinates select one weight of a layer: a position in the layer's
// output feature map and a position in its weight tensor.
type Coordinates struct {
	Layer  []int `json:"layer_idxs"`
	Weight []int `json:"weight_idxs"`
}

// normalize defaults empty coordinates to the first element.
func (c Coordinates) normalize() Coordinates {
	if len(c.Layer) == 0 {
		c.Layer = []int{0}
	}
	if len(c.Weight) == 0 {
		c.Weight = []int{0}
	}
	return c
}

// BackwardRequest asks for the derivative of the loss with respect to one
// weight of one layer.
type BackwardRequest struct {
	LayerNode  int   `json:"layer_node"`
	LayerIdxs  []int `json:"layer_idxs"`
	WeightIdxs []int `json:"weight_idxs"`
	Depth      *int  `json:"depth,omitempty"`
}

// BackwardAnswer is the rendered derivative.
type BackwardAnswer struct {
	Node       int    `json:"node"`
	LayerIdxs  []int  `json:"layer_idxs"`
	WeightIdxs []int  `json:"weight_idxs"`
	Symbol     string `json:"symbol"`
	Value      string `json:"value"`
}

// BackwardPass renders the backward expansion of every weightable scenario
// entry and stores it in the symbol map. A failing node keeps empty
// backward fields and does not stop the pass; all failures are returned
// joined.
func (e *Engine) BackwardPass(res *Result, coords Coordinates, depth *int) error {
	coords = coords.normalize()
	var errs []error
	for _, id := range res.Scenario {
		rec := res.Record(id)
		if rec == nil || !rec.Kind.Weightable() {
			continue
		}
		lhs, rhs, err := e.derive(res, id, coords, depth)
		if err != nil {
			e.logger.Warn("backward expansion failed", "node", id, "op", rec.OpName, "err", err)
			errs = append(errs, asNodeError(rec, err))
			continue
		}
		rec.BackwardSymbol, rec.BackwardValue = lhs, rhs
	}
	return errors.Join(errs...)
}

// Backward answers a single backward request. The symbol map is not
// modified.
func (e *Engine) Backward(res *Result, req BackwardRequest) (*BackwardAnswer, error) {
	rec := res.Record(req.LayerNode)
	if rec == nil {
		return nil, fmt.Errorf("%w: %d", ErrNodeOutOfRange, req.LayerNode)
	}
	coords := Coordinates{Layer: req.LayerIdxs, Weight: req.WeightIdxs}.normalize()
	lhs, rhs, err := e.derive(res, req.LayerNode, coords, req.Depth)
	if err != nil {
		return nil, asNodeError(rec, err)
	}
	return &BackwardAnswer{
		Node:       req.LayerNode,
		LayerIdxs:  coords.Layer,
		WeightIdxs: coords.Weight,
		Symbol:     lhs,
		Value:      rhs,
	}, nil
}

// derive validates the target and renders both sides of its derivative.
func (e *Engine) derive(res *Result, id int, coords Coordinates, depth *int) (string, string, error) {
	rec := res.Record(id)
	if !rec.Kind.Weightable() {
		return "", "", ErrNonWeightableTarget
	}
	dims, err := reducedDims(rec)
	if err != nil {
		return "", "", err
	}
	if _, ok := res.Terminal(); !ok {
		return "", "", ErrNoTerminal
	}
	if err := checkIndices("layer", coords.Layer, dims); err != nil {
		return "", "", err
	}
	if shape := weightShape(res, rec); shape != nil {
		if err := checkIndices("weight", coords.Weight, shape); err != nil {
			return "", "", err
		}
	}

	chain, err := Expand(res, id)
	if err != nil {
		return "", "", err
	}
	r := e.newRenderer(coords, depth)
	return r.lhs(rec.Symbol), r.render(chain, 0, ""), nil
}

// checkIndices verifies idx addresses an element of the trailing axes of
// shape.
func checkIndices(what string, idx, shape []int) error {
	if len(idx) > len(shape) {
		return fmt.Errorf("%w: %s index %v has more axes than shape %v",
			ErrWeightIndexOutOfRange, what, idx, shape)
	}
	axes := shape[len(shape)-len(idx):]
	for k, i := range idx {
		if i < 0 || i >= axes[k] {
			return fmt.Errorf("%w: %s index %v outside shape %v",
				ErrWeightIndexOutOfRange, what, idx, shape)
		}
	}
	return nil
}

// weightShape returns the shape of the first weight input of rec, if any.
func weightShape(res *Result, rec *Record) []int {
	for _, in := range rec.Inputs {
		if w := res.Record(in); w != nil && w.Kind == catalog.Weight && len(w.OutputShape) > 0 {
			return w.OutputShape
		}
	}
	return nil
}

func asNodeError(rec *Record, err error) error {
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	return &NodeError{Index: rec.Index, OpName: rec.OpName, Err: err}
}
