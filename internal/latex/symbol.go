package latex

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/born-ml/latexgen/internal/catalog"
)

// Record is the symbol map entry of one graph node.
type Record struct {
	Index       int          `json:"index"`
	OpName      string       `json:"op_name"`
	Symbol      string       `json:"symbol"`
	ExtraSymbol string       `json:"extra_symbol"`
	Kind        catalog.Kind `json:"kind"`
	Inputs      []int        `json:"inputs"`
	Outputs     []int        `json:"outputs"`

	// InputShapeRef is the feature-map shape a convolution slides over.
	InputShapeRef []int `json:"input_shape_ref"`
	OutputShape   []int `json:"output_shape"`

	ForwardValue   string `json:"forward_value"`
	BackwardSymbol string `json:"backward_symbol"`
	BackwardValue  string `json:"backward_value"`

	// Local derivative of the node with respect to its first input.
	LocalBackwardSymbol string `json:"local_backward_symbol"`
	LocalBackwardValue  string `json:"local_backward_value"`
}

// Result is the output of a parse: the scenario and the dense symbol map.
type Result struct {
	Scenario  []int     `json:"senario"`
	SymbolMap []*Record `json:"symbol_map"`
}

// ReadResult decodes a Result previously written as JSON.
func ReadResult(r io.Reader) (*Result, error) {
	var res Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode symbol map: %w", err)
	}
	for i, rec := range res.SymbolMap {
		if rec == nil {
			return nil, fmt.Errorf("failed to decode symbol map: %w", &NodeError{Index: i, Err: ErrNodeOutOfRange})
		}
	}
	return &res, nil
}

// Len returns the number of records.
func (r *Result) Len() int {
	return len(r.SymbolMap)
}

// Record returns the record of node id, or nil if id is out of range.
func (r *Result) Record(id int) *Record {
	if id < 0 || id >= len(r.SymbolMap) {
		return nil
	}
	return r.SymbolMap[id]
}

// Terminal returns the last scenario entry.
func (r *Result) Terminal() (int, bool) {
	if len(r.Scenario) == 0 {
		return 0, false
	}
	return r.Scenario[len(r.Scenario)-1], true
}

// FormulaOf returns "symbol=forward" for node id.
func (r *Result) FormulaOf(id int) string {
	rec := r.Record(id)
	if rec == nil {
		return ""
	}
	return rec.Symbol + "=" + rec.ForwardValue
}

// BackwardOf returns "lhs=rhs" of the backward expansion of node id, or ""
// when the node has none.
func (r *Result) BackwardOf(id int) string {
	rec := r.Record(id)
	if rec == nil || rec.BackwardSymbol == "" {
		return ""
	}
	return rec.BackwardSymbol + "=" + rec.BackwardValue
}

// EraseSlash collapses doubled backslashes left by clients that escaped the
// LaTeX strings twice. Template-rendered values are left alone since
// templates such as Elu use \\ as a line break.
func (r *Result) EraseSlash() {
	fix := func(s *string) { *s = strings.ReplaceAll(*s, `\\`, `\`) }
	for _, rec := range r.SymbolMap {
		if rec == nil {
			continue
		}
		fix(&rec.Symbol)
		fix(&rec.BackwardSymbol)
		fix(&rec.BackwardValue)
		fix(&rec.LocalBackwardSymbol)
	}
}
