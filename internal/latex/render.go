package latex

import (
	"strconv"
	"strings"
)

// Summation index letters for channel, height, width and batch axes.
var axisLetters = [...]string{"c", "h", "w", "b"}

// weightSymbol is the denominator symbol of the level-0 weight.
const weightSymbol = "w"

// renderer turns a DiffNode into LaTeX for one target weight.
type renderer struct {
	tpl    *templates
	layer  []int
	weight []int
	depth  *int

	// indices[l] is the summation index tuple introduced at level l.
	indices []string
}

func (e *Engine) newRenderer(coords Coordinates, depth *int) *renderer {
	coords = coords.normalize()
	return &renderer{tpl: &e.tpl, layer: coords.Layer, weight: coords.Weight, depth: depth}
}

// Render renders chain for the weight at coords. A non-nil depth collapses
// the summation at that nesting level into a single factor.
func (e *Engine) Render(chain DiffNode, coords Coordinates, depth *int) string {
	return e.newRenderer(coords, depth).render(chain, 0, "")
}

func (r *renderer) layerTuple() string {
	return "(" + joinInts(r.layer, ",") + ")"
}

func (r *renderer) weightTuple() string {
	return joinInts(r.weight, ",")
}

func (r *renderer) diff(upper, lower string) string {
	return r.tpl.diff.OnlyInputs(upper, lower)
}

func (r *renderer) under(base, index string) string {
	return r.tpl.under.OnlyInputs(base, index)
}

func (r *renderer) total() string {
	return r.tpl.err.OnlyInputs("total")
}

// weightOf returns the subscript naming the weight of the layer whose
// output symbol is sym.
func (r *renderer) weightOf(sym string) string {
	return r.tpl.weight.OnlyInputs(r.under(sym, r.layerTuple()), r.weightTuple())
}

// lhs is the left-hand side of the derivative of the weight of sym.
func (r *renderer) lhs(sym string) string {
	return r.diff(r.total(), r.under(weightSymbol, r.weightOf(sym)))
}

// p0p1 returns the subscripts of the numerator and denominator at level.
func (r *renderer) p0p1(level int, last string) (string, string) {
	if level == 0 || level > len(r.indices) {
		return r.layerTuple(), r.weightOf(last)
	}
	p0 := r.indices[level-1]
	if level > 1 {
		return p0, r.indices[level-2]
	}
	return p0, r.layerTuple()
}

func (r *renderer) render(n DiffNode, level int, pre string) string {
	switch n := n.(type) {
	case Sum:
		return r.renderSum(n, level, pre)
	case Chain:
		return r.renderChain(n, level, pre)
	case Weightable:
		return r.renderChain(Chain{Factors: []DiffNode{n}}, level, pre)
	case UnWeightable:
		return r.renderChain(Chain{Factors: []DiffNode{n}}, level, pre)
	}
	return ""
}

func (r *renderer) renderSum(n Sum, level int, pre string) string {
	if r.depth != nil && level == *r.depth {
		p0, _ := r.p0p1(level, pre)
		return r.diff(r.total(), r.under(pre, p0))
	}

	names := make([]string, len(n.Dims))
	for k := range n.Dims {
		letter := "d" + strconv.Itoa(k)
		if k < len(axisLetters) {
			letter = axisLetters[k]
		}
		names[k] = letter + "_" + strconv.Itoa(level)
	}
	tuple := strings.Join(names, ",")
	if len(names) > 1 {
		tuple = "(" + tuple + ")"
	}
	r.indices = append(r.indices[:min(level, len(r.indices))], tuple)

	inner := r.render(n.Inner, level+1, pre)

	var b strings.Builder
	last := len(n.Dims) - 1
	for k := 0; k < last; k++ {
		b.WriteString(r.tpl.sumW.ExceptSelf(nil, []string{names[k], strconv.Itoa(n.Dims[k] - 1)}))
	}
	if last >= 0 {
		b.WriteString(r.tpl.sum.ExceptSelf([]string{inner}, []string{names[last], strconv.Itoa(n.Dims[last] - 1)}))
	} else {
		b.WriteString(inner)
	}
	return b.String()
}

func (r *renderer) renderChain(n Chain, level int, pre string) string {
	if len(n.Factors) == 0 {
		return ""
	}
	toInsert := pre
	if toInsert == "" {
		toInsert = weightSymbol
	}
	d1 := leafSymbol(n.Factors, 1)
	d2 := leafSymbol(n.Factors, 2)

	switch head := n.Factors[0].(type) {
	case Weightable:
		return r.localChain(head.Symbol, level, toInsert)
	case UnWeightable:
		if len(n.Factors) < 2 {
			return r.localChain(head.Symbol, level, toInsert)
		}
		p0, p1 := r.p0p1(level, d1)
		a := r.under(head.Symbol, p0)
		b := r.under(d1, p0)
		return r.tpl.chain3.OnlyInputs(
			r.diff(r.total(), a),
			r.diff(a, b),
			r.diff(b, r.under(toInsert, p1)),
		)
	case Not:
		return ""
	}

	if len(n.Factors) < 2 {
		return r.render(n.Factors[0], level, pre)
	}
	first := r.render(n.Factors[0], level, d1)
	if len(n.Factors) > 2 {
		p0, p1 := r.p0p1(level, d2)
		a := r.under(d1, p0)
		b := r.under(d2, p0)
		return r.tpl.chain3.OnlyInputs(first, r.diff(a, b), r.diff(b, r.under(toInsert, p1)))
	}
	p0, p1 := r.p0p1(level, d1)
	return r.tpl.chain2.OnlyInputs(first, r.diff(r.under(d1, p0), r.under(toInsert, p1)))
}

// localChain renders the two factors of a layer differentiated directly.
func (r *renderer) localChain(sym string, level int, toInsert string) string {
	p0, p1 := r.p0p1(level, sym)
	a := r.under(sym, p0)
	return r.tpl.chain2.OnlyInputs(r.diff(r.total(), a), r.diff(a, r.under(toInsert, p1)))
}

// leafSymbol returns the symbol of factors[i] if it is a single layer.
func leafSymbol(factors []DiffNode, i int) string {
	if i >= len(factors) {
		return ""
	}
	switch f := factors[i].(type) {
	case Weightable:
		return f.Symbol
	case UnWeightable:
		return f.Symbol
	}
	return ""
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
