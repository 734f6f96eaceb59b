package latex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/born-ml/latexgen/internal/catalog"
	"github.com/born-ml/latexgen/internal/onnx"
	"github.com/born-ml/latexgen/internal/onnx/operators"
)

// Auxiliary templates the renderer cannot work without.
var requiredTemplates = []string{
	"_Diff", "_Sum", "_Sum_w", "_Chain2", "_Chain3", "_Under", "_Weight", "Error",
}

// Mode selects how forward strings are expanded.
type Mode uint8

// Forward expansion modes.
const (
	// Brief substitutes the symbols of a node's inputs.
	Brief Mode = iota
	// Full recursively substitutes the forward strings of the inputs.
	Full
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Full {
		return "full"
	}
	return "brief"
}

// ParseMode converts "brief" or "full" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "brief", "":
		return Brief, nil
	case "full":
		return Full, nil
	}
	return Brief, fmt.Errorf("unknown mode %q", s)
}

// ParseOptions configures a parse.
type ParseOptions struct {
	Mode Mode
	// Depth caps recursion in Full mode. Nil means unbounded.
	Depth *int
}

// Cap returns a pointer to n, for use as a depth cap.
func Cap(n int) *int {
	return &n
}

// templates holds the parsed auxiliary skeletons.
type templates struct {
	diff, sum, sumW, chain2, chain3, under, weight, err catalog.Skeleton
}

// Engine turns loaded graphs into symbol maps. It is immutable after
// construction and safe for concurrent use.
type Engine struct {
	lib      *catalog.Library
	registry *operators.Registry
	logger   *slog.Logger
	tpl      templates
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLibrary replaces the embedded template library.
func WithLibrary(lib *catalog.Library) Option {
	return func(e *Engine) {
		e.lib = lib
	}
}

// WithRegistry replaces the default operator registry. A graph loaded with
// its own registry keeps using that one.
func WithRegistry(r *operators.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// NewEngine creates an engine. It fails if the template library lacks any
// of the auxiliary templates used to render derivatives.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		registry: operators.NewRegistry(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.lib == nil {
		lib, err := catalog.DefaultLibrary()
		if err != nil {
			return nil, err
		}
		e.lib = lib
	}
	if err := e.lib.Require(requiredTemplates...); err != nil {
		return nil, err
	}

	skel := func(key string) catalog.Skeleton {
		s, _ := e.lib.Skeleton(key)
		return s
	}
	e.tpl = templates{
		diff:   skel("_Diff"),
		sum:    skel("_Sum"),
		sumW:   skel("_Sum_w"),
		chain2: skel("_Chain2"),
		chain3: skel("_Chain3"),
		under:  skel("_Under"),
		weight: skel("_Weight"),
		err:    skel("Error"),
	}
	return e, nil
}

// Library returns the engine's template library.
func (e *Engine) Library() *catalog.Library {
	return e.lib
}

// ParseFile loads an ONNX model from path and parses it.
func (e *Engine) ParseFile(ctx context.Context, path string, opts ParseOptions, load ...onnx.LoadOptions) (*Result, error) {
	g, err := onnx.Load(path, load...)
	if err != nil {
		return nil, err
	}
	return e.Parse(ctx, g, opts)
}

// ParseReader loads an ONNX model from r and parses it.
func (e *Engine) ParseReader(ctx context.Context, r io.Reader, opts ParseOptions, load ...onnx.LoadOptions) (*Result, error) {
	g, err := onnx.LoadFromReader(r, load...)
	if err != nil {
		return nil, err
	}
	return e.Parse(ctx, g, opts)
}

// Parse walks g in topological order and builds its symbol map and
// scenario. Nodes whose operator has no template are kept with an empty
// symbol and kind Undefined. The context is checked between nodes; on
// cancellation the partial map is dropped.
func (e *Engine) Parse(ctx context.Context, g *onnx.Graph, opts ParseOptions) (*Result, error) {
	registry := e.registry
	if g.Registry != nil {
		registry = g.Registry
	}
	s := &parseState{
		e:        e,
		g:        g,
		registry: registry,
		records:  make([]*Record, g.Len()),
		adapters: make([]operators.Adapter, g.Len()),
	}
	if err := s.forward(ctx, opts); err != nil {
		return nil, err
	}
	return &Result{Scenario: s.scenario, SymbolMap: s.records}, nil
}

// counters number freshly created symbols. Activation and function symbols
// start at 0, weight and bias symbols at 1.
type counters struct {
	activation, function, weight, bias, constant, input int
}

// next returns the index for the next symbol of kind.
func (c *counters) next(kind catalog.Kind) int {
	var n *int
	switch kind {
	case catalog.Activation:
		n = &c.activation
	case catalog.Function, catalog.Cnn, catalog.MaxPool, catalog.SumPool:
		n = &c.function
	case catalog.Weight:
		c.weight++
		return c.weight
	case catalog.Bias:
		c.bias++
		return c.bias
	case catalog.Const, catalog.Base:
		n = &c.constant
	case catalog.Input:
		n = &c.input
	default:
		return 0
	}
	i := *n
	*n++
	return i
}

// parseState is everything one parse owns.
type parseState struct {
	e        *Engine
	g        *onnx.Graph
	registry *operators.Registry

	records  []*Record
	adapters []operators.Adapter
	scenario []int
	counters counters
}

// configure assigns the symbol and kind of node id. Later calls are no-ops.
func (s *parseState) configure(id int) {
	if s.records[id] != nil {
		return
	}
	node := s.g.Node(id)
	a := s.registry.Adapt(node.Op, s.e.lib)
	s.adapters[id] = a

	kind := a.EffectiveKind()
	rec := &Record{
		Index:   id,
		OpName:  node.Op.OpType,
		Kind:    kind,
		Inputs:  append([]int{}, node.Inputs...),
		Outputs: append([]int{}, node.Successors...),
	}
	if !a.Found {
		if a.Variant != operators.Dummy {
			s.e.logger.Warn("operator has no template",
				"node", id, "op", node.Op.OpType, "name", node.Op.Name, "err", ErrUnknownOperator)
		}
		s.records[id] = rec
		return
	}
	rec.Symbol = a.Symbol(kind, s.counters.next(kind))
	if q := a.Qualifier(); q != "" && strings.HasSuffix(a.Template.Key, "."+q) {
		rec.ExtraSymbol = q
	}
	s.records[id] = rec
	s.e.logger.Debug("configured node",
		"node", id, "op", rec.OpName, "kind", kind.String(), "symbol", rec.Symbol)
}
