// Package latex renders ONNX graphs as LaTeX: a forward formula for every
// node and, for every weightable layer, the chain-rule expansion of the
// derivative of the total error with respect to one of its weights.
//
// # Example Usage
//
//	import (
//	    "github.com/born-ml/latexgen/latex"
//	    "github.com/born-ml/latexgen/onnx"
//	)
//
//	engine, err := latex.NewEngine()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	graph, err := onnx.Load("mlp.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := engine.Parse(ctx, graph, latex.ParseOptions{Mode: latex.Brief})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := engine.BackwardPass(res, latex.Coordinates{}, nil); err != nil {
//	    log.Println(err) // failures are per node; other nodes are rendered
//	}
//	for _, id := range res.Scenario {
//	    fmt.Println(res.FormulaOf(id))
//	    fmt.Println(res.BackwardOf(id))
//	}
//
// # Symbols
//
// Activations are numbered h_0, h_1, ...; functional layers f_0, f_1, ...;
// pooling layers MaxPool_i and SumPool_i share the functional counter.
// Weights and biases are \overline{W_1}, \overline{B_1}, ... and graph
// inputs \overline{Input}.
package latex

import (
	"io"
	"log/slog"

	"github.com/emicklei/dot"

	internallatex "github.com/born-ml/latexgen/internal/latex"
)

// Engine turns loaded graphs into symbol maps.
type Engine = internallatex.Engine

// Option configures an Engine.
type Option = internallatex.Option

// Mode selects how forward strings are expanded.
type Mode = internallatex.Mode

// Forward expansion modes.
const (
	Brief = internallatex.Brief
	Full  = internallatex.Full
)

// ParseOptions configures a parse.
type ParseOptions = internallatex.ParseOptions

// Result is the scenario and symbol map of a parsed graph.
type Result = internallatex.Result

// Record is the symbol map entry of one node.
type Record = internallatex.Record

// Coordinates select one weight of a layer.
type Coordinates = internallatex.Coordinates

// BackwardRequest asks for the derivative with respect to one weight.
type BackwardRequest = internallatex.BackwardRequest

// BackwardAnswer is a rendered derivative.
type BackwardAnswer = internallatex.BackwardAnswer

// NodeError reports a failure tied to a single node.
type NodeError = internallatex.NodeError

// Errors reported by the engine.
var (
	ErrUnknownOperator       = internallatex.ErrUnknownOperator
	ErrShapeMissing          = internallatex.ErrShapeMissing
	ErrWeightIndexOutOfRange = internallatex.ErrWeightIndexOutOfRange
	ErrNonWeightableTarget   = internallatex.ErrNonWeightableTarget
	ErrNoTerminal            = internallatex.ErrNoTerminal
	ErrNodeOutOfRange        = internallatex.ErrNodeOutOfRange
)

// NewEngine creates an engine with the embedded template library.
func NewEngine(opts ...Option) (*Engine, error) {
	return internallatex.NewEngine(opts...)
}

// WithLogger sets the engine logger. Engines are silent by default.
func WithLogger(l *slog.Logger) Option {
	return internallatex.WithLogger(l)
}

// ParseMode converts "brief" or "full" to a Mode.
func ParseMode(s string) (Mode, error) {
	return internallatex.ParseMode(s)
}

// Cap returns a depth cap of n.
func Cap(n int) *int {
	return internallatex.Cap(n)
}

// ReadResult decodes a JSON symbol map written by an earlier parse.
func ReadResult(r io.Reader) (*Result, error) {
	return internallatex.ReadResult(r)
}

// Dot draws a symbol map as a Graphviz graph.
func Dot(res *Result) *dot.Graph {
	return internallatex.Dot(res)
}
