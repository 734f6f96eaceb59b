// Package main provides the latexgen CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	. "github.com/stevegt/goadapt"

	"github.com/born-ml/latexgen/latex"
	"github.com/born-ml/latexgen/onnx"
)

const version = "v0.1.0"

const usage = `latexgen - LaTeX forward and backward formulas for ONNX graphs

Usage:
  latexgen <command> [flags] <model.onnx>

Commands:
  version    Show version
  info       Summarize a model
  parse      Print the symbol map as JSON
  backward   Print the derivative with respect to one weight
  dot        Print the graph in Graphviz format

Run "latexgen <command> -h" for command flags.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "latexgen: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	defer Return(&err)

	if len(args) == 0 {
		fmt.Fprintf(stderr, "%s", usage)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "latexgen %s\n", version)
		return nil
	case "info":
		return runInfo(args[1:], stdout, stderr)
	case "parse":
		return runParse(ctx, args[1:], stdout, stderr)
	case "backward":
		return runBackward(ctx, args[1:], stdout, stderr)
	case "dot":
		return runDot(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintf(stdout, "%s", usage)
		return nil
	}
	fmt.Fprintf(stderr, "%s", usage)
	return fmt.Errorf("unknown command %q", args[0])
}

// common holds the flags every model-reading command accepts.
type common struct {
	verbose bool
	batch   int
	strict  bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "debug logging on stderr")
	fs.IntVar(&c.batch, "batch", 1, "size substituted for dynamic dimensions")
	fs.BoolVar(&c.strict, "strict", false, "reject operators without a registered variant")
}

func (c *common) engine(stderr io.Writer) (*latex.Engine, error) {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return latex.NewEngine(latex.WithLogger(logger))
}

func (c *common) load(path string) (*onnx.Graph, error) {
	opts := onnx.DefaultLoadOptions()
	opts.BatchSize = c.batch
	opts.StrictMode = c.strict
	return onnx.Load(path, opts)
}

// depthFlag is an optional non-negative integer.
type depthFlag struct {
	value *int
}

func (d *depthFlag) String() string {
	if d.value == nil {
		return ""
	}
	return strconv.Itoa(*d.value)
}

func (d *depthFlag) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("depth must be a non-negative integer")
	}
	d.value = latex.Cap(n)
	return nil
}

// parseInts parses a comma-separated index list such as "0,3,1".
func parseInts(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", p)
		}
		out[i] = n
	}
	return out, nil
}

func modelArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected one model path", fs.Name())
	}
	return fs.Arg(0), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func runInfo(args []string, stdout, stderr io.Writer) (err error) {
	defer Return(&err)

	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(stderr)
	Ck(fs.Parse(args))
	path, err := modelArg(fs)
	Ck(err)

	info, err := onnx.GetModelInfo(path)
	Ck(err)

	fmt.Fprintf(stdout, "Graph:    %s\n", info.GraphName)
	fmt.Fprintf(stdout, "Producer: %s %s\n", info.ProducerName, info.ProducerVersion)
	fmt.Fprintf(stdout, "IR:       %d\n", info.IRVersion)
	fmt.Fprintf(stdout, "Opset:    %d\n", info.OpsetVersion)
	fmt.Fprintf(stdout, "Inputs:   %s\n", strings.Join(info.InputNames, ", "))
	fmt.Fprintf(stdout, "Outputs:  %s\n", strings.Join(info.OutputNames, ", "))
	fmt.Fprintf(stdout, "Nodes:    %d\n", info.NodeCount)
	fmt.Fprintf(stdout, "Weights:  %d\n", info.WeightCount)

	ops := make([]string, 0, len(info.OpTypes))
	for op := range info.OpTypes {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(stdout, "  %-20s %d\n", op, info.OpTypes[op])
	}
	return nil
}

func runParse(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	defer Return(&err)

	var (
		c                   common
		depth               depthFlag
		mode                string
		backward            bool
		layerIdx, weightIdx string
	)
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c.register(fs)
	fs.StringVar(&mode, "mode", "brief", "forward expansion: brief or full")
	fs.Var(&depth, "depth", "recursion cap for full mode and backward rendering")
	fs.BoolVar(&backward, "backward", false, "render the backward expansion of every weightable layer")
	fs.StringVar(&layerIdx, "layer", "", "feature-map coordinates of the weight, e.g. 0,0,0")
	fs.StringVar(&weightIdx, "weight", "", "weight-tensor coordinates, e.g. 0,0")
	Ck(fs.Parse(args))
	path, err := modelArg(fs)
	Ck(err)

	m, err := latex.ParseMode(mode)
	Ck(err)
	e, err := c.engine(stderr)
	Ck(err)
	g, err := c.load(path)
	Ck(err)
	res, err := e.Parse(ctx, g, latex.ParseOptions{Mode: m, Depth: depth.value})
	Ck(err)

	if backward {
		var coords latex.Coordinates
		coords.Layer, err = parseInts(layerIdx)
		Ck(err)
		coords.Weight, err = parseInts(weightIdx)
		Ck(err)
		Ck(backwardAll(e, res, coords, depth.value))
	}
	return writeJSON(stdout, res)
}

// backwardAll runs the backward pass over res. Node-local failures are
// logged by the engine and tolerated as long as one layer was rendered.
func backwardAll(e *latex.Engine, res *latex.Result, coords latex.Coordinates, depth *int) error {
	err := e.BackwardPass(res, coords, depth)
	if err == nil {
		return nil
	}
	for _, rec := range res.SymbolMap {
		if rec != nil && rec.BackwardSymbol != "" {
			return nil
		}
	}
	return fmt.Errorf("no layer could be differentiated: %w", err)
}

func runBackward(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	defer Return(&err)

	var (
		c                   common
		depth               depthFlag
		node                int
		symbols             string
		layerIdx, weightIdx string
	)
	fs := flag.NewFlagSet("backward", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c.register(fs)
	fs.IntVar(&node, "node", -1, "id of the layer to differentiate")
	fs.Var(&depth, "depth", "collapse summations at this nesting level")
	fs.StringVar(&symbols, "symbols", "", "symbol map JSON written by parse, instead of a model")
	fs.StringVar(&layerIdx, "layer", "", "feature-map coordinates of the weight, e.g. 0,0,0")
	fs.StringVar(&weightIdx, "weight", "", "weight-tensor coordinates, e.g. 0,0")
	Ck(fs.Parse(args))

	req := latex.BackwardRequest{LayerNode: node, Depth: depth.value}
	req.LayerIdxs, err = parseInts(layerIdx)
	Ck(err)
	req.WeightIdxs, err = parseInts(weightIdx)
	Ck(err)

	e, err := c.engine(stderr)
	Ck(err)

	var res *latex.Result
	if symbols != "" {
		f, err := os.Open(symbols)
		Ck(err)
		defer f.Close()
		res, err = latex.ReadResult(f)
		Ck(err)
		res.EraseSlash()
	} else {
		path, err := modelArg(fs)
		Ck(err)
		g, err := c.load(path)
		Ck(err)
		res, err = e.Parse(ctx, g, latex.ParseOptions{})
		Ck(err)
	}

	ans, err := e.Backward(res, req)
	Ck(err)
	return writeJSON(stdout, ans)
}

func runDot(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	defer Return(&err)

	var c common
	fs := flag.NewFlagSet("dot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c.register(fs)
	Ck(fs.Parse(args))
	path, err := modelArg(fs)
	Ck(err)

	e, err := c.engine(stderr)
	Ck(err)
	g, err := c.load(path)
	Ck(err)
	res, err := e.Parse(ctx, g, latex.ParseOptions{})
	Ck(err)

	fmt.Fprintf(stdout, "%s\n", latex.Dot(res).String())
	return nil
}
