package operators

import (
	"sort"

	"github.com/born-ml/latexgen/internal/catalog"
)

// Registry maps ONNX operator types to variants.
type Registry struct {
	variants map[string]Variant
}

// NewRegistry creates a new operator registry with all supported operators.
func NewRegistry() *Registry {
	r := &Registry{
		variants: make(map[string]Variant),
	}

	r.registerLayers()
	r.registerActivations()
	r.registerAuxiliary()

	return r
}

func (r *Registry) registerLayers() {
	r.Register("Conv", Conv)
	r.Register("Gemm", Gemm)
	r.Register("MatMul", Gemm)
	r.Register("MaxPool", MaxPool)
	r.Register("AveragePool", SumPool)
	r.Register("GlobalAveragePool", SumPool)
}

func (r *Registry) registerActivations() {
	r.Register("Sigmoid", Sigmoid)
	for _, op := range []string{"Relu", "Tanh", "Softmax", "Clip", "LeakyRelu", "Elu"} {
		r.Register(op, Activation)
	}
}

func (r *Registry) registerAuxiliary() {
	r.Register(ConstOpType, Const)
	r.Register("Constant", Const)
	r.Register("Pad", Pad)
	for _, op := range []string{"Identity", "Dropout", "Flatten", "Reshape"} {
		r.Register(op, Dummy)
	}
	r.Register(SourceOpType, Source)
}

// Register maps an operator type to a variant, replacing any previous entry.
// Registration must happen before the registry is shared.
func (r *Registry) Register(opType string, v Variant) {
	r.variants[opType] = v
}

// Get returns the variant for an operator type.
func (r *Registry) Get(opType string) (Variant, bool) {
	v, ok := r.variants[opType]
	return v, ok
}

// Variant returns the variant for an operator type, or Undefined.
func (r *Registry) Variant(opType string) Variant {
	return r.variants[opType]
}

// SupportedOps returns all registered operator types, sorted.
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.variants))
	for op := range r.variants {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Adapt binds node to its variant and looks up its template. The qualified
// key "OpType.qualifier" is tried before the bare op type. ONNX Constant
// nodes share the Const templates.
func (r *Registry) Adapt(node *Node, lib *catalog.Library) Adapter {
	a := Adapter{Variant: r.Variant(node.OpType), Node: node}
	base := node.OpType
	if a.Variant == Const {
		base = ConstOpType
	}
	if q := node.Qualifier(); q != "" && q != SourceOpType {
		if m, ok := lib.Lookup(base + "." + q); ok {
			a.Template, a.Found = m, true
			return a
		}
	}
	a.Template, a.Found = lib.Lookup(base)
	return a
}
