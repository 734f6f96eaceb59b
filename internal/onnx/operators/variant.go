package operators

import "github.com/born-ml/latexgen/internal/catalog"

// Variant is the closed set of operator families the engine distinguishes.
type Variant uint8

// Operator variants.
const (
	Undefined  Variant = iota // fallback for unregistered op types
	Conv                      // Conv
	Gemm                      // Gemm, MatMul
	Sigmoid                   // Sigmoid
	Activation                // Relu, Tanh, Softmax, Clip, LeakyRelu, Elu
	MaxPool                   // MaxPool
	SumPool                   // AveragePool, GlobalAveragePool
	Const                     // Const, Constant
	Pad                       // Pad
	Dummy                     // Identity, Dropout, Flatten, Reshape
	Source                    // graph inputs
)

var variantNames = [...]string{
	Undefined:  "Undefined",
	Conv:       "Conv",
	Gemm:       "Gemm",
	Sigmoid:    "Sigmoid",
	Activation: "Activation",
	MaxPool:    "MaxPool",
	SumPool:    "SumPool",
	Const:      "Const",
	Pad:        "Pad",
	Dummy:      "Dummy",
	Source:     "Source",
}

func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return variantNames[Undefined]
}

// OriginalKind returns the kind a node of this variant has before any
// name-based override. The generic Activation and Undefined variants have no
// fixed kind and return fallback, which is the catalog's kind for the op.
func (v Variant) OriginalKind(fallback catalog.Kind) catalog.Kind {
	switch v {
	case Conv:
		return catalog.Cnn
	case Gemm:
		return catalog.Function
	case Sigmoid:
		return catalog.Activation
	case MaxPool:
		return catalog.MaxPool
	case SumPool:
		return catalog.SumPool
	case Const:
		return catalog.Const
	case Source:
		return catalog.Input
	case Pad, Dummy:
		return catalog.Undefined
	default:
		return fallback
	}
}

// EffectiveKind applies the qualifier override on top of original.
func EffectiveKind(qualifier string, original catalog.Kind) catalog.Kind {
	switch qualifier {
	case "weight":
		return catalog.Weight
	case "bias":
		return catalog.Bias
	case SourceOpType:
		return catalog.Input
	default:
		return original
	}
}
