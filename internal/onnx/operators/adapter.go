package operators

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/latexgen/internal/catalog"
)

// Adapter binds a graph node to its variant and catalog template.
type Adapter struct {
	Variant  Variant
	Node     *Node
	Template catalog.Match
	Found    bool // a catalog template exists for the node
}

// Qualifier returns the node's name qualifier.
func (a Adapter) Qualifier() string {
	return a.Node.Qualifier()
}

// OriginalKind returns the variant's default kind. Nodes without a catalog
// template are always Undefined.
func (a Adapter) OriginalKind() catalog.Kind {
	if !a.Found {
		return catalog.Undefined
	}
	return a.Variant.OriginalKind(a.Template.Kind)
}

// EffectiveKind returns the kind after the qualifier override.
func (a Adapter) EffectiveKind() catalog.Kind {
	if !a.Found {
		return catalog.Undefined
	}
	return EffectiveKind(a.Qualifier(), a.OriginalKind())
}

// Symbol returns the display symbol of the index-th node of kind.
func (a Adapter) Symbol(kind catalog.Kind, index int) string {
	return GenSymbol(kind, a.Template.Symbol, index)
}

// GenSymbol produces a display symbol for the index-th node of kind. The
// display argument is the catalog symbol, used where the kind has no fixed
// pattern.
func GenSymbol(kind catalog.Kind, display string, index int) string {
	switch kind {
	case catalog.Activation:
		return sub(orDefault(display, "h"), index)
	case catalog.Function, catalog.Cnn:
		return sub(orDefault(display, "f"), index)
	case catalog.MaxPool:
		return sub("MaxPool", index)
	case catalog.SumPool:
		return sub("SumPool", index)
	case catalog.Weight:
		return `\overline{` + sub("W", index) + "}"
	case catalog.Bias:
		return `\overline{` + sub("B", index) + "}"
	case catalog.Input:
		if index == 0 {
			return `\overline{Input}`
		}
		return `\overline{` + sub("Input", index) + "}"
	case catalog.Const, catalog.Base:
		return sub(orDefault(display, "C"), index)
	default:
		return ""
	}
}

func sub(base string, index int) string {
	return base + "_" + strconv.Itoa(index)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ForwardValue renders the node's forward template. inputs are the symbols
// (or expansions) of the node's inputs, self its own symbol and inShape the
// output shape of its first input, if known. Nodes without a template render
// as the empty string.
func (a Adapter) ForwardValue(inputs []string, self string, inShape []int) string {
	if !a.Found {
		return ""
	}
	return a.Template.Forward.Render(inputs, a.Attributes(inputs, inShape), self)
}

// LocalDiff renders the catalog derivative of the node with respect to its
// input, or "" when the catalog has none.
func (a Adapter) LocalDiff(inputs []string, self string, inShape []int) string {
	if !a.Found || a.Template.Entry.Diff == "" {
		return ""
	}
	return a.Template.Backward.Render(inputs, a.Attributes(inputs, inShape), self)
}

// Backward wraps upper and lower in a partial derivative.
func (a Adapter) Backward(upper, lower string) string {
	return `\frac{\partial ` + upper + `}{\partial ` + lower + `}`
}

// Attributes returns the strings substituted for @_N placeholders.
func (a Adapter) Attributes(inputs []string, inShape []int) []string {
	n := a.Node
	switch a.Variant {
	case MaxPool:
		kernel := GetAttrInts(n, "kernel_shape")
		strides := GetAttrInts(n, "strides")
		if strides == nil {
			strides = make([]int64, len(kernel))
			for i := range strides {
				strides[i] = 1
			}
		}
		return []string{joinInts(kernel, `\times `), joinInts(strides, ",")}
	case SumPool:
		var kernel []int64
		if n.OpType == "GlobalAveragePool" {
			if len(inShape) > 2 {
				for _, d := range inShape[2:] {
					kernel = append(kernel, int64(d))
				}
			}
		} else {
			kernel = GetAttrInts(n, "kernel_shape")
		}
		return poolBounds(kernel)
	case Activation:
		switch n.OpType {
		case "Clip":
			return []string{
				attrOrInput(n, "min", inputs, 1, `-\infty`),
				attrOrInput(n, "max", inputs, 2, `\infty`),
			}
		case "LeakyRelu":
			return []string{formatFloat(GetAttrFloat(n, "alpha", 0.01))}
		case "Elu":
			return []string{formatFloat(GetAttrFloat(n, "alpha", 1))}
		}
	case Pad:
		if pads := GetAttrInts(n, "pads"); pads != nil {
			return []string{joinInts(pads, ",")}
		}
		if len(inputs) > 1 {
			return []string{inputs[1]}
		}
		return nil
	}
	attrs := make([]string, len(n.Attributes))
	for i := range n.Attributes {
		attrs[i] = FormatAttribute(&n.Attributes[i])
	}
	return attrs
}

// poolBounds returns the upper summation bounds of the first two kernel axes
// followed by the kernel volume.
func poolBounds(kernel []int64) []string {
	if len(kernel) == 0 {
		return nil
	}
	bounds := []string{"0", "0"}
	volume := int64(1)
	for i, k := range kernel {
		if i < len(bounds) {
			bounds[i] = strconv.FormatInt(k-1, 10)
		}
		volume *= k
	}
	return append(bounds, strconv.FormatInt(volume, 10))
}

func attrOrInput(n *Node, name string, inputs []string, idx int, def string) string {
	if HasAttr(n, name) {
		return formatFloat(GetAttrFloat(n, name, 0))
	}
	if idx < len(inputs) && inputs[idx] != "" {
		return inputs[idx]
	}
	return def
}

// FormatAttribute renders an attribute value as LaTeX text.
func FormatAttribute(attr *Attribute) string {
	switch attr.Type {
	case 1: // FLOAT
		return formatFloat(attr.F)
	case 2: // INT
		return strconv.FormatInt(attr.I, 10)
	case 3: // STRING
		return string(attr.S)
	case 4: // TENSOR
		if attr.T != nil {
			return "(" + joinInts(attr.T.Dims, ",") + ")"
		}
		return ""
	case 6: // FLOATS
		parts := make([]string, len(attr.Floats))
		for i, f := range attr.Floats {
			parts[i] = formatFloat(f)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case 7: // INTS
		return "(" + joinInts(attr.Ints, ",") + ")"
	}
	// Untyped attributes: infer from the populated field.
	switch {
	case len(attr.Ints) > 0:
		return "(" + joinInts(attr.Ints, ",") + ")"
	case len(attr.S) > 0:
		return string(attr.S)
	case attr.F != 0:
		return formatFloat(attr.F)
	default:
		return strconv.FormatInt(attr.I, 10)
	}
}

func joinInts(values []int64, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, sep)
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func (a Adapter) String() string {
	return fmt.Sprintf("%s(%s)", a.Variant, a.Node.OpType)
}
