package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind classifies a graph node for symbol assignment and chain-rule expansion.
type Kind uint8

// Node kinds.
const (
	Undefined Kind = iota
	Activation
	Function
	Cnn
	MaxPool
	SumPool
	Weight
	Bias
	Input
	Const
	Base
)

var kindNames = [...]string{
	Undefined:  "Undefined",
	Activation: "Activation",
	Function:   "Function",
	Cnn:        "Cnn",
	MaxPool:    "MaxPool",
	SumPool:    "SumPool",
	Weight:     "Weight",
	Bias:       "Bias",
	Input:      "Input",
	Const:      "Const",
	Base:       "Base",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind converts a kind name back to a Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return Undefined, fmt.Errorf("unknown kind %q", name)
}

// Weightable reports whether a node of this kind carries trainable parameters.
// Only weightable nodes start a backward expansion.
func (k Kind) Weightable() bool {
	switch k {
	case Function, Cnn, MaxPool, SumPool:
		return true
	default:
		return false
	}
}

// Layer reports whether a node of this kind is a computational layer that
// belongs in the parse scenario.
func (k Kind) Layer() bool {
	return k == Activation || k.Weightable()
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(name))
}
