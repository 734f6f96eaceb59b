package operators

import "strings"

// ONNX data types (TensorProto.DataType).
const (
	TensorProtoUndefined = 0
	TensorProtoFloat     = 1 // float32
	TensorProtoInt32     = 6 // int32
	TensorProtoInt64     = 7 // int64
)

// SourceOpType is the operator type given to synthetic graph-input nodes.
const SourceOpType = "Source"

// ConstOpType is the operator type given to synthetic initializer nodes.
const ConstOpType = "Const"

// Node represents an ONNX operation node.
// This is a local copy of the relevant fields from onnx.NodeProto
// to avoid import cycles between onnx and operators packages.
type Node struct {
	Name       string      // Node name (optional)
	OpType     string      // Operation type (e.g., "Conv", "MatMul", "Relu")
	Inputs     []string    // Input tensor names
	Outputs    []string    // Output tensor names
	Attributes []Attribute // Operation attributes
	Domain     string      // Custom domain (empty for default)
}

// Attribute represents a node attribute.
type Attribute struct {
	Name    string    // Attribute name
	Type    int32     // Attribute type
	F       float32   // FLOAT value
	I       int64     // INT value
	S       []byte    // STRING value
	T       *Tensor   // TENSOR value
	Floats  []float32 // FLOATS array
	Ints    []int64   // INTS array
	Strings [][]byte  // STRINGS array
}

// Tensor is the shape and integer payload of a constant tensor. Float
// payloads are never needed symbolically and are not kept.
type Tensor struct {
	DataType int32
	Dims     []int64
	Ints     []int64 // int32/int64 payload, if any
}

// Qualifier returns the suffix that reclassifies a node: the part of the name
// after the last '.', or "Source" for graph inputs.
func (n *Node) Qualifier() string {
	if n.OpType == SourceOpType {
		return SourceOpType
	}
	if i := strings.LastIndexByte(n.Name, '.'); i >= 0 {
		return n.Name[i+1:]
	}
	return ""
}

// HasAttr reports whether the node carries the named attribute.
func HasAttr(node *Node, name string) bool {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return true
		}
	}
	return false
}

// GetAttrInt returns an integer attribute or default value.
func GetAttrInt(node *Node, name string, defaultVal int64) int64 {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return node.Attributes[i].I
		}
	}
	return defaultVal
}

// GetAttrInts returns an integer array attribute.
func GetAttrInts(node *Node, name string) []int64 {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return node.Attributes[i].Ints
		}
	}
	return nil
}

// GetAttrFloat returns a float attribute or default value.
func GetAttrFloat(node *Node, name string, defaultVal float32) float32 {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return node.Attributes[i].F
		}
	}
	return defaultVal
}

// GetAttrString returns a string attribute or default value.
func GetAttrString(node *Node, name, defaultVal string) string {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return string(node.Attributes[i].S)
		}
	}
	return defaultVal
}

// GetAttrTensor returns a tensor attribute, or nil.
func GetAttrTensor(node *Node, name string) *Tensor {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return node.Attributes[i].T
		}
	}
	return nil
}
