package onnx

// Decoded ONNX messages. Only the fields the graph builder and the model
// summary read are kept; everything else on the wire is skipped. Field
// numbers follow onnx.proto.

// ModelProto is the top-level model message.
type ModelProto struct {
	IRVersion       int64               // 1
	ProducerName    string              // 2
	ProducerVersion string              // 3
	Domain          string              // 4
	ModelVersion    int64               // 5
	DocString       string              // 6
	Graph           *GraphProto         // 7
	OpsetImport     []OperatorSetID     // 8
	MetadataProps   []StringStringEntry // 14
}

// GraphProto is the computation graph.
type GraphProto struct {
	Nodes        []NodeProto      // 1
	Name         string           // 2
	Initializers []TensorProto    // 5
	DocString    string           // 10
	Inputs       []ValueInfoProto // 11
	Outputs      []ValueInfoProto // 12
	ValueInfo    []ValueInfoProto // 13, shapes of intermediate tensors
}

// NodeProto is one operator application.
type NodeProto struct {
	Inputs     []string         // 1, "" marks an omitted optional input
	Outputs    []string         // 2
	Name       string           // 3
	OpType     string           // 4
	Attributes []AttributeProto // 5
	DocString  string           // 6
	Domain     string           // 7
}

// TensorProto is an initializer or a tensor-valued attribute. Payloads are
// kept only as far as shape inference needs them.
type TensorProto struct {
	Dims      []int64   // 1
	DataType  int32     // 2
	FloatData []float32 // 4
	Int32Data []int32   // 5
	Int64Data []int64   // 7
	Name      string    // 8
	RawData   []byte    // 9
	DocString string    // 12
}

// ValueInfoProto names a tensor and declares its type.
type ValueInfoProto struct {
	Name      string     // 1
	Type      *TypeProto // 2
	DocString string     // 3
}

// TypeProto holds the tensor type; other value kinds are skipped.
type TypeProto struct {
	TensorType *TensorTypeProto // 1
}

// TensorTypeProto is an element type and an optional shape.
type TensorTypeProto struct {
	ElemType int32             // 1
	Shape    *TensorShapeProto // 2
}

// TensorShapeProto lists the dimensions of a tensor.
type TensorShapeProto struct {
	Dims []DimensionProto // 1
}

// DimensionProto is either a fixed size or a symbolic name such as "batch".
type DimensionProto struct {
	DimValue int64  // 1
	DimParam string // 2
}

// AttributeProto is a named operator attribute.
type AttributeProto struct {
	Name      string       // 1
	F         float32      // 2
	I         int64        // 3
	S         []byte       // 4
	T         *TensorProto // 5, e.g. the value of a Constant node
	Floats    []float32    // 7
	Ints      []int64      // 8
	Strings   [][]byte     // 9
	DocString string       // 13
	Type      int32        // 20
}

// OperatorSetID is one opset import.
type OperatorSetID struct {
	Domain  string // 1, empty for the default domain
	Version int64  // 2
}

// StringStringEntry is a metadata key-value pair.
type StringStringEntry struct {
	Key   string // 1
	Value string // 2
}

// Element types (TensorProto.DataType) the loader distinguishes.
const (
	TensorProtoUndefined = 0
	TensorProtoFloat     = 1
	TensorProtoInt32     = 6
	TensorProtoInt64     = 7
)

// Attribute types (AttributeProto.Type).
const (
	AttributeProtoUndefined = 0
	AttributeProtoFloat     = 1
	AttributeProtoInt       = 2
	AttributeProtoString    = 3
	AttributeProtoTensor    = 4
	AttributeProtoFloats    = 6
	AttributeProtoInts      = 7
	AttributeProtoStrings   = 8
)
