package onnx

import (
	"encoding/binary"
	"math"
)

// protoBuilder helps construct protobuf messages.
type protoBuilder struct {
	data []byte
}

func (b *protoBuilder) writeTag(fieldNum, wireType int) {
	tag := (fieldNum << 3) | wireType
	b.writeVarint(uint64(tag))
}

func (b *protoBuilder) writeVarint(v uint64) {
	for v >= 0x80 {
		b.data = append(b.data, byte(v)|0x80)
		v >>= 7
	}
	b.data = append(b.data, byte(v))
}

func (b *protoBuilder) writeBytes(data []byte) {
	b.writeVarint(uint64(len(data)))
	b.data = append(b.data, data...)
}

func (b *protoBuilder) varintField(fieldNum int, v int64) {
	b.writeTag(fieldNum, wireVarint)
	b.writeVarint(uint64(v))
}

func (b *protoBuilder) stringField(fieldNum int, s string) {
	if s == "" {
		return
	}
	b.writeTag(fieldNum, wireBytes)
	b.writeBytes([]byte(s))
}

func (b *protoBuilder) bytesField(fieldNum int, data []byte) {
	b.writeTag(fieldNum, wireBytes)
	b.writeBytes(data)
}

func (b *protoBuilder) packedInts(fieldNum int, values []int64) {
	if len(values) == 0 {
		return
	}
	sub := &protoBuilder{}
	for _, v := range values {
		sub.writeVarint(uint64(v))
	}
	b.bytesField(fieldNum, sub.data)
}

// encodeModel serializes a ModelProto with the subset of fields the parser
// reads.
func encodeModel(m *ModelProto) []byte {
	b := &protoBuilder{}
	b.varintField(1, m.IRVersion)
	b.stringField(2, m.ProducerName)
	b.stringField(3, m.ProducerVersion)
	b.stringField(4, m.Domain)
	if m.ModelVersion != 0 {
		b.varintField(5, m.ModelVersion)
	}
	b.stringField(6, m.DocString)
	if m.Graph != nil {
		b.bytesField(7, encodeGraph(m.Graph))
	}
	for _, opset := range m.OpsetImport {
		sub := &protoBuilder{}
		sub.stringField(1, opset.Domain)
		sub.varintField(2, opset.Version)
		b.bytesField(8, sub.data)
	}
	for _, kv := range m.MetadataProps {
		sub := &protoBuilder{}
		sub.stringField(1, kv.Key)
		sub.stringField(2, kv.Value)
		b.bytesField(14, sub.data)
	}
	return b.data
}

func encodeGraph(g *GraphProto) []byte {
	b := &protoBuilder{}
	for i := range g.Nodes {
		b.bytesField(1, encodeNode(&g.Nodes[i]))
	}
	b.stringField(2, g.Name)
	for i := range g.Initializers {
		b.bytesField(5, encodeTensor(&g.Initializers[i]))
	}
	for i := range g.Inputs {
		b.bytesField(11, encodeValueInfo(&g.Inputs[i]))
	}
	for i := range g.Outputs {
		b.bytesField(12, encodeValueInfo(&g.Outputs[i]))
	}
	for i := range g.ValueInfo {
		b.bytesField(13, encodeValueInfo(&g.ValueInfo[i]))
	}
	return b.data
}

func encodeNode(n *NodeProto) []byte {
	b := &protoBuilder{}
	for _, in := range n.Inputs {
		b.writeTag(1, wireBytes)
		b.writeBytes([]byte(in))
	}
	for _, out := range n.Outputs {
		b.writeTag(2, wireBytes)
		b.writeBytes([]byte(out))
	}
	b.stringField(3, n.Name)
	b.stringField(4, n.OpType)
	for i := range n.Attributes {
		b.bytesField(5, encodeAttribute(&n.Attributes[i]))
	}
	b.stringField(7, n.Domain)
	return b.data
}

func encodeAttribute(a *AttributeProto) []byte {
	b := &protoBuilder{}
	b.stringField(1, a.Name)
	switch a.Type {
	case AttributeProtoFloat:
		b.writeTag(2, wire32Bit)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(a.F))
		b.data = append(b.data, buf[:]...)
	case AttributeProtoInt:
		b.varintField(3, a.I)
	case AttributeProtoString:
		b.bytesField(4, a.S)
	case AttributeProtoTensor:
		b.bytesField(5, encodeTensor(a.T))
	case AttributeProtoInts:
		b.packedInts(8, a.Ints)
	}
	b.varintField(20, int64(a.Type))
	return b.data
}

func encodeTensor(t *TensorProto) []byte {
	b := &protoBuilder{}
	b.packedInts(1, t.Dims)
	b.varintField(2, int64(t.DataType))
	b.packedInts(7, t.Int64Data)
	b.stringField(8, t.Name)
	if len(t.RawData) > 0 {
		b.bytesField(9, t.RawData)
	}
	return b.data
}

func encodeValueInfo(vi *ValueInfoProto) []byte {
	b := &protoBuilder{}
	b.stringField(1, vi.Name)
	if vi.Type != nil && vi.Type.TensorType != nil {
		tt := &protoBuilder{}
		tt.varintField(1, int64(vi.Type.TensorType.ElemType))
		if vi.Type.TensorType.Shape != nil {
			shape := &protoBuilder{}
			for _, d := range vi.Type.TensorType.Shape.Dims {
				dim := &protoBuilder{}
				if d.DimParam != "" {
					dim.stringField(2, d.DimParam)
				} else {
					dim.varintField(1, d.DimValue)
				}
				shape.bytesField(1, dim.data)
			}
			tt.bytesField(2, shape.data)
		}
		typ := &protoBuilder{}
		typ.bytesField(1, tt.data)
		b.bytesField(2, typ.data)
	}
	return b.data
}

// tensorInfo declares a float tensor; negative dims become dynamic.
func tensorInfo(name string, dims ...int64) ValueInfoProto {
	shape := &TensorShapeProto{}
	for _, d := range dims {
		if d < 0 {
			shape.Dims = append(shape.Dims, DimensionProto{DimParam: "batch"})
		} else {
			shape.Dims = append(shape.Dims, DimensionProto{DimValue: d})
		}
	}
	return ValueInfoProto{
		Name: name,
		Type: &TypeProto{TensorType: &TensorTypeProto{ElemType: TensorProtoFloat, Shape: shape}},
	}
}

func weight(name string, dims ...int64) TensorProto {
	return TensorProto{Name: name, DataType: TensorProtoFloat, Dims: dims}
}

func intsAttr(name string, values ...int64) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoInts, Ints: values}
}

// mlpModel is Source -> Gemm -> Sigmoid -> Gemm -> Sigmoid with a dynamic
// batch dimension.
func mlpModel() *ModelProto {
	return &ModelProto{
		IRVersion:   7,
		OpsetImport: []OperatorSetID{{Version: 13}},
		Graph: &GraphProto{
			Name: "mlp",
			Nodes: []NodeProto{
				{Name: "/fc1/Gemm", OpType: "Gemm", Inputs: []string{"input", "fc1.weight", "fc1.bias"}, Outputs: []string{"z1"},
					Attributes: []AttributeProto{{Name: "transB", Type: AttributeProtoInt, I: 1}}},
				{Name: "/act1/Sigmoid", OpType: "Sigmoid", Inputs: []string{"z1"}, Outputs: []string{"a1"}},
				{Name: "/fc2/Gemm", OpType: "Gemm", Inputs: []string{"a1", "fc2.weight", "fc2.bias"}, Outputs: []string{"z2"},
					Attributes: []AttributeProto{{Name: "transB", Type: AttributeProtoInt, I: 1}}},
				{Name: "/act2/Sigmoid", OpType: "Sigmoid", Inputs: []string{"z2"}, Outputs: []string{"output"}},
			},
			Initializers: []TensorProto{
				weight("fc1.weight", 64, 784),
				weight("fc1.bias", 64),
				weight("fc2.weight", 10, 64),
				weight("fc2.bias", 10),
			},
			Inputs:  []ValueInfoProto{tensorInfo("input", -1, 784)},
			Outputs: []ValueInfoProto{tensorInfo("output", -1, 10)},
		},
	}
}
