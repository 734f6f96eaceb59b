package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: Path is provided by user, file inclusion is intentional for ONNX model loading
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// ParseReader parses an ONNX model from a stream.
func ParseReader(r io.Reader) (*ModelProto, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes.
func Parse(data []byte) (*ModelProto, error) {
	p := &parser{data: data, pos: 0}
	model := &ModelProto{}
	if err := p.readMessage(model); err != nil {
		return nil, fmt.Errorf("%w: failed to parse model: %w", ErrMalformedModel, err)
	}
	return model, nil
}

// parser implements a minimal protobuf wire format decoder.
type parser struct {
	data []byte
	pos  int
}

// Protobuf wire types.
const (
	wireVarint = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	wire64Bit  = 1 // fixed64, sfixed64, double
	wireBytes  = 2 // string, bytes, embedded messages, packed repeated fields
	wire32Bit  = 5 // fixed32, sfixed32, float
)

// readMessage reads a protobuf message into the given struct.
func (p *parser) readMessage(msg interface{}) error {
	switch m := msg.(type) {
	case *ModelProto:
		return p.readModelProto(m)
	case *GraphProto:
		return p.readGraphProto(m)
	case *NodeProto:
		return p.readNodeProto(m)
	case *TensorProto:
		return p.readTensorProto(m)
	case *ValueInfoProto:
		return p.readValueInfoProto(m)
	case *TypeProto:
		return p.readTypeProto(m)
	case *TensorTypeProto:
		return p.readTensorTypeProto(m)
	case *TensorShapeProto:
		return p.readTensorShapeProto(m)
	case *DimensionProto:
		return p.readDimensionProto(m)
	case *AttributeProto:
		return p.readAttributeProto(m)
	case *OperatorSetID:
		return p.readOperatorSetID(m)
	case *StringStringEntry:
		return p.readStringStringEntry(m)
	default:
		return fmt.Errorf("unknown message type: %T", msg)
	}
}

// fields walks the fields of the current message. fn reports whether it
// consumed the field; unconsumed fields are skipped.
func (p *parser) fields(fn func(fieldNum, wireType int) (bool, error)) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		handled, err := fn(fieldNum, wireType)
		if err != nil {
			return err
		}
		if !handled {
			if err := p.skipField(wireType); err != nil {
				return err
			}
		}
	}
	return nil
}

// readModelProto reads ModelProto message.
func (p *parser) readModelProto(m *ModelProto) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		var err error
		switch fieldNum {
		case 1: // ir_version
			m.IRVersion, err = p.readVarint()
		case 2: // producer_name
			m.ProducerName, err = p.readString()
		case 3: // producer_version
			m.ProducerVersion, err = p.readString()
		case 4: // domain
			m.Domain, err = p.readString()
		case 5: // model_version
			m.ModelVersion, err = p.readVarint()
		case 6: // doc_string
			m.DocString, err = p.readString()
		case 7: // graph
			m.Graph = &GraphProto{}
			err = p.readEmbedded(m.Graph)
		case 8: // opset_import
			opset := OperatorSetID{}
			err = p.readEmbedded(&opset)
			m.OpsetImport = append(m.OpsetImport, opset)
		case 14: // metadata_props
			entry := StringStringEntry{}
			err = p.readEmbedded(&entry)
			m.MetadataProps = append(m.MetadataProps, entry)
		default:
			return false, nil
		}
		return true, err
	})
}

// readGraphProto reads GraphProto message.
func (p *parser) readGraphProto(m *GraphProto) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		var err error
		switch fieldNum {
		case 1: // node
			node := NodeProto{}
			err = p.readEmbedded(&node)
			m.Nodes = append(m.Nodes, node)
		case 2: // name
			m.Name, err = p.readString()
		case 5: // initializer
			tensor := TensorProto{}
			err = p.readEmbedded(&tensor)
			m.Initializers = append(m.Initializers, tensor)
		case 10: // doc_string
			m.DocString, err = p.readString()
		case 11: // input
			vi := ValueInfoProto{}
			err = p.readEmbedded(&vi)
			m.Inputs = append(m.Inputs, vi)
		case 12: // output
			vi := ValueInfoProto{}
			err = p.readEmbedded(&vi)
			m.Outputs = append(m.Outputs, vi)
		case 13: // value_info
			vi := ValueInfoProto{}
			err = p.readEmbedded(&vi)
			m.ValueInfo = append(m.ValueInfo, vi)
		default:
			return false, nil
		}
		return true, err
	})
}

// readNodeProto reads NodeProto message.
func (p *parser) readNodeProto(m *NodeProto) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		var (
			err error
			s   string
		)
		switch fieldNum {
		case 1: // input
			s, err = p.readString()
			m.Inputs = append(m.Inputs, s)
		case 2: // output
			s, err = p.readString()
			m.Outputs = append(m.Outputs, s)
		case 3: // name
			m.Name, err = p.readString()
		case 4: // op_type
			m.OpType, err = p.readString()
		case 5: // attribute
			attr := AttributeProto{}
			err = p.readEmbedded(&attr)
			m.Attributes = append(m.Attributes, attr)
		case 6: // doc_string
			m.DocString, err = p.readString()
		case 7: // domain
			m.Domain, err = p.readString()
		default:
			return false, nil
		}
		return true, err
	})
}

// readTensorProto reads TensorProto message.
func (p *parser) readTensorProto(m *TensorProto) error {
	return p.fields(func(fieldNum, wireType int) (bool, error) {
		var err error
		switch fieldNum {
		case 1: // dims (repeated int64, packed or not)
			var dims []int64
			dims, err = p.readRepeatedVarint(wireType)
			m.Dims = append(m.Dims, dims...)
		case 2: // data_type
			m.DataType, err = p.readInt32()
		case 4: // float_data (packed)
			var floats []float32
			floats, err = p.readPackedFloats()
			m.FloatData = append(m.FloatData, floats...)
		case 5: // int32_data
			var ints []int64
			ints, err = p.readRepeatedVarint(wireType)
			for _, v := range ints {
				m.Int32Data = append(m.Int32Data, int32(v)) //nolint:gosec // G115: ONNX protobuf varint fits in int32.
			}
		case 7: // int64_data
			var ints []int64
			ints, err = p.readRepeatedVarint(wireType)
			m.Int64Data = append(m.Int64Data, ints...)
		case 8: // name
			m.Name, err = p.readString()
		case 9: // raw_data
			m.RawData, err = p.readBytes()
		case 12: // doc_string
			m.DocString, err = p.readString()
		default:
			return false, nil
		}
		return true, err
	})
}

// readValueInfoProto reads ValueInfoProto message.
func (p *parser) readValueInfoProto(m *ValueInfoProto) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		var err error
		switch fieldNum {
		case 1: // name
			m.Name, err = p.readString()
		case 2: // type
			m.Type = &TypeProto{}
			err = p.readEmbedded(m.Type)
		case 3: // doc_string
			m.DocString, err = p.readString()
		default:
			return false, nil
		}
		return true, err
	})
}

// readTypeProto reads TypeProto message.
func (p *parser) readTypeProto(m *TypeProto) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		if fieldNum != 1 { // tensor_type
			return false, nil
		}
		m.TensorType = &TensorTypeProto{}
		return true, p.readEmbedded(m.TensorType)
	})
}

// readTensorTypeProto reads TensorTypeProto message.
func (p *parser) readTensorTypeProto(m *TensorTypeProto) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		var err error
		switch fieldNum {
		case 1: // elem_type
			m.ElemType, err = p.readInt32()
		case 2: // shape
			m.Shape = &TensorShapeProto{}
			err = p.readEmbedded(m.Shape)
		default:
			return false, nil
		}
		return true, err
	})
}

// readTensorShapeProto reads TensorShapeProto message.
func (p *parser) readTensorShapeProto(m *TensorShapeProto) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		if fieldNum != 1 { // dim
			return false, nil
		}
		dim := DimensionProto{}
		err := p.readEmbedded(&dim)
		m.Dims = append(m.Dims, dim)
		return true, err
	})
}

// readDimensionProto reads DimensionProto message.
func (p *parser) readDimensionProto(m *DimensionProto) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		var err error
		switch fieldNum {
		case 1: // dim_value
			m.DimValue, err = p.readVarint()
		case 2: // dim_param
			m.DimParam, err = p.readString()
		default:
			return false, nil
		}
		return true, err
	})
}

// readAttributeProto reads AttributeProto message.
func (p *parser) readAttributeProto(m *AttributeProto) error {
	return p.fields(func(fieldNum, wireType int) (bool, error) {
		var (
			err error
			b   []byte
		)
		switch fieldNum {
		case 1: // name
			m.Name, err = p.readString()
		case 2: // f (float)
			m.F, err = p.readFloat32()
		case 3: // i (int)
			m.I, err = p.readVarint()
		case 4: // s (bytes)
			m.S, err = p.readBytes()
		case 5: // t (tensor)
			m.T = &TensorProto{}
			err = p.readEmbedded(m.T)
		case 7: // floats
			var floats []float32
			if wireType == wire32Bit {
				var f float32
				f, err = p.readFloat32()
				floats = []float32{f}
			} else {
				floats, err = p.readPackedFloats()
			}
			m.Floats = append(m.Floats, floats...)
		case 8: // ints
			var ints []int64
			ints, err = p.readRepeatedVarint(wireType)
			m.Ints = append(m.Ints, ints...)
		case 9: // strings
			b, err = p.readBytes()
			m.Strings = append(m.Strings, b)
		case 13: // doc_string
			m.DocString, err = p.readString()
		case 20: // type
			m.Type, err = p.readInt32()
		default:
			return false, nil
		}
		return true, err
	})
}

// readOperatorSetID reads OperatorSetID message.
func (p *parser) readOperatorSetID(m *OperatorSetID) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		var err error
		switch fieldNum {
		case 1: // domain
			m.Domain, err = p.readString()
		case 2: // version
			m.Version, err = p.readVarint()
		default:
			return false, nil
		}
		return true, err
	})
}

// readStringStringEntry reads StringStringEntry message.
func (p *parser) readStringStringEntry(m *StringStringEntry) error {
	return p.fields(func(fieldNum, _ int) (bool, error) {
		var err error
		switch fieldNum {
		case 1: // key
			m.Key, err = p.readString()
		case 2: // value
			m.Value, err = p.readString()
		default:
			return false, nil
		}
		return true, err
	})
}

// readEmbedded reads a length-delimited sub-message into msg.
func (p *parser) readEmbedded(msg interface{}) error {
	data, err := p.readBytes()
	if err != nil {
		return err
	}
	sub := &parser{data: data, pos: 0}
	return sub.readMessage(msg)
}

// readString reads a length-delimited UTF-8 string.
func (p *parser) readString() (string, error) {
	data, err := p.readBytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readRepeatedVarint reads one element of a repeated varint field, or all of
// them when the field is packed.
func (p *parser) readRepeatedVarint(wireType int) ([]int64, error) {
	if wireType != wireBytes {
		v, err := p.readVarint()
		if err != nil {
			return nil, err
		}
		return []int64{v}, nil
	}
	data, err := p.readBytes()
	if err != nil {
		return nil, err
	}
	sub := &parser{data: data, pos: 0}
	var values []int64
	for sub.pos < len(sub.data) {
		v, err := sub.readVarint()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// readPackedFloats reads a packed repeated float field.
func (p *parser) readPackedFloats() ([]float32, error) {
	data, err := p.readBytes()
	if err != nil {
		return nil, err
	}
	values := make([]float32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		bits := binary.LittleEndian.Uint32(data[i:])
		values = append(values, math.Float32frombits(bits))
	}
	return values, nil
}

// readTag reads a protobuf field tag.
func (p *parser) readTag() (fieldNum, wireType int, err error) {
	if p.pos >= len(p.data) {
		return 0, 0, io.EOF
	}
	tag, err := p.readVarint()
	if err != nil {
		return 0, 0, err
	}
	fieldNum = int(tag >> 3)
	wireType = int(tag & 0x7)
	return fieldNum, wireType, nil
}

// readVarint reads a varint-encoded int64.
func (p *parser) readVarint() (int64, error) {
	var result uint64
	var shift uint
	for {
		if p.pos >= len(p.data) {
			return 0, io.ErrUnexpectedEOF
		}
		b := p.data[p.pos]
		p.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, errors.New("varint overflow")
		}
	}
	return int64(result), nil //nolint:gosec // G115: Protobuf varint fits in int64.
}

// readInt32 reads a varint-encoded int32.
func (p *parser) readInt32() (int32, error) {
	v, err := p.readVarint()
	if err != nil {
		return 0, err
	}
	return int32(v), nil //nolint:gosec // G115: Protobuf varint fits in int32.
}

// readBytes reads a length-delimited byte slice.
func (p *parser) readBytes() ([]byte, error) {
	length, err := p.readVarint()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, errors.New("negative length")
	}
	end := p.pos + int(length)
	if end > len(p.data) || end < p.pos {
		return nil, io.ErrUnexpectedEOF
	}
	result := p.data[p.pos:end]
	p.pos = end
	return result, nil
}

// readFloat32 reads a 32-bit float.
func (p *parser) readFloat32() (float32, error) {
	if p.pos+4 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return math.Float32frombits(bits), nil
}

// skipField skips a field based on wire type.
func (p *parser) skipField(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := p.readVarint()
		return err
	case wire64Bit:
		if p.pos+8 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 8
		return nil
	case wireBytes:
		_, err := p.readBytes()
		return err
	case wire32Bit:
		if p.pos+4 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 4
		return nil
	default:
		return fmt.Errorf("unknown wire type: %d", wireType)
	}
}
