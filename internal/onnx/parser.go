package onnx

import (
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
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

// Parse parses an ONNX model from bytes. Unknown fields are skipped.
func Parse(data []byte) (*ModelProto, error) {
	m := &ModelProto{}
	if err := readModel(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return m, nil
}

// field is one decoded wire field: v for scalar wire types, b for
// length-delimited ones.
type field struct {
	num protowire.Number
	typ protowire.Type
	v   uint64
	b   []byte
}

func readFields(data []byte) ([]field, error) {
	var out []field
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(data)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(data)
			f.v = uint64(v)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(data)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		data = data[n:]
		out = append(out, f)
	}
	return out, nil
}

func readModel(data []byte, m *ModelProto) error {
	fields, err := readFields(data)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case fieldModelIRVersion:
			m.IRVersion = int64(f.v)
		case fieldModelProducerName:
			m.ProducerName = string(f.b)
		case fieldModelProducerVersion:
			m.ProducerVersion = string(f.b)
		case fieldModelDomain:
			m.Domain = string(f.b)
		case fieldModelModelVersion:
			m.ModelVersion = int64(f.v)
		case fieldModelDocString:
			m.DocString = string(f.b)
		case fieldModelGraph:
			m.Graph = &GraphProto{}
			if err := readGraph(f.b, m.Graph); err != nil {
				return fmt.Errorf("graph: %w", err)
			}
		case fieldModelOpsetImport:
			sub, err := readFields(f.b)
			if err != nil {
				return fmt.Errorf("opset_import: %w", err)
			}
			var op OperatorSetID
			for _, s := range sub {
				switch s.num {
				case fieldOpsetDomain:
					op.Domain = string(s.b)
				case fieldOpsetVersion:
					op.Version = int64(s.v)
				}
			}
			m.OpsetImport = append(m.OpsetImport, op)
		case fieldModelMetadataProps:
			sub, err := readFields(f.b)
			if err != nil {
				return fmt.Errorf("metadata_props: %w", err)
			}
			var e StringStringEntry
			for _, s := range sub {
				switch s.num {
				case fieldEntryKey:
					e.Key = string(s.b)
				case fieldEntryValue:
					e.Value = string(s.b)
				}
			}
			m.MetadataProps = append(m.MetadataProps, e)
		}
	}
	return nil
}

func readGraph(data []byte, g *GraphProto) error {
	fields, err := readFields(data)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case fieldGraphNode:
			var n NodeProto
			if err := readNode(f.b, &n); err != nil {
				return fmt.Errorf("node %d: %w", len(g.Nodes), err)
			}
			g.Nodes = append(g.Nodes, n)
		case fieldGraphName:
			g.Name = string(f.b)
		case fieldGraphInitializer:
			var t TensorProto
			if err := readTensor(f.b, &t); err != nil {
				return fmt.Errorf("initializer %d: %w", len(g.Initializers), err)
			}
			g.Initializers = append(g.Initializers, t)
		case fieldGraphDocString:
			g.DocString = string(f.b)
		case fieldGraphInput, fieldGraphOutput:
			var v ValueInfoProto
			if err := readValueInfo(f.b, &v); err != nil {
				return fmt.Errorf("value info: %w", err)
			}
			if f.num == fieldGraphInput {
				g.Inputs = append(g.Inputs, v)
			} else {
				g.Outputs = append(g.Outputs, v)
			}
		}
	}
	return nil
}

func readNode(data []byte, n *NodeProto) error {
	fields, err := readFields(data)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case fieldNodeInput:
			n.Inputs = append(n.Inputs, string(f.b))
		case fieldNodeOutput:
			n.Outputs = append(n.Outputs, string(f.b))
		case fieldNodeName:
			n.Name = string(f.b)
		case fieldNodeOpType:
			n.OpType = string(f.b)
		case fieldNodeDocString:
			n.DocString = string(f.b)
		case fieldNodeDomain:
			n.Domain = string(f.b)
		}
	}
	return nil
}

//nolint:gocognit // one case per TensorProto field, packed and unpacked
func readTensor(data []byte, t *TensorProto) error {
	fields, err := readFields(data)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case fieldTensorDims:
			if f.typ == protowire.BytesType {
				for b := f.b; len(b) > 0; {
					v, n := protowire.ConsumeVarint(b)
					if n < 0 {
						return fmt.Errorf("dims: %w", protowire.ParseError(n))
					}
					t.Dims = append(t.Dims, int64(v))
					b = b[n:]
				}
				continue
			}
			t.Dims = append(t.Dims, int64(f.v))
		case fieldTensorDataType:
			t.DataType = int32(f.v)
		case fieldTensorFloatData:
			if f.typ == protowire.BytesType {
				for b := f.b; len(b) > 0; {
					v, n := protowire.ConsumeFixed32(b)
					if n < 0 {
						return fmt.Errorf("float_data: %w", protowire.ParseError(n))
					}
					t.FloatData = append(t.FloatData, math.Float32frombits(v))
					b = b[n:]
				}
				continue
			}
			t.FloatData = append(t.FloatData, math.Float32frombits(uint32(f.v)))
		case fieldTensorName:
			t.Name = string(f.b)
		case fieldTensorRawData:
			t.RawData = append([]byte(nil), f.b...)
		case fieldTensorDoubleData:
			if f.typ == protowire.BytesType {
				for b := f.b; len(b) > 0; {
					v, n := protowire.ConsumeFixed64(b)
					if n < 0 {
						return fmt.Errorf("double_data: %w", protowire.ParseError(n))
					}
					t.DoubleData = append(t.DoubleData, math.Float64frombits(v))
					b = b[n:]
				}
				continue
			}
			t.DoubleData = append(t.DoubleData, math.Float64frombits(f.v))
		case fieldTensorDocString:
			t.DocString = string(f.b)
		}
	}
	return nil
}

func readValueInfo(data []byte, v *ValueInfoProto) error {
	fields, err := readFields(data)
	if err != nil {
		return err
	}
	for _, f := range fields {
		switch f.num {
		case fieldValueInfoName:
			v.Name = string(f.b)
		case fieldValueInfoDocString:
			v.DocString = string(f.b)
		case fieldValueInfoType:
			typ, err := readType(f.b)
			if err != nil {
				return err
			}
			v.Type = typ
		}
	}
	return nil
}

func readType(data []byte) (*TypeProto, error) {
	fields, err := readFields(data)
	if err != nil {
		return nil, err
	}
	typ := &TypeProto{}
	for _, f := range fields {
		if f.num != fieldTypeTensorType {
			continue
		}
		tt := &TensorTypeProto{}
		sub, err := readFields(f.b)
		if err != nil {
			return nil, err
		}
		for _, s := range sub {
			switch s.num {
			case fieldTensorTypeElemType:
				tt.ElemType = int32(s.v)
			case fieldTensorTypeShape:
				shape, err := readShape(s.b)
				if err != nil {
					return nil, err
				}
				tt.Shape = shape
			}
		}
		typ.TensorType = tt
	}
	return typ, nil
}

func readShape(data []byte) (*TensorShapeProto, error) {
	fields, err := readFields(data)
	if err != nil {
		return nil, err
	}
	shape := &TensorShapeProto{}
	for _, f := range fields {
		if f.num != fieldShapeDim {
			continue
		}
		sub, err := readFields(f.b)
		if err != nil {
			return nil, err
		}
		var dim DimensionProto
		for _, s := range sub {
			switch s.num {
			case fieldDimValue:
				dim.DimValue = int64(s.v)
			case fieldDimParam:
				dim.DimParam = string(s.b)
			}
		}
		shape.Dims = append(shape.Dims, dim)
	}
	return shape, nil
}
