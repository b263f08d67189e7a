package onnx

import (
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal encodes a model in protobuf wire format.
func Marshal(m *ModelProto) []byte {
	var b []byte
	b = appendVarintField(b, fieldModelIRVersion, uint64(m.IRVersion))
	b = appendStringField(b, fieldModelProducerName, m.ProducerName)
	b = appendStringField(b, fieldModelProducerVersion, m.ProducerVersion)
	b = appendStringField(b, fieldModelDomain, m.Domain)
	b = appendVarintField(b, fieldModelModelVersion, uint64(m.ModelVersion))
	b = appendStringField(b, fieldModelDocString, m.DocString)
	if m.Graph != nil {
		b = appendMessage(b, fieldModelGraph, appendGraph(nil, m.Graph))
	}
	for _, op := range m.OpsetImport {
		var sub []byte
		sub = appendStringField(sub, fieldOpsetDomain, op.Domain)
		sub = appendVarintField(sub, fieldOpsetVersion, uint64(op.Version))
		b = appendMessage(b, fieldModelOpsetImport, sub)
	}
	for _, e := range m.MetadataProps {
		var sub []byte
		sub = appendStringField(sub, fieldEntryKey, e.Key)
		sub = appendStringField(sub, fieldEntryValue, e.Value)
		b = appendMessage(b, fieldModelMetadataProps, sub)
	}
	return b
}

// WriteFile marshals a model and writes it to path.
func WriteFile(path string, m *ModelProto) error {
	if err := os.WriteFile(path, Marshal(m), 0o600); err != nil {
		return fmt.Errorf("failed to write ONNX file: %w", err)
	}
	return nil
}

func appendGraph(b []byte, g *GraphProto) []byte {
	for i := range g.Nodes {
		b = appendMessage(b, fieldGraphNode, appendNode(nil, &g.Nodes[i]))
	}
	b = appendStringField(b, fieldGraphName, g.Name)
	for i := range g.Initializers {
		b = appendMessage(b, fieldGraphInitializer, appendTensor(nil, &g.Initializers[i]))
	}
	b = appendStringField(b, fieldGraphDocString, g.DocString)
	for i := range g.Inputs {
		b = appendMessage(b, fieldGraphInput, appendValueInfo(nil, &g.Inputs[i]))
	}
	for i := range g.Outputs {
		b = appendMessage(b, fieldGraphOutput, appendValueInfo(nil, &g.Outputs[i]))
	}
	return b
}

func appendNode(b []byte, n *NodeProto) []byte {
	for _, in := range n.Inputs {
		b = protowire.AppendTag(b, fieldNodeInput, protowire.BytesType)
		b = protowire.AppendString(b, in)
	}
	for _, out := range n.Outputs {
		b = protowire.AppendTag(b, fieldNodeOutput, protowire.BytesType)
		b = protowire.AppendString(b, out)
	}
	b = appendStringField(b, fieldNodeName, n.Name)
	b = appendStringField(b, fieldNodeOpType, n.OpType)
	b = appendStringField(b, fieldNodeDocString, n.DocString)
	b = appendStringField(b, fieldNodeDomain, n.Domain)
	return b
}

func appendTensor(b []byte, t *TensorProto) []byte {
	// dims is a proto2 repeated field and is written unpacked.
	for _, d := range t.Dims {
		b = protowire.AppendTag(b, fieldTensorDims, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d))
	}
	b = appendVarintField(b, fieldTensorDataType, uint64(t.DataType))
	if len(t.FloatData) > 0 {
		var packed []byte
		for _, v := range t.FloatData {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		b = appendMessage(b, fieldTensorFloatData, packed)
	}
	b = appendStringField(b, fieldTensorName, t.Name)
	if len(t.RawData) > 0 {
		b = protowire.AppendTag(b, fieldTensorRawData, protowire.BytesType)
		b = protowire.AppendBytes(b, t.RawData)
	}
	if len(t.DoubleData) > 0 {
		var packed []byte
		for _, v := range t.DoubleData {
			packed = protowire.AppendFixed64(packed, math.Float64bits(v))
		}
		b = appendMessage(b, fieldTensorDoubleData, packed)
	}
	b = appendStringField(b, fieldTensorDocString, t.DocString)
	return b
}

func appendValueInfo(b []byte, v *ValueInfoProto) []byte {
	b = appendStringField(b, fieldValueInfoName, v.Name)
	if v.Type != nil && v.Type.TensorType != nil {
		tt := v.Type.TensorType
		var tensorType []byte
		tensorType = appendVarintField(tensorType, fieldTensorTypeElemType, uint64(tt.ElemType))
		if tt.Shape != nil {
			var shape []byte
			for _, d := range tt.Shape.Dims {
				var dim []byte
				if d.DimParam != "" {
					dim = appendStringField(dim, fieldDimParam, d.DimParam)
				} else {
					dim = protowire.AppendTag(dim, fieldDimValue, protowire.VarintType)
					dim = protowire.AppendVarint(dim, uint64(d.DimValue))
				}
				shape = appendMessage(shape, fieldShapeDim, dim)
			}
			tensorType = appendMessage(tensorType, fieldTensorTypeShape, shape)
		}
		b = appendMessage(b, fieldValueInfoType, appendMessage(nil, fieldTypeTensorType, tensorType))
	}
	b = appendStringField(b, fieldValueInfoDocString, v.DocString)
	return b
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// appendStringField omits empty strings, like a proto3 encoder.
func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
