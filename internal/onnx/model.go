package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// ErrUnsupportedOp is returned when a graph uses an operator outside the
// MLP subset (MatMul, Add, Tanh, Identity).
var ErrUnsupportedOp = errors.New("unsupported ONNX operator")

// Model is a parsed ONNX graph ready for evaluation.
type Model struct {
	proto        *ModelProto
	initializers map[string]*tensor.RawTensor
}

// Load parses an ONNX file.
func Load(path string) (*Model, error) {
	proto, err := ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ONNX file: %w", err)
	}
	return FromProto(proto)
}

// FromProto decodes the initializers of a parsed model.
func FromProto(proto *ModelProto) (*Model, error) {
	if proto.Graph == nil {
		return nil, errors.New("model has no graph")
	}
	m := &Model{
		proto:        proto,
		initializers: make(map[string]*tensor.RawTensor, len(proto.Graph.Initializers)),
	}
	for i := range proto.Graph.Initializers {
		init := &proto.Graph.Initializers[i]
		raw, err := tensorFromProto(init)
		if err != nil {
			return nil, fmt.Errorf("initializer %s: %w", init.Name, err)
		}
		m.initializers[init.Name] = raw
	}
	return m, nil
}

// Proto returns the underlying model message.
func (m *Model) Proto() *ModelProto {
	return m.proto
}

// InputNames returns the graph input names.
func (m *Model) InputNames() []string {
	return valueNames(m.proto.Graph.Inputs)
}

// OutputNames returns the graph output names.
func (m *Model) OutputNames() []string {
	return valueNames(m.proto.Graph.Outputs)
}

// OpsetVersion returns the default-domain opset version.
func (m *Model) OpsetVersion() int64 {
	for _, op := range m.proto.OpsetImport {
		if op.Domain == "" || op.Domain == "ai.onnx" {
			return op.Version
		}
	}
	return 0
}

// Metadata returns metadata_props as a map.
func (m *Model) Metadata() map[string]string {
	out := make(map[string]string, len(m.proto.MetadataProps))
	for _, e := range m.proto.MetadataProps {
		out[e.Key] = e.Value
	}
	return out
}

// Forward evaluates the graph on a single input, running nodes in file
// order (exported graphs are already topologically sorted).
func (m *Model) Forward(input *tensor.RawTensor, backend tensor.Backend) (*tensor.RawTensor, error) {
	inputs := m.InputNames()
	outputs := m.OutputNames()
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected one input and one output, got %d and %d", len(inputs), len(outputs))
	}

	values := make(map[string]*tensor.RawTensor, len(m.initializers)+len(m.proto.Graph.Nodes)+1)
	for name, raw := range m.initializers {
		values[name] = raw
	}
	values[inputs[0]] = input

	for _, node := range m.proto.Graph.Nodes {
		args := make([]*tensor.RawTensor, len(node.Inputs))
		for i, name := range node.Inputs {
			v, ok := values[name]
			if !ok {
				return nil, fmt.Errorf("node %s: input %s is not defined", node.Name, name)
			}
			args[i] = v
		}

		var out *tensor.RawTensor
		switch {
		case node.OpType == "MatMul" && len(args) == 2:
			out = backend.MatMul(args[0], args[1])
		case node.OpType == "Add" && len(args) == 2:
			out = backend.Add(args[0], args[1])
		case node.OpType == "Tanh" && len(args) == 1:
			out = backend.Tanh(args[0])
		case node.OpType == "Identity" && len(args) == 1:
			out = args[0]
		default:
			return nil, fmt.Errorf("node %s: %w: %s with %d inputs", node.Name, ErrUnsupportedOp, node.OpType, len(args))
		}
		if len(node.Outputs) != 1 {
			return nil, fmt.Errorf("node %s: expected one output, got %d", node.Name, len(node.Outputs))
		}
		values[node.Outputs[0]] = out
	}

	out, ok := values[outputs[0]]
	if !ok {
		return nil, fmt.Errorf("output %s was never produced", outputs[0])
	}
	return out, nil
}

// ToNetwork rebuilds a trainable network from a model written by Export.
func ToNetwork[B tensor.Backend](m *Model, backend B) (nn.Network[B], error) {
	meta := m.Metadata()
	kind, ok := nn.Lookup(meta[MetaKind])
	if !ok {
		return nil, fmt.Errorf("model kind %q is not registered", meta[MetaKind])
	}
	layers, err := splitInts(meta[MetaLayers])
	if err != nil {
		return nil, err
	}

	net, err := nn.Build(kind, layers, rand.New(rand.NewSource(0)), backend)
	if err != nil {
		return nil, err
	}

	stateDict := make(map[string]*tensor.RawTensor, len(m.initializers))
	for name, raw := range m.initializers {
		if shape := raw.Shape(); len(shape) == 2 {
			t, err := tensor.RawFromSlice(transpose(raw.Data(), shape[0], shape[1]), tensor.Shape{shape[1], shape[0]}, raw.Device())
			if err != nil {
				return nil, err
			}
			raw = t
		}
		stateDict[name] = raw
	}
	if err := net.LoadStateDict(stateDict); err != nil {
		return nil, fmt.Errorf("failed to load ONNX weights: %w", err)
	}
	return net, nil
}

func valueNames(infos []ValueInfoProto) []string {
	names := make([]string, len(infos))
	for i, v := range infos {
		names[i] = v.Name
	}
	return names
}

// tensorFromProto converts an initializer to a float64 RawTensor.
func tensorFromProto(p *TensorProto) (*tensor.RawTensor, error) {
	shape := make(tensor.Shape, len(p.Dims))
	for i, d := range p.Dims {
		shape[i] = int(d)
	}

	var data []float64
	switch p.DataType {
	case TensorProtoDouble:
		if len(p.RawData) > 0 {
			if len(p.RawData)%8 != 0 {
				return nil, fmt.Errorf("raw_data length %d is not a multiple of 8", len(p.RawData))
			}
			data = make([]float64, len(p.RawData)/8)
			for i := range data {
				data[i] = math.Float64frombits(binary.LittleEndian.Uint64(p.RawData[i*8:]))
			}
		} else {
			data = p.DoubleData
		}
	case TensorProtoFloat:
		if len(p.RawData) > 0 {
			if len(p.RawData)%4 != 0 {
				return nil, fmt.Errorf("raw_data length %d is not a multiple of 4", len(p.RawData))
			}
			data = make([]float64, len(p.RawData)/4)
			for i := range data {
				data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(p.RawData[i*4:])))
			}
		} else {
			data = make([]float64, len(p.FloatData))
			for i, v := range p.FloatData {
				data[i] = float64(v)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported data type %d", p.DataType)
	}

	return tensor.RawFromSlice(data, shape, tensor.CPU)
}
