package onnx

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Exporter identity written into every model.
const (
	ProducerName    = "Psi-NN"
	ProducerVersion = "1.0.0"
	IRVersion       = 7
	OpsetVersion    = 13
)

// Metadata keys describing the exported architecture.
const (
	MetaKind   = "kind"
	MetaLayers = "layers"
)

// Graph tensor names.
const (
	InputName  = "input"
	OutputName = "output"
)

// Export converts a network into an ONNX model.
//
// Each dense layer becomes MatMul + Add with its weight stored transposed
// as [in, out]; hidden layers add a Tanh node, and residual layers an Add
// of the layer input. metadata is copied into the model's metadata_props
// together with the architecture kind and layer widths.
func Export[B tensor.Backend](net nn.Network[B], metadata map[string]string) (*ModelProto, error) {
	layers := net.Layers()
	graph := &GraphProto{
		Name: string(net.Kind()),
		Inputs: []ValueInfoProto{
			valueInfo(InputName, layers[0]),
		},
	}

	current := InputName
	specs := net.Specs()
	for i, spec := range specs {
		prefix := fmt.Sprintf("layers.%d.", i)
		weightName, biasName := prefix+"weight", prefix+"bias"

		w := spec.Linear.Weight().Tensor()
		wT := transpose(w.Data(), w.Shape()[0], w.Shape()[1])
		graph.Initializers = append(graph.Initializers,
			doubleTensor(weightName, tensor.Shape{w.Shape()[1], w.Shape()[0]}, wT),
			doubleTensor(biasName, spec.Linear.Bias().Tensor().Shape(), spec.Linear.Bias().Tensor().Data()),
		)

		mm, affine := prefix+"matmul", prefix+"affine"
		graph.Nodes = append(graph.Nodes,
			NodeProto{Name: mm, OpType: "MatMul", Inputs: []string{current, weightName}, Outputs: []string{mm}},
			NodeProto{Name: affine, OpType: "Add", Inputs: []string{mm, biasName}, Outputs: []string{affine}},
		)
		out := affine
		if spec.Activation {
			act := prefix + "tanh"
			graph.Nodes = append(graph.Nodes, NodeProto{Name: act, OpType: "Tanh", Inputs: []string{out}, Outputs: []string{act}})
			out = act
		}
		if spec.Residual {
			res := prefix + "residual"
			graph.Nodes = append(graph.Nodes, NodeProto{Name: res, OpType: "Add", Inputs: []string{current, out}, Outputs: []string{res}})
			out = res
		}
		current = out
	}
	if len(graph.Nodes) == 0 {
		return nil, fmt.Errorf("network %s has no layers", net.Kind())
	}

	last := &graph.Nodes[len(graph.Nodes)-1]
	last.Outputs[0] = OutputName
	graph.Outputs = []ValueInfoProto{valueInfo(OutputName, layers[len(layers)-1])}

	props := make(map[string]string, len(metadata)+2)
	maps.Copy(props, metadata)
	props[MetaKind] = string(net.Kind())
	props[MetaLayers] = joinInts(layers)

	model := &ModelProto{
		IRVersion:       IRVersion,
		OpsetImport:     []OperatorSetID{{Domain: "", Version: OpsetVersion}},
		ProducerName:    ProducerName,
		ProducerVersion: ProducerVersion,
		ModelVersion:    1,
		Graph:           graph,
	}
	for _, k := range slices.Sorted(maps.Keys(props)) {
		model.MetadataProps = append(model.MetadataProps, StringStringEntry{Key: k, Value: props[k]})
	}
	return model, nil
}

// ExportFile exports a network and writes it to path.
func ExportFile[B tensor.Backend](path string, net nn.Network[B], metadata map[string]string) error {
	model, err := Export(net, metadata)
	if err != nil {
		return err
	}
	return WriteFile(path, model)
}

func valueInfo(name string, width int) ValueInfoProto {
	return ValueInfoProto{
		Name: name,
		Type: &TypeProto{TensorType: &TensorTypeProto{
			ElemType: TensorProtoDouble,
			Shape: &TensorShapeProto{Dims: []DimensionProto{
				{DimParam: "N"},
				{DimValue: int64(width)},
			}},
		}},
	}
}

func doubleTensor(name string, shape tensor.Shape, data []float64) TensorProto {
	dims := make([]int64, len(shape))
	for i, d := range shape {
		dims[i] = int64(d)
	}
	raw := make([]byte, 0, 8*len(data))
	for _, v := range data {
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(v))
	}
	return TensorProto{
		Name:     name,
		DataType: TensorProtoDouble,
		Dims:     dims,
		RawData:  raw,
	}
}

// transpose returns the [cols, rows] transpose of a row-major [rows, cols] matrix.
func transpose(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for i := range rows {
		for j := range cols {
			out[j*rows+i] = data[i*cols+j]
		}
	}
	return out
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid layer width %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}
