package nn

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZitiLiu/Psi-NN/internal/serialization"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// optimizerPrefix marks optimizer tensors inside a checkpoint state dict.
const optimizerPrefix = "optimizer."

// OptimizerState represents an optimizer that can save/load its state.
//
// This interface is used by checkpoints to serialize optimizer state
// without creating import cycles. Optimizers from the optim package
// implement this interface.
type OptimizerState interface {
	// StateDict returns the optimizer state for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads optimizer state from serialization.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// GetLR returns the current learning rate.
	GetLR() float64

	// Type names the optimizer ("Adam", "SGD").
	Type() string

	// Config returns the optimizer hyperparameters.
	Config() map[string]any
}

// Checkpoint is a snapshot of a trained network.
//
// A checkpoint includes:
//   - Network parameters (weights and biases)
//   - Extra parameters trained alongside the network, such as the unknown
//     coefficients of an inverse problem
//   - Optimizer state (optional)
//   - Iteration, loss and string metadata describing the run
//
// Example:
//
//	ckpt := &nn.Checkpoint[B]{
//	    Model:     net,
//	    Extra:     []*nn.Parameter[B]{theta},
//	    Iteration: 1000,
//	    Loss:      loss.Item(),
//	    Metadata:  map[string]string{"problem": "Burgers_inv"},
//	}
//	err := ckpt.Save("Burgers_inv_1_PINN_step_1000.born")
type Checkpoint[B tensor.Backend] struct {
	Model     Network[B]        // The trained network
	Extra     []*Parameter[B]   // Additional trained parameters
	Optimizer OptimizerState    // Optimizer with its state (may be nil)
	Iteration int               // Training iteration of the snapshot
	Loss      float64           // Total loss at the snapshot
	Metadata  map[string]string // Run description (problem, run, mode...)
	CreatedAt time.Time         // When the checkpoint was created
}

// Save writes the checkpoint to a .born file.
//
// The header's ModelType is the network kind and the layer widths are
// stored in the metadata under "layers".
func (c *Checkpoint[B]) Save(path string) (err error) {
	combined := make(map[string]*tensor.RawTensor)
	for name, raw := range c.Model.StateDict() {
		combined[name] = raw
	}
	for _, p := range c.Extra {
		combined[p.Name()] = p.Tensor().Raw()
	}

	meta := &serialization.CheckpointMeta{
		IsCheckpoint: true,
		Iteration:    c.Iteration,
		Loss:         c.Loss,
	}
	if c.Optimizer != nil {
		for name, raw := range c.Optimizer.StateDict() {
			combined[optimizerPrefix+name] = raw
		}
		meta.OptimizerType = c.Optimizer.Type()
		meta.OptimizerConfig = c.Optimizer.Config()
	}

	metadata := make(map[string]string, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		metadata[k] = v
	}
	metadata["layers"] = formatLayers(c.Model.Layers())

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	writer, err := serialization.NewBornWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	header := serialization.Header{
		ModelType:      string(c.Model.Kind()),
		CreatedAt:      createdAt,
		Metadata:       metadata,
		CheckpointMeta: meta,
	}
	if err := writer.WriteStateDictWithHeader(combined, header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores a checkpoint written by Save into a
// pre-constructed network, extra parameters and (optionally) optimizer.
//
// The network must have the same kind and layer widths as the saved one.
func LoadCheckpoint[B tensor.Backend](
	path string,
	backend B,
	model Network[B],
	extra []*Parameter[B],
	optimizer OptimizerState,
) (ckpt *Checkpoint[B], err error) {
	reader, err := serialization.NewBornReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	header := reader.Header()
	if header.CheckpointMeta == nil || !header.CheckpointMeta.IsCheckpoint {
		return nil, fmt.Errorf("%s is not a checkpoint", path)
	}
	if header.ModelType != string(model.Kind()) {
		return nil, fmt.Errorf("checkpoint holds a %s network, expected %s", header.ModelType, model.Kind())
	}
	if saved, want := header.Metadata["layers"], formatLayers(model.Layers()); saved != "" && saved != want {
		return nil, fmt.Errorf("checkpoint layers %s do not match network layers %s", saved, want)
	}

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to read state dict: %w", err)
	}

	modelStateDict := make(map[string]*tensor.RawTensor)
	optimizerStateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if rest, ok := strings.CutPrefix(name, optimizerPrefix); ok {
			optimizerStateDict[rest] = raw
			continue
		}
		modelStateDict[name] = raw
	}

	if err := model.LoadStateDict(modelStateDict); err != nil {
		return nil, fmt.Errorf("failed to load model state: %w", err)
	}
	for _, p := range extra {
		if err := loadParameter(p, modelStateDict); err != nil {
			return nil, fmt.Errorf("failed to load parameter: %w", err)
		}
	}
	if optimizer != nil && len(optimizerStateDict) > 0 {
		if err := optimizer.LoadStateDict(optimizerStateDict); err != nil {
			return nil, fmt.Errorf("failed to load optimizer state: %w", err)
		}
	}

	metadata := make(map[string]string, len(header.Metadata))
	for k, v := range header.Metadata {
		metadata[k] = v
	}

	return &Checkpoint[B]{
		Model:     model,
		Extra:     extra,
		Optimizer: optimizer,
		Iteration: header.CheckpointMeta.Iteration,
		Loss:      header.CheckpointMeta.Loss,
		Metadata:  metadata,
		CreatedAt: header.CreatedAt,
	}, nil
}

func formatLayers(layers []int) string {
	parts := make([]string, len(layers))
	for i, w := range layers {
		parts[i] = fmt.Sprint(w)
	}
	return strings.Join(parts, ",")
}
