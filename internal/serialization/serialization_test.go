package serialization

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZitiLiu/Psi-NN/internal/backend/cpu"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

func testStateDict(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()
	w, err := tensor.RawFromSlice([]float64{1.5, -2, 3.25, 0, 1e-12, -7}, tensor.Shape{2, 3}, tensor.CPU)
	require.NoError(t, err)
	b, err := tensor.RawFromSlice([]float64{0.1, 0.2}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)
	return map[string]*tensor.RawTensor{
		"layers.0.weight": w,
		"layers.0.bias":   b,
	}
}

func writeFile(t *testing.T, path string, stateDict map[string]*tensor.RawTensor, header Header) {
	t.Helper()
	w, err := NewBornWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteStateDictWithHeader(stateDict, header))
	require.NoError(t, w.Close())
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	stateDict := testStateDict(t)

	w, err := NewBornWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteStateDict(stateDict, "PINN", map[string]string{"problem": "Burgers"}))
	require.NoError(t, w.Close())

	r, err := NewBornReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "PINN", r.Header().ModelType)
	assert.Equal(t, "Burgers", r.Metadata()["problem"])
	assert.Equal(t, FormatVersion, r.Header().FormatVersion)
	assert.ElementsMatch(t, []string{"layers.0.bias", "layers.0.weight"}, r.TensorNames())

	loaded, err := r.ReadStateDict(cpu.New())
	require.NoError(t, err)
	for name, want := range stateDict {
		got := loaded[name]
		require.NotNil(t, got, name)
		assert.True(t, got.Shape().Equal(want.Shape()))
		assert.Equal(t, want.Data(), got.Data())
	}

	single, err := r.LoadTensor("layers.0.bias", tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, single.Data())
}

func TestCheckpointMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.born")
	writeFile(t, path, testStateDict(t), Header{
		ModelType: "ResPINN",
		CheckpointMeta: &CheckpointMeta{
			IsCheckpoint:  true,
			Iteration:     300,
			Loss:          1.25e-3,
			OptimizerType: "Adam",
		},
	})

	r, err := NewBornReader(path)
	require.NoError(t, err)
	defer r.Close()

	meta := r.Header().CheckpointMeta
	require.NotNil(t, meta)
	assert.Equal(t, 300, meta.Iteration)
	assert.InDelta(t, 1.25e-3, meta.Loss, 1e-15)
	assert.True(t, r.HasOptimizer())
}

func TestReader_DetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.born")
	writeFile(t, path, testStateDict(t), Header{ModelType: "PINN"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = NewBornReader(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestReader_InvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.born")
	require.NoError(t, os.WriteFile(path, make([]byte, 128), 0o600))

	_, err := NewBornReader(path)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestWriter_Deterministic(t *testing.T) {
	dir := t.TempDir()
	header := Header{ModelType: "PINN"}
	a, b := filepath.Join(dir, "a.born"), filepath.Join(dir, "b.born")
	writeFile(t, a, testStateDict(t), header)
	writeFile(t, b, testStateDict(t), header)

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestWriter_Closed(t *testing.T) {
	w, err := NewBornWriter(filepath.Join(t.TempDir(), "x.born"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteStateDict(nil, "PINN", nil), ErrWriterClosed)
}

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		errType  string
	}{
		{"ok", []TensorMeta{{Name: "a", Offset: 0, Size: 8}, {Name: "b", Offset: 8, Size: 16}}, 24, ""},
		{"overlap", []TensorMeta{{Name: "a", Offset: 0, Size: 16}, {Name: "b", Offset: 8, Size: 8}}, 24, "offset_overlap"},
		{"out of bounds", []TensorMeta{{Name: "a", Offset: 16, Size: 16}}, 24, "out_of_bounds"},
		{"negative", []TensorMeta{{Name: "a", Offset: -8, Size: 8}}, 24, "negative_offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.errType == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.errType, verr.Type)
		})
	}
}

func TestValidateTensorName(t *testing.T) {
	assert.NoError(t, ValidateTensorName("layers.0.weight"))
	assert.Error(t, ValidateTensorName(""))
	assert.Error(t, ValidateTensorName("../etc/passwd"))
	assert.Error(t, ValidateTensorName("a/b"))
}
