package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// BornReader reads state dictionaries from .born files.
type BornReader struct {
	file       *os.File
	header     Header
	flags      uint32
	dataOffset int64
	dataSize   int64
	checksum   [32]byte
	closed     bool
}

// NewBornReader opens path, parses its header, validates tensor metadata
// and verifies the data checksum.
func NewBornReader(path string) (*BornReader, error) {
	//nolint:gosec // G304: File path comes from the results layout
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader := &BornReader{file: file}
	if err := reader.parseHeader(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if err := ValidateHeader(&reader.header, reader.dataSize); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return reader, nil
}

// parseHeader reads the fixed header and the JSON header, then checks the
// data checksum.
func (r *BornReader) parseHeader() error {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r.file, fixed); err != nil {
		return fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	r.flags = binary.LittleEndian.Uint32(fixed[8:12])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	copy(r.checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	r.dataOffset = alignedOffset(int64(headerSize))
	//nolint:gosec // G115: checked against the file size below
	r.dataSize = int64(dataSize)

	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if r.dataOffset+r.dataSize > info.Size() {
		return &ValidationError{
			Type:    "truncated",
			Details: fmt.Sprintf("data section [%d, %d) beyond file size %d", r.dataOffset, r.dataOffset+r.dataSize, info.Size()),
		}
	}

	data, err := r.readAt(r.dataOffset, r.dataSize)
	if err != nil {
		return fmt.Errorf("failed to read tensor data for checksum: %w", err)
	}
	return ValidateChecksum(ComputeChecksum(data), r.checksum)
}

func (r *BornReader) readAt(offset, size int64) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := r.file.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// Header returns the file header.
func (r *BornReader) Header() Header {
	return r.header
}

// Metadata returns the metadata map from the header.
func (r *BornReader) Metadata() map[string]string {
	return r.header.Metadata
}

// HasOptimizer reports whether the file carries optimizer state.
func (r *BornReader) HasOptimizer() bool {
	return r.flags&FlagHasOptimizer != 0
}

// TensorNames returns a list of all tensor names in the file.
func (r *BornReader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// LoadTensor loads a single tensor from the file.
func (r *BornReader) LoadTensor(name string, device tensor.Device) (*tensor.RawTensor, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}

	for _, meta := range r.header.Tensors {
		if meta.Name == name {
			return r.load(meta, device)
		}
	}
	return nil, fmt.Errorf("tensor %s not found", name)
}

func (r *BornReader) load(meta TensorMeta, device tensor.Device) (*tensor.RawTensor, error) {
	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", meta.Name, err)
	}

	buf, err := r.readAt(r.dataOffset+meta.Offset, meta.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", meta.Name, err)
	}

	raw, err := tensor.NewRaw(shape, device)
	if err != nil {
		return nil, err
	}
	dst := raw.Data()
	for i := range dst {
		dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return raw, nil
}

// ReadStateDict loads every tensor in the file.
func (r *BornReader) ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}

	stateDict := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		raw, err := r.load(meta, backend.Device())
		if err != nil {
			return nil, err
		}
		stateDict[meta.Name] = raw
	}
	return stateDict, nil
}

// Close closes the reader and the underlying file.
func (r *BornReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
