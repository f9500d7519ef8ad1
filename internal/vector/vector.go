// Package vector provides similarity math and the binary codec for
// embedding vectors.
package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/semnotes/semnotes/internal/errortypes"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// The result is a value between -1 and 1, where 1 means the vectors are
// identical in direction, 0 means they are orthogonal, and -1 means they
// are opposite. If either vector has zero magnitude the similarity is
// defined as 0 rather than an error or NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errortypes.DimensionMismatchError(
			fmt.Errorf("vectors must have the same dimension: %d != %d", len(a), len(b)),
			"cannot compare vectors")
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	// Zero vectors compare as orthogonal to everything.
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Float32SliceToBytes converts a slice of float32 to a byte slice.
// The layout is a little-endian int32 length followed by the values.
func Float32SliceToBytes(floats []float32) ([]byte, error) {
	buf := new(bytes.Buffer)

	err := binary.Write(buf, binary.LittleEndian, int32(len(floats)))
	if err != nil {
		return nil, fmt.Errorf("failed to write vector length: %w", err)
	}

	err = binary.Write(buf, binary.LittleEndian, floats)
	if err != nil {
		return nil, fmt.Errorf("failed to write vector values: %w", err)
	}

	return buf.Bytes(), nil
}

// BytesToFloat32Slice converts a byte slice back to a slice of float32.
func BytesToFloat32Slice(data []byte) ([]float32, error) {
	buf := bytes.NewReader(data)

	var length int32
	err := binary.Read(buf, binary.LittleEndian, &length)
	if err != nil {
		return nil, fmt.Errorf("failed to read vector length: %w", err)
	}
	if length < 0 {
		return nil, fmt.Errorf("invalid vector length: %d", length)
	}

	floats := make([]float32, length)
	err = binary.Read(buf, binary.LittleEndian, floats)
	if err != nil {
		return nil, fmt.Errorf("failed to read vector values: %w", err)
	}

	return floats, nil
}
