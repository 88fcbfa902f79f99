// Package embed provides vector embedding generation with two cache
// layers: a persistent, process-wide disk cache for corpus text and a
// small in-memory LRU for query text.
package embed

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// Common embedding constants.
const (
	// DefaultBatchSize matches the provider's documented batch limit.
	DefaultBatchSize = 128

	// MaxBatchSize prevents memory exhaustion on misconfiguration.
	MaxBatchSize = 256

	// DefaultTimeout is the default timeout for embedding requests.
	DefaultTimeout = 60 * time.Second

	// DefaultDimensions is the embedding dimension for voyage-2.
	DefaultDimensions = 1024
)

// ErrUnavailable indicates the embedding provider could not be reached
// or returned a non-success status. Callers own the retry policy.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// EncodeVector serializes a vector as little-endian float32 bytes.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector deserializes little-endian float32 bytes.
func DecodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
