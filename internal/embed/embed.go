// Package embed provides the deterministic, model-free text embedder the
// engine uses for its dense retrieval channel, plus an LRU-caching decorator
// for repeated calls against the same text.
package embed

import (
	"math"

	"github.com/Aman-CERP/mcqrag/internal/textutil"
)

// DefaultDim is the dimensionality DeterministicHashEmbedder uses when none
// is specified.
const DefaultDim = 512

// Embedder turns text into a fixed-length vector. Implementations must be
// pure functions of their input: same text in, same vector out.
type Embedder interface {
	Encode(text string) []float64
}

// DeterministicHashEmbedder produces a unit vector by hashing each token of
// the input into a signed bucket. It requires no trained model and is
// reproducible across processes and languages that share the same
// textutil.StableHash recipe.
type DeterministicHashEmbedder struct {
	dim int
}

// NewDeterministicHashEmbedder returns an embedder producing vectors of
// dimension dim. A non-positive dim falls back to DefaultDim.
func NewDeterministicHashEmbedder(dim int) *DeterministicHashEmbedder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &DeterministicHashEmbedder{dim: dim}
}

// Encode returns a unit-length vector of the embedder's configured
// dimension. An empty token list returns an all-zero vector, as does a
// non-empty one whose bucket contributions happen to cancel exactly.
func (e *DeterministicHashEmbedder) Encode(text string) []float64 {
	out := make([]float64, e.dim)

	tokens := textutil.Tokenize(text)
	if len(tokens) == 0 {
		return out
	}

	for _, token := range tokens {
		h := textutil.StableHash(token)
		bucket := hexPrefixMod(h[0:8], e.dim)
		sign := 1.0
		if hexPrefixMod(h[8:16], 2) != 0 {
			sign = -1.0
		}
		out[bucket] += sign
	}

	var sumSq float64
	for _, v := range out {
		sumSq += v * v
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] /= norm
	}
	return out
}

func hexPrefixMod(hexDigits string, mod int) int {
	var v uint64
	for _, c := range hexDigits {
		v = v*16 + uint64(hexDigitValue(byte(c)))
	}
	return int(v % uint64(mod))
}

func hexDigitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return 0
	}
}
