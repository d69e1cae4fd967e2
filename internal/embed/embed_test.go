package embed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicHashEmbedder_EmptyText(t *testing.T) {
	e := NewDeterministicHashEmbedder(8)
	vec := e.Encode("")
	require.Len(t, vec, 8)
	for _, v := range vec {
		assert.Equal(t, 0.0, v)
	}
}

func TestDeterministicHashEmbedder_Deterministic(t *testing.T) {
	e := NewDeterministicHashEmbedder(DefaultDim)
	a := e.Encode("find the derivative of x^2")
	b := e.Encode("find the derivative of x^2")
	assert.Equal(t, a, b)
}

func TestDeterministicHashEmbedder_UnitNorm(t *testing.T) {
	e := NewDeterministicHashEmbedder(DefaultDim)
	vec := e.Encode("a sentence with several distinct tokens in it")

	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	norm := math.Sqrt(sumSq)
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestDeterministicHashEmbedder_DefaultDim(t *testing.T) {
	e := NewDeterministicHashEmbedder(0)
	assert.Equal(t, DefaultDim, e.dim)
}

func TestDeterministicHashEmbedder_DifferentTextDiffers(t *testing.T) {
	e := NewDeterministicHashEmbedder(DefaultDim)
	a := e.Encode("alpha beta gamma")
	b := e.Encode("delta epsilon zeta")
	assert.NotEqual(t, a, b)
}

// fakeEmbedder counts calls so CachedEmbedder tests can assert cache hits
// avoid recomputation.
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Encode(text string) []float64 {
	f.calls++
	return []float64{float64(len(text))}
}

func TestCachedEmbedder_CachesRepeatedCalls(t *testing.T) {
	inner := &fakeEmbedder{}
	cached := NewCachedEmbedder(inner, 4)

	a := cached.Encode("hello")
	b := cached.Encode("hello")

	assert.Equal(t, a, b)
	assert.Equal(t, 1, inner.calls, "second call for the same text should hit the cache")
}

func TestCachedEmbedder_DistinctTextMisses(t *testing.T) {
	inner := &fakeEmbedder{}
	cached := NewCachedEmbedder(inner, 4)

	cached.Encode("hello")
	cached.Encode("world")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_NonPositiveSizeFallsBackToDefault(t *testing.T) {
	cached := NewCachedEmbedder(&fakeEmbedder{}, 0)
	require.NotNil(t, cached.cache)
}
