package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndex_EmptyQueryReturnsEmpty(t *testing.T) {
	idx := NewVectorIndex()
	idx.Upsert([]VectorRow{{QID: "a", Vector: []float64{1, 0}}})
	assert.Equal(t, []Hit{}, idx.Search(nil, 10))
}

func TestVectorIndex_SkipsMismatchedDimensions(t *testing.T) {
	idx := NewVectorIndex()
	idx.Upsert([]VectorRow{
		{QID: "a", Vector: []float64{1, 0}},
		{QID: "b", Vector: []float64{1, 0, 0}},
	})

	hits := idx.Search([]float64{1, 0}, 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].QID)
}

func TestVectorIndex_RanksByCosineDescending(t *testing.T) {
	idx := NewVectorIndex()
	idx.Upsert([]VectorRow{
		{QID: "close", Vector: []float64{0.99, 0.01}},
		{QID: "far", Vector: []float64{0.1, 0.99}},
	})

	hits := idx.Search([]float64{1, 0}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "close", hits[0].QID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestVectorIndex_TopKTruncates(t *testing.T) {
	idx := NewVectorIndex()
	idx.Upsert([]VectorRow{
		{QID: "a", Vector: []float64{1, 0}},
		{QID: "b", Vector: []float64{0.9, 0.1}},
		{QID: "c", Vector: []float64{0.8, 0.2}},
	})

	hits := idx.Search([]float64{1, 0}, 2)
	assert.Len(t, hits, 2)
}

func TestVectorIndex_RemoveDeletesEntry(t *testing.T) {
	idx := NewVectorIndex()
	idx.Upsert([]VectorRow{{QID: "a", Vector: []float64{1, 0}}})
	idx.Remove([]string{"a"})

	assert.Empty(t, idx.Search([]float64{1, 0}, 10))
}

func TestVectorIndex_NegativeCosineExcluded(t *testing.T) {
	idx := NewVectorIndex()
	idx.Upsert([]VectorRow{{QID: "a", Vector: []float64{-1, 0}}})

	assert.Empty(t, idx.Search([]float64{1, 0}, 10))
}

func TestVectorIndex_TieBreakByQIDAscending(t *testing.T) {
	idx := NewVectorIndex()
	idx.Upsert([]VectorRow{
		{QID: "z", Vector: []float64{1, 0}},
		{QID: "a", Vector: []float64{1, 0}},
	})

	hits := idx.Search([]float64{1, 0}, 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].QID)
	assert.Equal(t, "z", hits[1].QID)
}
