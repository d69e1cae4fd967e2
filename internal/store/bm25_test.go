package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBM25Index_EmptyQueryOrIndex(t *testing.T) {
	idx := NewBM25Index()
	assert.Equal(t, []Hit{}, idx.Search("anything", 10))

	idx.AddDocuments([]TextRow{{QID: "a", Text: "the cat sat"}})
	assert.Equal(t, []Hit{}, idx.Search("", 10))
}

func TestBM25Index_RanksMatchingTermsHigher(t *testing.T) {
	idx := NewBM25Index()
	idx.AddDocuments([]TextRow{
		{QID: "a", Text: "derivative of a polynomial function"},
		{QID: "b", Text: "history of the roman empire"},
	})

	hits := idx.Search("derivative polynomial", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "a", hits[0].QID)
}

func TestBM25Index_TopKTruncates(t *testing.T) {
	idx := NewBM25Index()
	idx.AddDocuments([]TextRow{
		{QID: "a", Text: "apple apple apple"},
		{QID: "b", Text: "apple apple"},
		{QID: "c", Text: "apple"},
	})

	hits := idx.Search("apple", 2)
	assert.Len(t, hits, 2)
}

func TestBM25Index_ReplacesExistingDocument(t *testing.T) {
	idx := NewBM25Index()
	idx.AddDocuments([]TextRow{{QID: "a", Text: "apple"}})
	idx.AddDocuments([]TextRow{{QID: "a", Text: "banana"}})

	assert.Empty(t, idx.Search("apple", 10))
	assert.NotEmpty(t, idx.Search("banana", 10))
}

func TestBM25Index_RemoveDocuments(t *testing.T) {
	idx := NewBM25Index()
	idx.AddDocuments([]TextRow{
		{QID: "a", Text: "apple"},
		{QID: "b", Text: "apple"},
	})
	idx.RemoveDocuments([]string{"a"})

	hits := idx.Search("apple", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].QID)
}

func TestBM25Index_OnlyPositiveScoresReturned(t *testing.T) {
	idx := NewBM25Index()
	idx.AddDocuments([]TextRow{{QID: "a", Text: "apple"}})

	assert.Empty(t, idx.Search("unrelated term", 10))
}
