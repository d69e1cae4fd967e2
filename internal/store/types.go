// Package store provides the two index structures the engine's retrieval
// channels run against: an in-memory Okapi BM25 inverted index and a
// brute-force cosine similarity vector index. Both are pure functions of
// their current contents — there is no persistence or background work
// here, only the arithmetic the engine's rebuild step relies on.
package store

// Hit is a single scored result from either index, the shared currency
// between BM25Index.Search and VectorIndex.Search.
type Hit struct {
	QID   string
	Score float64
}

// TextRow is one document handed to BM25Index.AddDocuments: the
// already-assembled field-weighted text for a single qid.
type TextRow struct {
	QID  string
	Text string
}

// VectorRow is one entry handed to VectorIndex.Upsert.
type VectorRow struct {
	QID    string
	Vector []float64
}
