package store

import (
	"sort"

	"github.com/Aman-CERP/mcqrag/internal/textutil"
)

// VectorIndex is an in-memory dense vector store scored by exact cosine
// similarity. It does not approximate: every query walks every stored
// vector of matching dimension, which is acceptable at the bank sizes this
// engine targets and keeps search results byte-reproducible.
type VectorIndex struct {
	rows map[string][]float64
}

// NewVectorIndex returns an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{rows: make(map[string][]float64)}
}

// Upsert overwrites the vector stored for each row's qid.
func (idx *VectorIndex) Upsert(rows []VectorRow) {
	for _, row := range rows {
		idx.rows[row.QID] = row.Vector
	}
}

// Remove deletes the given qids, if present.
func (idx *VectorIndex) Remove(qids []string) {
	for _, qid := range qids {
		delete(idx.rows, qid)
	}
}

// Search returns the top-k stored vectors by cosine similarity to vector,
// skipping any whose length differs from vector's and any with a
// non-positive score. Ties are broken by qid ascending for determinism.
func (idx *VectorIndex) Search(vector []float64, topK int) []Hit {
	if len(vector) == 0 {
		return []Hit{}
	}

	out := make([]Hit, 0, len(idx.rows))
	for qid, v := range idx.rows {
		if len(v) != len(vector) {
			continue
		}
		score := textutil.CosineSimilarity(vector, v)
		if score <= 0 {
			continue
		}
		out = append(out, Hit{QID: qid, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].QID < out[j].QID
	})
	if topK >= 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
