package store

import (
	"math"
	"sort"

	"github.com/Aman-CERP/mcqrag/internal/textutil"
)

// DefaultK1 and DefaultB are the Okapi BM25 tuning constants used when a
// BM25Index is constructed with NewBM25Index.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

type posting struct {
	qid string
	tf  int
}

// BM25Index is an in-memory inverted index scored with Okapi BM25. It is
// not safe for concurrent use; the engine's single-writer contract (§5)
// covers it.
type BM25Index struct {
	k1 float64
	b  float64

	docTokens map[string][]string
	docLen    map[string]int
	inverted  map[string][]posting
	totalDocs int
	avgDocLen float64
}

// NewBM25Index returns an empty index using the Okapi defaults.
func NewBM25Index() *BM25Index {
	return NewBM25IndexWithParams(DefaultK1, DefaultB)
}

// NewBM25IndexWithParams returns an empty index with explicit k1/b.
func NewBM25IndexWithParams(k1, b float64) *BM25Index {
	return &BM25Index{
		k1:        k1,
		b:         b,
		docTokens: make(map[string][]string),
		docLen:    make(map[string]int),
		inverted:  make(map[string][]posting),
	}
}

// AddDocuments tokenises each row's text, replaces any existing entry for
// that qid, and rebuilds every derived structure.
func (idx *BM25Index) AddDocuments(rows []TextRow) {
	for _, row := range rows {
		idx.docTokens[row.QID] = textutil.Tokenize(row.Text)
	}
	idx.rebuild()
}

// RemoveDocuments deletes the given qids, if present, and rebuilds.
func (idx *BM25Index) RemoveDocuments(qids []string) {
	for _, qid := range qids {
		delete(idx.docTokens, qid)
	}
	idx.rebuild()
}

func (idx *BM25Index) rebuild() {
	idx.docLen = make(map[string]int, len(idx.docTokens))
	idx.inverted = make(map[string][]posting)

	totalLen := 0
	for qid, tokens := range idx.docTokens {
		totalLen += len(tokens)
		idx.docLen[qid] = len(tokens)

		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}
		for term, count := range tf {
			idx.inverted[term] = append(idx.inverted[term], posting{qid: qid, tf: count})
		}
	}

	idx.totalDocs = len(idx.docTokens)
	if idx.totalDocs > 0 {
		idx.avgDocLen = float64(totalLen) / float64(idx.totalDocs)
	} else {
		idx.avgDocLen = 0
	}
}

// Search tokenises query into a set of distinct terms, scores every
// document that shares at least one term, and returns the documents with
// strictly positive score sorted descending, truncated to topK.
func (idx *BM25Index) Search(query string, topK int) []Hit {
	terms := uniqueTokens(textutil.Tokenize(query))
	if len(terms) == 0 || idx.totalDocs == 0 {
		return []Hit{}
	}

	scores := make(map[string]float64)
	avgdl := idx.avgDocLen
	if avgdl < 1.0 {
		avgdl = 1.0
	}

	for _, term := range terms {
		postings := idx.inverted[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1 + (float64(idx.totalDocs)-df+0.5)/(df+0.5))
		for _, p := range postings {
			dl := idx.docLen[p.qid]
			if dl < 1 {
				dl = 1
			}
			num := float64(p.tf) * (idx.k1 + 1)
			den := float64(p.tf) + idx.k1*(1-idx.b+idx.b*(float64(dl)/avgdl))
			scores[p.qid] += idf * (num / den)
		}
	}

	out := make([]Hit, 0, len(scores))
	for qid, score := range scores {
		if score > 0 {
			out = append(out, Hit{QID: qid, Score: score})
		}
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

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
