package search

import (
	"sort"

	"github.com/Aman-CERP/mcqrag/internal/store"
)

// Weights are the per-channel contribution weights used by Fuse. They
// normally come straight from config.RAGConfig.
type Weights struct {
	Sparse float64
	Dense  float64
	Image  float64
	RRF    float64
}

// The rrfK parameter of rrfFuse and Fuse is the Reciprocal Rank Fusion
// smoothing constant; config.RAGConfig.RRFK holds its default (60).

// rrfFuse computes Reciprocal Rank Fusion over the given ranked lists, in
// the fixed order (sparse, dense, image): every row at 0-based position i
// in a list contributes 1/(rrfK+i+1) to that qid's RRF score.
func rrfFuse(rankings [][]store.Hit, rrfK int) []store.Hit {
	merged := make(map[string]float64)
	for _, rows := range rankings {
		for i, row := range rows {
			merged[row.QID] += 1.0 / float64(rrfK+i+1)
		}
	}
	out := make([]store.Hit, 0, len(merged))
	for qid, score := range merged {
		out = append(out, store.Hit{QID: qid, Score: score})
	}
	sortHitsDesc(out)
	return out
}

// normalizeByMax divides every score by the list's maximum, returning an
// empty map if the list is empty or its maximum is not strictly positive.
func normalizeByMax(hits []store.Hit) map[string]float64 {
	if len(hits) == 0 {
		return map[string]float64{}
	}
	max := hits[0].Score
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	if max <= 0 {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(hits))
	for _, h := range hits {
		out[h.QID] = h.Score / max
	}
	return out
}

// Fuse combines the three channels' hit lists into a single ranked list,
// exactly per the hybrid fusion recipe: weight reallocation when there is
// no image query, independent max-normalisation per channel, a separate
// RRF pass over the three rankings (max-normalised in turn), and a
// weighted sum. Only qids with a strictly positive fused score are
// emitted, sorted descending.
func Fuse(sparse, dense, image []store.Hit, weights Weights, rrfK int, hasImageQuery bool) []store.Hit {
	sparseW, denseW, imageW := weights.Sparse, weights.Dense, weights.Image
	if !hasImageQuery && imageW > 0 {
		sparseW += imageW / 2
		denseW += imageW / 2
		imageW = 0
	}

	sparseNorm := normalizeByMax(sparse)
	denseNorm := normalizeByMax(dense)
	imageNorm := normalizeByMax(image)

	rrf := rrfFuse([][]store.Hit{sparse, dense, image}, rrfK)
	rrfNorm := normalizeByMax(rrf)

	qids := make(map[string]struct{})
	for _, rows := range [][]store.Hit{sparse, dense, image, rrf} {
		for _, row := range rows {
			qids[row.QID] = struct{}{}
		}
	}

	out := make([]store.Hit, 0, len(qids))
	for qid := range qids {
		score := sparseW*sparseNorm[qid] + denseW*denseNorm[qid] + imageW*imageNorm[qid] + weights.RRF*rrfNorm[qid]
		if score > 0 {
			out = append(out, store.Hit{QID: qid, Score: score})
		}
	}
	sortHitsDesc(out)
	return out
}

func sortHitsDesc(hits []store.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].QID < hits[j].QID
	})
}
