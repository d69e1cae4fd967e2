// Package search turns per-channel retrieval (sparse, dense, image) into a
// single fused ranking, then refines the top candidates with a pair-wise
// reranker. Nothing here mutates engine state; every function is a query
// against indexes owned by the caller.
package search

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/mcqrag/internal/store"
)

// Channels bundles the indexes a retrieval call reads from.
type Channels struct {
	BM25         *store.BM25Index
	StemVectors  *store.VectorIndex
	ExplVectors  *store.VectorIndex
	ImageVectors *store.VectorIndex
	// ImageOwner maps an image's own id to the qid of the question that
	// owns it, so image hits can be attributed back to a question.
	ImageOwner map[string]string
}

// Request is the per-retrieval-call input to channel candidate selection.
type Request struct {
	QueryText   string
	QueryVector []float64
	ImageVector []float64
	TopK        int
	AllowedQIDs map[string]struct{}
}

// SparseCandidates runs the BM25 channel: an empty query text yields no
// candidates; otherwise results are restricted to AllowedQIDs.
func SparseCandidates(idx *store.BM25Index, req Request) []store.Hit {
	if strings.TrimSpace(req.QueryText) == "" {
		return []store.Hit{}
	}
	hits := idx.Search(req.QueryText, req.TopK)
	return filterAllowed(hits, req.AllowedQIDs)
}

// DenseCandidates runs the dense channel against both the stem and
// explanation vector indexes, keeping the maximum score per qid.
func DenseCandidates(stemIdx, explIdx *store.VectorIndex, req Request) []store.Hit {
	if len(req.QueryVector) == 0 {
		return []store.Hit{}
	}

	merged := make(map[string]float64)
	mergeMax(merged, stemIdx.Search(req.QueryVector, req.TopK))
	mergeMax(merged, explIdx.Search(req.QueryVector, req.TopK))

	out := make([]store.Hit, 0, len(merged))
	for qid, score := range merged {
		if _, ok := req.AllowedQIDs[qid]; !ok {
			continue
		}
		out = append(out, store.Hit{QID: qid, Score: score})
	}
	sortHitsDesc(out)
	if req.TopK >= 0 && len(out) > req.TopK {
		out = out[:req.TopK]
	}
	return out
}

// ImageCandidates runs the image channel against imageIdx, translating
// each image-row id to its owning question via owner, keeping the maximum
// score per owning qid. Results are not truncated beyond the query's
// TopK already applied at the index search.
func ImageCandidates(imageIdx *store.VectorIndex, owner map[string]string, req Request) []store.Hit {
	if len(req.ImageVector) == 0 {
		return []store.Hit{}
	}

	raw := imageIdx.Search(req.ImageVector, req.TopK)
	merged := make(map[string]float64)
	for _, hit := range raw {
		qid, ok := owner[hit.QID]
		if !ok {
			continue
		}
		if _, allowed := req.AllowedQIDs[qid]; !allowed {
			continue
		}
		if cur, exists := merged[qid]; !exists || hit.Score > cur {
			merged[qid] = hit.Score
		}
	}

	out := make([]store.Hit, 0, len(merged))
	for qid, score := range merged {
		out = append(out, store.Hit{QID: qid, Score: score})
	}
	sortHitsDesc(out)
	return out
}

// GatherChannels runs the three channels concurrently: they are
// independent reads over indexes frozen for the duration of a single
// retrieval call, so running them in parallel cannot change the result.
func GatherChannels(ctx context.Context, ch Channels, req Request) (sparse, dense, image []store.Hit, err error) {
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		sparse = SparseCandidates(ch.BM25, req)
		return nil
	})
	g.Go(func() error {
		dense = DenseCandidates(ch.StemVectors, ch.ExplVectors, req)
		return nil
	})
	g.Go(func() error {
		image = ImageCandidates(ch.ImageVectors, ch.ImageOwner, req)
		return nil
	})

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, nil, waitErr
	}
	return sparse, dense, image, nil
}

func filterAllowed(hits []store.Hit, allowed map[string]struct{}) []store.Hit {
	out := make([]store.Hit, 0, len(hits))
	for _, h := range hits {
		if _, ok := allowed[h.QID]; ok {
			out = append(out, h)
		}
	}
	return out
}

func mergeMax(into map[string]float64, hits []store.Hit) {
	for _, h := range hits {
		if cur, ok := into[h.QID]; !ok || h.Score > cur {
			into[h.QID] = h.Score
		}
	}
}
