package search

import (
	"github.com/Aman-CERP/mcqrag/internal/embed"
	"github.com/Aman-CERP/mcqrag/internal/textutil"
)

// RerankPairScore scores how well doc_text answers queryText, combining
// lexical token overlap, embedding cosine similarity, and the channel's own
// dense score. The result is always in [0, 1].
func RerankPairScore(queryText, docText string, denseScore float64, embedder embed.Embedder) float64 {
	overlap := tokenOverlap(queryText, docText)

	qv := embedder.Encode(queryText)
	dv := embedder.Encode(docText)
	cos := dotProduct(qv, dv)

	return textutil.Clamp01(
		0.5*overlap +
			0.3*textutil.Clamp01((cos+1)/2) +
			0.2*textutil.Clamp01((denseScore+1)/2),
	)
}

func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}

	minLen := len(setA)
	if len(setB) < minLen {
		minLen = len(setB)
	}
	if minLen < 1 {
		minLen = 1
	}
	return float64(inter) / float64(minLen)
}

func tokenSet(s string) map[string]struct{} {
	tokens := textutil.Tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func dotProduct(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
