// Package engine implements the hybrid question retrieval and
// deduplication engine: ingestion with exact/near duplicate detection,
// hybrid sparse+dense+image retrieval with reranking, offline evaluation,
// and JSONL bank persistence.
package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/mcqrag/internal/config"
	"github.com/Aman-CERP/mcqrag/internal/embed"
	"github.com/Aman-CERP/mcqrag/internal/extract"
	"github.com/Aman-CERP/mcqrag/internal/fingerprint"
	"github.com/Aman-CERP/mcqrag/internal/persist"
	"github.com/Aman-CERP/mcqrag/internal/qerrors"
	"github.com/Aman-CERP/mcqrag/internal/search"
	"github.com/Aman-CERP/mcqrag/internal/store"
	"github.com/Aman-CERP/mcqrag/internal/textutil"
)

// docVectors holds the per-document dense vectors the indexes are
// rebuilt from: the stem vector always exists, the explanation vector is
// nil when the document has no explanation.
type docVectors struct {
	stem []float64
	exp  []float64
}

// Engine owns the question bank and every index derived from it. It is
// not safe for concurrent use from multiple goroutines without external
// synchronisation; callers that need that should serialize their own
// Ingest/Retrieve calls.
type Engine struct {
	config     config.RAGConfig
	embedder   embed.Embedder
	logger     *slog.Logger
	fileParser extract.FileParser

	docs            map[string]QuestionDocument
	vectors         map[string]docVectors
	exactHashMap    map[string]string
	templateHashMap map[string][]string

	bm25       *store.BM25Index
	stemIndex  *store.VectorIndex
	explIndex  *store.VectorIndex
	imageIndex *store.VectorIndex
	imageOwner map[string]string
}

// Ingest normalizes and stores every question in input, returning one
// IngestedQuestion per incoming row (direct questions then file rows, in
// that order) describing whether it was stored as new, or flagged as an
// exact or near duplicate of an existing question. All indexes are
// rebuilt once at the end of the batch.
func (e *Engine) Ingest(input IngestionInput) []IngestedQuestion {
	e.logger.Info("ingest start")
	normalized := e.normalizeInput(input)
	e.logger.Info("normalized incoming questions", "count", len(normalized))

	out := make([]IngestedQuestion, 0, len(normalized))
	for _, q := range normalized {
		if matched, ok := e.exactHashMap[q.Fingerprints["exact_hash"]]; ok {
			score := 1.0
			out = append(out, IngestedQuestion{Question: q, Status: StatusExactDuplicate, MatchedQID: matched, Score: &score})
			continue
		}

		if qid, score, found := e.findNearDuplicate(q); found && score >= e.config.NearDuplicateThreshold {
			s := score
			out = append(out, IngestedQuestion{Question: q, Status: StatusNearDuplicate, MatchedQID: qid, Score: &s})
		} else {
			out = append(out, IngestedQuestion{Question: q, Status: StatusNew})
		}

		e.storeQuestion(q)
	}

	e.rebuildIndexes()
	e.logger.Info("ingest done", "total_docs", len(e.docs))
	return out
}

// Retrieve runs the full hybrid retrieval pipeline: channel gathering,
// fusion, reranking of the top RerankTopM candidates, classification, and
// truncation to the top FinalTopN results.
func (e *Engine) Retrieve(query QueryInput) RetrievalResponse {
	started := time.Now()
	e.logger.Info("retrieve start", "text_len", len(query.Text), "question_id", query.QuestionID)

	queryText := e.resolveQueryText(query)
	topK := query.TopK
	if topK <= 0 {
		topK = e.config.BM25TopK
	}
	topM := query.TopM
	if topM <= 0 {
		topM = e.config.RerankTopM
	}
	topN := query.TopN
	if topN <= 0 {
		topN = e.config.FinalTopN
	}

	allowed := e.filterQIDs(query)
	if len(allowed) == 0 {
		e.logger.Warn("retrieve empty due to filters", "filters", query.Filters)
		return RetrievalResponse{
			TookMS: time.Since(started).Milliseconds(),
			Query:  query,
			Counts: map[string]int{
				"bm25Candidates":     0,
				"denseCandidates":    0,
				"imageCandidates":    0,
				"fusedCandidates":    0,
				"rerankedCandidates": 0,
				"finalResults":       0,
			},
			Results: []RetrievalResult{},
		}
	}

	var queryVector []float64
	if queryText != "" {
		queryVector = e.embedder.Encode(queryText)
	}

	req := search.Request{
		QueryText:   queryText,
		QueryVector: queryVector,
		ImageVector: query.ImageVector,
		TopK:        topK,
		AllowedQIDs: allowed,
	}

	// Each channel's candidate budget is independently configured, so the
	// three run as separate calls rather than through GatherChannels
	// (which shares one Request's TopK across all three); they are still
	// independent reads over indexes frozen for this call.
	denseReq := req
	denseReq.TopK = e.config.DenseTopK
	imageReq := req
	imageReq.TopK = e.config.ImageTopK

	bm25Hits := search.SparseCandidates(e.bm25, req)
	denseHits := search.DenseCandidates(e.stemIndex, e.explIndex, denseReq)
	imageHits := search.ImageCandidates(e.imageIndex, e.imageOwner, imageReq)

	weights := search.Weights{
		Sparse: e.config.SparseWeight,
		Dense:  e.config.DenseWeight,
		Image:  e.config.ImageWeight,
		RRF:    e.config.RRFWeight,
	}
	fused := search.Fuse(bm25Hits, denseHits, imageHits, weights, e.config.RRFK, len(query.ImageVector) > 0)

	rerankCandidates := fused
	if len(rerankCandidates) > topM {
		rerankCandidates = rerankCandidates[:topM]
	}

	bm25Map := hitScoreMap(bm25Hits)
	denseMap := hitScoreMap(denseHits)
	imageMap := hitScoreMap(imageHits)

	type rerankedRow struct {
		qid         string
		score       float64
		rerankScore float64
		bm25Score   *float64
		denseScore  *float64
		imageScore  *float64
		question    QuestionDocument
	}

	reranked := make([]rerankedRow, 0, len(rerankCandidates))
	for _, cand := range rerankCandidates {
		doc, ok := e.docs[cand.QID]
		if !ok {
			continue
		}
		docText := rerankText(doc)
		denseScore := denseMap[doc.QID]
		rr := search.RerankPairScore(queryText, docText, denseScore, e.embedder)

		row := rerankedRow{
			qid:         doc.QID,
			score:       cand.Score,
			rerankScore: rr,
			denseScore:  floatPtrIfPresent(denseMap, doc.QID),
			bm25Score:   floatPtrIfPresent(bm25Map, doc.QID),
			imageScore:  floatPtrIfPresent(imageMap, doc.QID),
			question:    doc,
		}
		reranked = append(reranked, row)
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].rerankScore > reranked[j].rerankScore
	})

	limit := len(reranked)
	if topN < limit {
		limit = topN
	}
	results := make([]RetrievalResult, 0, limit)
	for _, row := range reranked[:limit] {
		results = append(results, RetrievalResult{
			QID:            row.qid,
			Score:          row.score,
			BM25Score:      row.bm25Score,
			DenseScore:     row.denseScore,
			ImageScore:     row.imageScore,
			RerankScore:    row.rerankScore,
			DuplicateClass: e.classify(row.rerankScore),
			Reason:         reasonText(row.bm25Score, row.denseScore, row.imageScore, row.rerankScore),
			Question:       row.question,
		})
	}

	return RetrievalResponse{
		TookMS: time.Since(started).Milliseconds(),
		Query:  query,
		Counts: map[string]int{
			"bm25Candidates":     len(bm25Hits),
			"denseCandidates":    len(denseHits),
			"imageCandidates":    len(imageHits),
			"fusedCandidates":    len(fused),
			"rerankedCandidates": len(reranked),
			"finalResults":       len(results),
		},
		Results: results,
	}
}

// Evaluate computes recall@200, MRR@10, and nDCG@20 by retrieving against
// each record's source question stem and checking the ranking against
// its declared relevant qids.
func (e *Engine) Evaluate(records []EvalRecord) EvalMetrics {
	if len(records) == 0 {
		return EvalMetrics{}
	}

	var recallHits, recallTotal int
	var mrrSum, ndcgSum float64

	for _, rec := range records {
		source, ok := e.docs[rec.QueryQID]
		if !ok {
			continue
		}
		resp := e.Retrieve(QueryInput{Text: source.Stem, TopN: 200})

		ranked := make([]string, len(resp.Results))
		for i, r := range resp.Results {
			ranked[i] = r.QID
		}

		relevant := make(map[string]struct{}, len(rec.RelevantQIDs))
		for _, qid := range rec.RelevantQIDs {
			relevant[qid] = struct{}{}
		}
		if len(relevant) == 0 {
			continue
		}

		cap200 := ranked
		if len(cap200) > 200 {
			cap200 = cap200[:200]
		}
		for _, qid := range cap200 {
			if _, ok := relevant[qid]; ok {
				recallHits++
			}
		}
		recallTotal += len(relevant)

		cap10 := ranked
		if len(cap10) > 10 {
			cap10 = cap10[:10]
		}
		rr := 0.0
		for i, qid := range cap10 {
			if _, ok := relevant[qid]; ok {
				rr = 1.0 / float64(i+1)
				break
			}
		}
		mrrSum += rr

		cap20 := ranked
		if len(cap20) > 20 {
			cap20 = cap20[:20]
		}
		dcg := 0.0
		for i, qid := range cap20 {
			if _, ok := relevant[qid]; ok {
				dcg += 1.0 / math.Log2(float64(i+2))
			}
		}
		idealCount := len(relevant)
		if idealCount > 20 {
			idealCount = 20
		}
		idcg := 0.0
		for i := 0; i < idealCount; i++ {
			idcg += 1.0 / math.Log2(float64(i+2))
		}
		if idcg > 0 {
			ndcgSum += dcg / idcg
		}
	}

	denom := len(records)
	metrics := EvalMetrics{MRRAt10: mrrSum / float64(denom), NDCGAt20: ndcgSum / float64(denom)}
	if recallTotal > 0 {
		metrics.RecallAtK = float64(recallHits) / float64(recallTotal)
	}
	return metrics
}

// SaveLocalBank writes every stored document to path as JSONL.
func (e *Engine) SaveLocalBank(path string) (int, error) {
	rows := make([]any, 0, len(e.docs))
	for _, doc := range e.docs {
		rows = append(rows, doc)
	}
	count, err := persist.SaveJSONL(path, rows)
	if err != nil {
		return 0, err
	}
	e.logger.Info("saved local bank", "path", path, "count", count)
	return count, nil
}

// LoadLocalBank reads path and replaces the engine's state by replaying
// every row through Ingest, rather than restoring state directly: this
// recomputes fingerprints and vectors against the current embedder and
// config instead of trusting whatever produced the file.
func (e *Engine) LoadLocalBank(path string) (int, error) {
	rows, err := persist.LoadJSONL(path)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		e.logger.Warn("local bank load: file empty or not found", "path", path)
		return 0, nil
	}

	e.docs = make(map[string]QuestionDocument)
	e.vectors = make(map[string]docVectors)
	e.exactHashMap = make(map[string]string)
	e.templateHashMap = make(map[string][]string)

	questions := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, rawRowFromMap(row))
	}
	e.Ingest(IngestionInput{Questions: questions})

	e.logger.Info("loaded local bank", "path", path, "count", len(e.docs))
	return len(e.docs), nil
}

// ToJSON renders the engine's configuration and full document set as
// indented JSON.
func (e *Engine) ToJSON() (string, error) {
	docs := make([]QuestionDocument, 0, len(e.docs))
	for _, doc := range e.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].QID < docs[j].QID })

	data, err := json.MarshalIndent(map[string]any{
		"config": e.config,
		"docs":   docs,
	}, "", "  ")
	if err != nil {
		return "", qerrors.New(qerrors.CodePersistIO, "marshal engine state", err)
	}
	return string(data), nil
}

// Close releases no resources of its own; it exists so callers that hold
// an Engine alongside a logger they opened themselves have a symmetric
// shutdown call to make.
func (e *Engine) Close() error {
	return nil
}

func (e *Engine) normalizeInput(input IngestionInput) []QuestionDocument {
	out := make([]QuestionDocument, 0, len(input.Questions)+len(input.Files))

	for i, row := range input.Questions {
		stem := resolveStem(row)
		qid := row.QID
		if qid == "" {
			if row.ID != "" {
				qid = "q_" + row.ID
			} else {
				qid = "q_" + textutil.StableHash(fmt.Sprintf("%s:%d", stem, i))
			}
		}
		options := normalizeOptions(row)
		explanation := resolveExplanation(row)
		answer := normalizeAnswer(row.Answer)
		images := e.normalizeImages(row.Images, qid)
		metadata := normalizeMetadata(row)

		out = append(out, QuestionDocument{
			QID:         qid,
			Stem:        stem,
			Options:     options,
			Answer:      answer,
			Explanation: explanation,
			Images:      images,
			Tags:        append([]string{}, row.Tags...),
			Metadata:    metadata,
			Fingerprints: map[string]string{
				"exact_hash":    fingerprint.ExactHash(stem, options, answer),
				"template_hash": fingerprint.TemplateHash(stem),
			},
		})
	}

	for _, fileRow := range input.Files {
		parsed := e.fileParser.Parse(fileRow.Content)
		for _, p := range parsed {
			qid := "q_" + textutil.StableHash(fmt.Sprintf("%s:%d:%s", fileRow.FileID, p.SourceQuestionNo, p.Stem))
			questionNo := p.SourceQuestionNo
			out = append(out, QuestionDocument{
				QID:         qid,
				Stem:        p.Stem,
				Options:     append([]string{}, p.Options...),
				Answer:      p.Answer,
				Explanation: p.Explanation,
				Images:      []QuestionImage{},
				Tags:        []string{},
				Metadata: map[string]any{
					"sourceMimeType": fileRow.MimeType,
					"scanned":        fileRow.Scanned,
				},
				Fingerprints: map[string]string{
					"exact_hash":    fingerprint.ExactHash(p.Stem, p.Options, p.Answer),
					"template_hash": fingerprint.TemplateHash(p.Stem),
				},
				Source: &Source{FileID: fileRow.FileID, QuestionNo: questionNo},
			})
		}
	}

	return out
}

// findNearDuplicate searches the stem index as it stood before this
// document was stored, returning the best match's qid and score.
func (e *Engine) findNearDuplicate(q QuestionDocument) (qid string, score float64, found bool) {
	qv := e.embedder.Encode(stemText(q))
	hits := e.stemIndex.Search(qv, 5)
	if len(hits) == 0 {
		return "", 0, false
	}
	return hits[0].QID, hits[0].Score, true
}

func (e *Engine) storeQuestion(q QuestionDocument) {
	e.docs[q.QID] = q
	e.exactHashMap[q.Fingerprints["exact_hash"]] = q.QID
	e.templateHashMap[q.Fingerprints["template_hash"]] = append(e.templateHashMap[q.Fingerprints["template_hash"]], q.QID)

	stemVec := e.embedder.Encode(stemText(q))
	var expVec []float64
	if q.Explanation != "" {
		expVec = e.embedder.Encode(q.Explanation)
	}
	e.vectors[q.QID] = docVectors{stem: stemVec, exp: expVec}
}

// stemText is the text the stem vector (and near-duplicate search) is
// derived from: the stem followed by its options.
func stemText(q QuestionDocument) string {
	return strings.Join(append([]string{q.Stem}, q.Options...), "\n")
}

// rerankText is the full document text handed to the reranker: stem,
// options, then explanation.
func rerankText(q QuestionDocument) string {
	parts := append([]string{q.Stem}, q.Options...)
	parts = append(parts, q.Explanation)
	return strings.Join(parts, "\n")
}

func (e *Engine) rebuildIndexes() {
	docs := make([]QuestionDocument, 0, len(e.docs))
	for _, d := range e.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].QID < docs[j].QID })

	e.bm25 = store.NewBM25Index()
	e.stemIndex = store.NewVectorIndex()
	e.explIndex = store.NewVectorIndex()
	e.imageIndex = store.NewVectorIndex()
	e.imageOwner = make(map[string]string)

	textRows := make([]store.TextRow, 0, len(docs))
	stemRows := make([]store.VectorRow, 0, len(docs))
	var explRows []store.VectorRow
	var imageRows []store.VectorRow

	for _, d := range docs {
		var ocrTexts, captions []string
		for _, img := range d.Images {
			ocrTexts = append(ocrTexts, img.OCRText)
			captions = append(captions, img.Caption)
		}
		text := strings.Join([]string{
			d.Stem,
			d.Stem,
			strings.Join(d.Options, "\n"),
			d.Explanation,
			strings.Join(ocrTexts, " "),
			strings.Join(captions, " "),
			metadataJSON(d.Metadata),
		}, "\n")
		textRows = append(textRows, store.TextRow{QID: d.QID, Text: text})

		stemRows = append(stemRows, store.VectorRow{QID: d.QID, Vector: e.vectors[d.QID].stem})
		if exp := e.vectors[d.QID].exp; len(exp) > 0 {
			explRows = append(explRows, store.VectorRow{QID: d.QID, Vector: exp})
		}

		for _, img := range d.Images {
			if len(img.ImageVector) == 0 {
				continue
			}
			imageRows = append(imageRows, store.VectorRow{QID: img.ImageID, Vector: img.ImageVector})
			e.imageOwner[img.ImageID] = d.QID
		}
	}

	e.bm25.AddDocuments(textRows)
	e.stemIndex.Upsert(stemRows)
	e.explIndex.Upsert(explRows)
	e.imageIndex.Upsert(imageRows)
}

func (e *Engine) resolveQueryText(query QueryInput) string {
	if text := strings.TrimSpace(query.Text); text != "" {
		return text
	}
	if query.QuestionID != "" {
		if doc, ok := e.docs[query.QuestionID]; ok {
			return doc.Stem
		}
	}
	return ""
}

func (e *Engine) filterQIDs(query QueryInput) map[string]struct{} {
	out := make(map[string]struct{})
	for _, d := range e.docs {
		if !matchesFilters(d.Metadata, query.Filters) {
			continue
		}
		out[d.QID] = struct{}{}
	}
	return out
}

func matchesFilters(metadata map[string]any, filters map[string]any) bool {
	for _, key := range []string{"subject", "gradeLevel", "difficulty", "questionType", "examBoard", "year"} {
		want, present := filters[key]
		if !present || want == nil {
			continue
		}
		if metadata[key] != want {
			return false
		}
	}
	return true
}

func (e *Engine) classify(score float64) DuplicateClass {
	switch {
	case score >= e.config.DuplicateThreshold:
		return ClassDuplicate
	case score >= e.config.NearDuplicateThreshold:
		return ClassNearDuplicate
	case score >= 0.65:
		return ClassSimilar
	default:
		return ClassRelated
	}
}

func reasonText(bm25, dense, image *float64, rerank float64) string {
	var parts []string
	if bm25 != nil {
		parts = append(parts, fmt.Sprintf("bm25=%.3f", *bm25))
	}
	if dense != nil {
		parts = append(parts, fmt.Sprintf("dense=%.3f", *dense))
	}
	if image != nil {
		parts = append(parts, fmt.Sprintf("image=%.3f", *image))
	}
	parts = append(parts, fmt.Sprintf("rerank=%.3f", rerank))
	return strings.Join(parts, ", ")
}

func hitScoreMap(hits []store.Hit) map[string]float64 {
	out := make(map[string]float64, len(hits))
	for _, h := range hits {
		out[h.QID] = h.Score
	}
	return out
}

func floatPtrIfPresent(m map[string]float64, key string) *float64 {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}

// rawRowFromMap converts a generic JSONL row (as loaded by persist) back
// into a RawRow, so a saved bank can be replayed through Ingest.
func rawRowFromMap(row map[string]any) RawRow {
	out := RawRow{
		QID:         stringField(row, "qid"),
		Stem:        stringField(row, "stem"),
		Answer:      stringField(row, "answer"),
		Explanation: stringField(row, "explanation"),
	}
	if opts, ok := row["options"].([]any); ok {
		for _, o := range opts {
			if s, ok := o.(string); ok {
				out.Options = append(out.Options, s)
			}
		}
	}
	if tags, ok := row["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				out.Tags = append(out.Tags, s)
			}
		}
	}
	if md, ok := row["metadata"].(map[string]any); ok {
		out.Metadata = md
	}
	if src, ok := row["source"].(map[string]any); ok {
		out.Metadata = mergeSourceIntoMetadata(out.Metadata, src)
	}
	if imgs, ok := row["images"].([]any); ok {
		for _, raw := range imgs {
			im, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			out.Images = append(out.Images, RawImage{
				ImageID:     stringField(im, "imageId"),
				Path:        stringField(im, "path"),
				OCRText:     stringField(im, "ocrText"),
				Caption:     stringField(im, "caption"),
				ImageVector: floatSliceField(im, "imageVector"),
			})
		}
	}
	return out
}

func mergeSourceIntoMetadata(metadata map[string]any, source map[string]any) map[string]any {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	metadata["source"] = source
	return metadata
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func floatSliceField(m map[string]any, key string) []float64 {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}
