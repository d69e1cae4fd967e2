package engine

import "encoding/json"

// QuestionImage is one image attached to a QuestionDocument.
type QuestionImage struct {
	ImageID     string    `json:"imageId"`
	Path        string    `json:"path,omitempty"`
	OCRText     string    `json:"ocrText,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	ImageVector []float64 `json:"imageVector,omitempty"`
}

// Source records where a question came from when it was produced by the
// file-ingestion path rather than supplied directly.
type Source struct {
	FileID     string `json:"fileId"`
	QuestionNo int    `json:"questionNo"`
}

// QuestionDocument is the canonical stored unit: a single MCQ plus its
// derived fingerprints and bookkeeping metadata.
type QuestionDocument struct {
	QID          string            `json:"qid"`
	Stem         string            `json:"stem"`
	Options      []string          `json:"options"`
	Answer       string            `json:"answer,omitempty"`
	Explanation  string            `json:"explanation,omitempty"`
	Images       []QuestionImage   `json:"images"`
	Tags         []string          `json:"tags"`
	Metadata     map[string]any    `json:"metadata"`
	Fingerprints map[string]string `json:"fingerprints"`
	Source       *Source           `json:"source,omitempty"`
}

// DedupStatus is the outcome of ingesting a single row.
type DedupStatus string

const (
	StatusNew             DedupStatus = "new"
	StatusExactDuplicate  DedupStatus = "exact-duplicate"
	StatusNearDuplicate   DedupStatus = "near-duplicate"
)

// DuplicateClass buckets a retrieval result by its rerank score.
type DuplicateClass string

const (
	ClassDuplicate     DuplicateClass = "duplicate"
	ClassNearDuplicate DuplicateClass = "near-duplicate"
	ClassSimilar       DuplicateClass = "similar"
	ClassRelated       DuplicateClass = "related"
)

// IngestedQuestion is the per-row result of Engine.Ingest.
type IngestedQuestion struct {
	Question   QuestionDocument `json:"question"`
	Status     DedupStatus      `json:"status"`
	MatchedQID string           `json:"matchedQid,omitempty"`
	Score      *float64         `json:"score,omitempty"`
}

// RawImage is the raw shape of an image entry in an incoming row, before
// normalisation.
type RawImage struct {
	ImageID     string    `json:"imageId,omitempty"`
	Path        string    `json:"path,omitempty"`
	OCRText     string    `json:"ocrText,omitempty"`
	Caption     string    `json:"caption,omitempty"`
	ImageVector []float64 `json:"imageVector,omitempty"`
}

// RawFile is a file-ingestion row: opaque content handed to the
// configured FileParser.
type RawFile struct {
	FileID   string `json:"fileId"`
	MimeType string `json:"mimeType,omitempty"`
	Scanned  bool   `json:"scanned,omitempty"`
	Content  string `json:"content"`
}

// RawRow is a single incoming question row, accepting both current and
// legacy key shapes (stem/stem_md, explanation/explanation_md, id/qid).
type RawRow struct {
	QID           string         `json:"qid,omitempty"`
	ID            string         `json:"id,omitempty"`
	Stem          string         `json:"stem,omitempty"`
	StemMD        string         `json:"stem_md,omitempty"`
	Options       []string       `json:"options,omitempty"`
	OptionsMap    map[string]string `json:"-"`
	Answer        string         `json:"answer,omitempty"`
	Explanation   string         `json:"explanation,omitempty"`
	ExplanationMD string         `json:"explanation_md,omitempty"`
	Images        []RawImage     `json:"images,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Area          string         `json:"area,omitempty"`
	Subject       string         `json:"subject,omitempty"`
	Topic         string         `json:"topic,omitempty"`
	Difficulty    any            `json:"difficulty,omitempty"`
	SkillIDs      []string       `json:"skillIds,omitempty"`
}

// rawRowShape mirrors RawRow but carries "options" as raw JSON, so
// UnmarshalJSON can decide at runtime whether it is a list or a
// legacy "A".."D" object.
type rawRowShape struct {
	QID           string          `json:"qid,omitempty"`
	ID            string          `json:"id,omitempty"`
	Stem          string          `json:"stem,omitempty"`
	StemMD        string          `json:"stem_md,omitempty"`
	Options       json.RawMessage `json:"options,omitempty"`
	Answer        string          `json:"answer,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	ExplanationMD string          `json:"explanation_md,omitempty"`
	Images        []RawImage      `json:"images,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	Area          string          `json:"area,omitempty"`
	Subject       string          `json:"subject,omitempty"`
	Topic         string          `json:"topic,omitempty"`
	Difficulty    any             `json:"difficulty,omitempty"`
	SkillIDs      []string        `json:"skillIds,omitempty"`
}

// UnmarshalJSON accepts "options" as either a JSON array (the current
// shape) or a JSON object keyed "A".."D" (the legacy shape), matching
// _normalize_options' tolerance for both.
func (r *RawRow) UnmarshalJSON(data []byte) error {
	var shape rawRowShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}

	*r = RawRow{
		QID: shape.QID, ID: shape.ID, Stem: shape.Stem, StemMD: shape.StemMD,
		Answer: shape.Answer, Explanation: shape.Explanation, ExplanationMD: shape.ExplanationMD,
		Images: shape.Images, Tags: shape.Tags, Metadata: shape.Metadata,
		Area: shape.Area, Subject: shape.Subject, Topic: shape.Topic,
		Difficulty: shape.Difficulty, SkillIDs: shape.SkillIDs,
	}

	if len(shape.Options) == 0 {
		return nil
	}
	var asList []string
	if err := json.Unmarshal(shape.Options, &asList); err == nil {
		r.Options = asList
		return nil
	}
	var asMap map[string]string
	if err := json.Unmarshal(shape.Options, &asMap); err == nil {
		r.OptionsMap = asMap
	}
	return nil
}

// IngestionInput is the payload to Engine.Ingest.
type IngestionInput struct {
	Version   int        `json:"version,omitempty"`
	Questions []RawRow   `json:"questions,omitempty"`
	Files     []RawFile  `json:"files,omitempty"`
}

// QueryInput is the payload to Engine.Retrieve.
type QueryInput struct {
	Text        string         `json:"text,omitempty"`
	ImageVector []float64      `json:"imageVector,omitempty"`
	QuestionID  string         `json:"questionId,omitempty"`
	Filters     map[string]any `json:"filters,omitempty"`
	TopK        int            `json:"topK,omitempty"`
	TopM        int            `json:"topM,omitempty"`
	TopN        int            `json:"topN,omitempty"`
}

// RetrievalResult is one ranked candidate from Engine.Retrieve.
type RetrievalResult struct {
	QID            string           `json:"qid"`
	Score          float64          `json:"score"`
	BM25Score      *float64         `json:"bm25Score,omitempty"`
	DenseScore     *float64         `json:"denseScore,omitempty"`
	ImageScore     *float64         `json:"imageScore,omitempty"`
	RerankScore    float64          `json:"rerankScore"`
	DuplicateClass DuplicateClass   `json:"duplicateClass"`
	Reason         string           `json:"reason"`
	Question       QuestionDocument `json:"question"`
}

// RetrievalResponse is the return value of Engine.Retrieve.
type RetrievalResponse struct {
	TookMS  int64             `json:"tookMs"`
	Query   QueryInput        `json:"query"`
	Counts  map[string]int    `json:"counts"`
	Results []RetrievalResult `json:"results"`
}

// EvalRecord is one input row to Engine.Evaluate.
type EvalRecord struct {
	QueryQID     string   `json:"queryQid"`
	RelevantQIDs []string `json:"relevantQids"`
}

// EvalMetrics is the return value of Engine.Evaluate.
type EvalMetrics struct {
	RecallAtK float64 `json:"recallAtK"`
	MRRAt10   float64 `json:"mrrAt10"`
	NDCGAt20  float64 `json:"ndcgAt20"`
}
