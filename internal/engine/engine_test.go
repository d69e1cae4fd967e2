package engine

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleRow(stem string, options []string, answer string) RawRow {
	return RawRow{Stem: stem, Options: options, Answer: answer}
}

func TestIngest_NewQuestionIsStored(t *testing.T) {
	e := New()
	out := e.Ingest(IngestionInput{Questions: []RawRow{
		simpleRow("What is 2+2?", []string{"3", "4", "5", "6"}, "B"),
	}})

	require.Len(t, out, 1)
	assert.Equal(t, StatusNew, out[0].Status)
	assert.Len(t, e.docs, 1)
}

func TestIngest_ExactDuplicateIsFlagged(t *testing.T) {
	e := New()
	row := simpleRow("What is 2+2?", []string{"3", "4", "5", "6"}, "B")
	e.Ingest(IngestionInput{Questions: []RawRow{row}})

	out := e.Ingest(IngestionInput{Questions: []RawRow{row}})
	require.Len(t, out, 1)
	assert.Equal(t, StatusExactDuplicate, out[0].Status)
	require.NotNil(t, out[0].Score)
	assert.Equal(t, 1.0, *out[0].Score)
	assert.Len(t, e.docs, 1, "duplicate must not be stored as a second document")
}

func TestIngest_NearDuplicateDifferentAnswerIsFlagged(t *testing.T) {
	e := New()
	e.Ingest(IngestionInput{Questions: []RawRow{
		simpleRow("What is the capital of France?", []string{"Paris", "Lyon", "Nice", "Dijon"}, "A"),
	}})

	out := e.Ingest(IngestionInput{Questions: []RawRow{
		simpleRow("What is the capital of France?", []string{"Paris", "Lyon", "Nice", "Dijon"}, "B"),
	}})
	require.Len(t, out, 1)
	assert.Equal(t, StatusNearDuplicate, out[0].Status)
	assert.NotEmpty(t, out[0].MatchedQID)
}

func TestIngest_DistinctQuestionsBothStored(t *testing.T) {
	e := New()
	out := e.Ingest(IngestionInput{Questions: []RawRow{
		simpleRow("What is 2+2?", []string{"3", "4"}, "B"),
		simpleRow("What is the chemical symbol for gold?", []string{"Au", "Ag", "Fe", "Pb"}, "A"),
	}})

	require.Len(t, out, 2)
	assert.Equal(t, StatusNew, out[0].Status)
	assert.Equal(t, StatusNew, out[1].Status)
	assert.Len(t, e.docs, 2)
}

func TestIngest_QIDDerivedFromRowID(t *testing.T) {
	e := New()
	e.Ingest(IngestionInput{Questions: []RawRow{
		{ID: "42", Stem: "A stem", Options: []string{"a", "b"}, Answer: "A"},
	}})
	_, ok := e.docs["q_42"]
	assert.True(t, ok)
}

func TestIngest_MetadataPromotedFromFlatFields(t *testing.T) {
	e := New()
	e.Ingest(IngestionInput{Questions: []RawRow{
		{Stem: "A stem", Options: []string{"a", "b"}, Answer: "A", Subject: "Math", Area: "Algebra"},
	}})
	for _, doc := range e.docs {
		assert.Equal(t, "Math", doc.Metadata["subject"])
		assert.Equal(t, "Algebra", doc.Metadata["area"])
	}
}

func TestRetrieve_FindsLexicallyMatchingQuestion(t *testing.T) {
	e := New()
	e.Ingest(IngestionInput{Questions: []RawRow{
		simpleRow("What is the derivative of x squared?", []string{"x", "2x", "x^2", "2"}, "B"),
		simpleRow("What is the capital of Japan?", []string{"Tokyo", "Kyoto", "Osaka", "Nagoya"}, "A"),
	}})

	resp := e.Retrieve(QueryInput{Text: "derivative of x squared"})
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Results[0].Question.Stem, "derivative")
}

func TestRetrieve_EmptyFilterYieldsNoResults(t *testing.T) {
	e := New()
	e.Ingest(IngestionInput{Questions: []RawRow{
		{Stem: "A stem", Options: []string{"a", "b"}, Answer: "A", Subject: "Math"},
	}})

	resp := e.Retrieve(QueryInput{Text: "A stem", Filters: map[string]any{"subject": "Physics"}})
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.Counts["finalResults"])
}

func TestRetrieve_FilterMatchingSubjectReturnsResults(t *testing.T) {
	e := New()
	e.Ingest(IngestionInput{Questions: []RawRow{
		{Stem: "Photosynthesis occurs in plants", Options: []string{"a", "b"}, Answer: "A", Subject: "Biology"},
	}})

	resp := e.Retrieve(QueryInput{Text: "Photosynthesis occurs in plants", Filters: map[string]any{"subject": "Biology"}})
	assert.NotEmpty(t, resp.Results)
}

func TestRetrieve_QuestionIDResolvesQueryText(t *testing.T) {
	e := New()
	e.Ingest(IngestionInput{Questions: []RawRow{
		{ID: "7", Stem: "Unique stem about volcanoes", Options: []string{"a", "b"}, Answer: "A"},
	}})

	resp := e.Retrieve(QueryInput{QuestionID: "q_7"})
	assert.Equal(t, "Unique stem about volcanoes", resp.Query.Text)
}

func TestClassify_Buckets(t *testing.T) {
	e := New()
	assert.Equal(t, ClassDuplicate, e.classify(0.97))
	assert.Equal(t, ClassNearDuplicate, e.classify(0.90))
	assert.Equal(t, ClassSimilar, e.classify(0.70))
	assert.Equal(t, ClassRelated, e.classify(0.10))
}

func TestEvaluate_NoRecordsReturnsZeroMetrics(t *testing.T) {
	e := New()
	metrics := e.Evaluate(nil)
	assert.Equal(t, EvalMetrics{}, metrics)
}

func TestEvaluate_PerfectRecallWhenQuerySelfMatches(t *testing.T) {
	e := New()
	e.Ingest(IngestionInput{Questions: []RawRow{
		{ID: "1", Stem: "A very distinctive stem about tectonic plates", Options: []string{"a", "b"}, Answer: "A"},
	}})

	metrics := e.Evaluate([]EvalRecord{{QueryQID: "q_1", RelevantQIDs: []string{"q_1"}}})
	assert.Equal(t, 1.0, metrics.RecallAtK)
}

func TestSaveAndLoadLocalBank_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.jsonl")

	e1 := New()
	e1.Ingest(IngestionInput{Questions: []RawRow{
		simpleRow("What is 2+2?", []string{"3", "4", "5", "6"}, "B"),
		simpleRow("What is the chemical symbol for gold?", []string{"Au", "Ag"}, "A"),
	}})
	count, err := e1.SaveLocalBank(path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	e2 := New()
	loaded, err := e2.LoadLocalBank(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)
	assert.Len(t, e2.docs, 2)
}

func TestLoadLocalBank_MissingFileReturnsZero(t *testing.T) {
	e := New()
	count, err := e.LoadLocalBank(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestToJSON_ContainsConfigAndDocs(t *testing.T) {
	e := New()
	e.Ingest(IngestionInput{Questions: []RawRow{
		simpleRow("What is 2+2?", []string{"3", "4"}, "B"),
	}})

	out, err := e.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, out, "\"config\"")
	assert.Contains(t, out, "\"docs\"")
	assert.Contains(t, out, "What is 2+2?")
}

func TestIngest_FileRowsAreParsedAndStored(t *testing.T) {
	e := New()
	content := `1. What is the boiling point of water in Celsius?
A) 90
B) 100
C) 110
D) 120
Answer: B
Explanation: Water boils at 100C at sea level.`

	out := e.Ingest(IngestionInput{Files: []RawFile{
		{FileID: "file1", Content: content},
	}})

	require.Len(t, out, 1)
	assert.Equal(t, StatusNew, out[0].Status)
	require.NotNil(t, out[0].Question.Source)
	assert.Equal(t, "file1", out[0].Question.Source.FileID)
}

func TestIngest_MismatchedImageVectorDimensionLogsWarning(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	e := New(WithLogger(logger))

	out := e.Ingest(IngestionInput{Questions: []RawRow{{
		Stem:    "What is 2+2?",
		Options: []string{"3", "4", "5", "6"},
		Answer:  "B",
		Images:  []RawImage{{ImageID: "img1", ImageVector: []float64{1, 0}}},
	}}})

	require.Len(t, out, 1)
	assert.Contains(t, logBuf.String(), "ERR_VECTOR_DIM_MISMATCH")
	assert.Contains(t, logBuf.String(), "img1")
}
