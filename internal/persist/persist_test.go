package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/mcqrag/internal/qerrors"
)

func TestLoadJSONL_MissingFileIsEmptyBank(t *testing.T) {
	rows, err := LoadJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.jsonl")

	n, err := SaveJSONL(path, []any{
		map[string]any{"qid": "a", "stem": "first"},
		map[string]any{"qid": "b", "stem": "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := LoadJSONL(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0]["qid"])
	assert.Equal(t, "second", rows[1]["stem"])
}

func TestSaveJSONL_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "bank.jsonl")
	_, err := SaveJSONL(path, []any{map[string]any{"qid": "a"}})
	require.NoError(t, err)

	rows, err := LoadJSONL(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestLoadJSONL_MalformedLineReportsLineNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"qid\":\"a\"}\nnot json\n"), 0o644))

	_, err := LoadJSONL(path)
	require.Error(t, err)
	assert.Equal(t, qerrors.CodePersistParse, qerrors.GetCode(err))

	var qe *qerrors.Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 2, qe.Details["line"])
}

func TestLoadJSONL_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"qid\":\"a\"}\n\n   \n{\"qid\":\"b\"}\n"), 0o644))

	rows, err := LoadJSONL(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
