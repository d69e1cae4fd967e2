package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ingestPayload = `{
  "questions": [
    {"stem": "What is the capital of France?", "options": ["Paris", "Lyon", "Nice", "Dijon"], "answer": "A"}
  ]
}`

func TestIngestCmd_NewQuestionIsStored(t *testing.T) {
	// Given: an empty bank and a payload with one new question
	tmpDir := t.TempDir()
	bank := filepath.Join(tmpDir, "bank.jsonl")
	input := filepath.Join(tmpDir, "input.json")
	require.NoError(t, os.WriteFile(input, []byte(ingestPayload), 0644))

	// When: running ingest against the empty bank
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "--bank", bank, "--input", input})

	err := rootCmd.Execute()

	// Then: no error, the bank file now exists, and the summary reports one new row
	require.NoError(t, err)
	assert.FileExists(t, bank)
	assert.Contains(t, buf.String(), "new: 1")
}

func TestIngestCmd_SecondIngestFlagsExactDuplicate(t *testing.T) {
	// Given: a bank that already holds the question
	tmpDir := t.TempDir()
	bank := filepath.Join(tmpDir, "bank.jsonl")
	input := filepath.Join(tmpDir, "input.json")
	require.NoError(t, os.WriteFile(input, []byte(ingestPayload), 0644))

	first := NewRootCmd()
	first.SetOut(&bytes.Buffer{})
	first.SetArgs([]string{"ingest", "--bank", bank, "--input", input})
	require.NoError(t, first.Execute())

	// When: ingesting the identical payload again
	second := NewRootCmd()
	buf := &bytes.Buffer{}
	second.SetOut(buf)
	second.SetArgs([]string{"ingest", "--bank", bank, "--input", input})
	err := second.Execute()

	// Then: it is reported as an exact duplicate, not a new row
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "exact duplicates: 1")
}

func TestIngestCmd_RequiresInputFlag(t *testing.T) {
	// Given: an ingest command invoked with no --input
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})

	// When: executing
	err := rootCmd.Execute()

	// Then: cobra reports the missing required flag
	require.Error(t, err)
}
