// Package persist implements the engine's JSONL bank format: one JSON
// object per line, loaded back by re-ingesting rather than by restoring
// internal state directly. A gofrs/flock advisory lock guards each call
// against a second process touching the same bank file concurrently; it
// is a courtesy, not a substitute for the engine's own single-writer
// contract.
package persist

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/mcqrag/internal/qerrors"
)

// SaveJSONL marshals each row with json.Marshal and writes it as its own
// line to path, creating parent directories as needed. Returns the number
// of rows written.
func SaveJSONL(path string, rows []any) (int, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, qerrors.New(qerrors.CodePersistIO, "create bank directory", err).WithDetail("path", path)
		}
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return 0, qerrors.New(qerrors.CodePersistIO, "acquire bank lock", err).WithDetail("path", path)
	}
	defer lock.Unlock()

	var buf bytes.Buffer
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return 0, qerrors.New(qerrors.CodePersistIO, "marshal row", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, qerrors.New(qerrors.CodePersistIO, "write bank file", err).WithDetail("path", path)
	}
	return len(rows), nil
}

// LoadJSONL parses every non-blank line of path as a JSON object. A
// missing file is not an error: it returns (nil, nil), matching the
// engine's "missing file is an empty bank" contract. A malformed line
// fails the whole call with the offending 1-indexed line number attached.
func LoadJSONL(path string) ([]map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, qerrors.New(qerrors.CodePersistIO, "open bank file", err).WithDetail("path", path)
	}
	defer file.Close()

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, qerrors.New(qerrors.CodePersistIO, "acquire bank lock", err).WithDetail("path", path)
	}
	defer lock.Unlock()

	var rows []map[string]any
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, qerrors.New(qerrors.CodePersistParse, fmt.Sprintf("malformed JSON on line %d", lineNo), err).
				WithDetail("line", lineNo).WithDetail("path", path)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, qerrors.New(qerrors.CodePersistIO, "read bank file", err).WithDetail("path", path)
	}
	return rows, nil
}
