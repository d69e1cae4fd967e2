// Package extract supplies the external collaborator the engine's
// file-ingestion path consumes: something that turns raw file content into
// parsed question rows. The engine assumes nothing about how a FileParser
// obtains its text (plain text, OCR, PDF extraction, ...).
package extract

import (
	"regexp"
	"strings"
)

// ParsedQuestion is one question recovered from a file's raw content.
type ParsedQuestion struct {
	Stem             string
	Options          []string
	Answer           string
	Explanation      string
	SourceQuestionNo int
}

// FileParser turns raw file content into a sequence of parsed questions.
type FileParser interface {
	Parse(content string) []ParsedQuestion
}

var (
	questionBoundary = regexp.MustCompile(`(?i)(?:^|\n)\s*(?:question\s*\d+[).:]|\d+[).:])\s+`)
	answerLine       = regexp.MustCompile(`(?i)\banswer\s*[:\-]\s*([A-D])\b`)
	explanationLine  = regexp.MustCompile(`(?is)\bexplanation\s*[:\-]\s*(.*)$`)
	optionSplit      = regexp.MustCompile(`(?i)\n\s*[A-D][).:\-]\s+`)
	optionLine       = regexp.MustCompile(`(?i)^\s*[A-D][).:\-]\s*(.+)$`)
)

// PlainTextParser recovers MCQs from a loosely structured text document:
// each question starts with a "Question N)" or "N." boundary, options
// follow as "A) ...", "B) ...", and "Answer:"/"Explanation:" lines close
// the record.
type PlainTextParser struct{}

// NewPlainTextParser returns a PlainTextParser.
func NewPlainTextParser() *PlainTextParser {
	return &PlainTextParser{}
}

// Parse implements FileParser.
func (p *PlainTextParser) Parse(content string) []ParsedQuestion {
	text := strings.TrimSpace(strings.ReplaceAll(content, "\r", ""))
	if text == "" {
		return nil
	}

	chunks := splitNonEmpty(questionBoundary.Split(text, -1))
	if len(chunks) == 0 {
		chunks = []string{text}
	}

	out := make([]ParsedQuestion, 0, len(chunks))
	for i, chunk := range chunks {
		stem := strings.TrimSpace(optionSplit.Split(chunk, 2)[0])
		if stem == "" {
			continue
		}

		var options []string
		for _, line := range strings.Split(chunk, "\n") {
			if m := optionLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				options = append(options, strings.TrimSpace(m[1]))
			}
		}

		answer := ""
		if m := answerLine.FindStringSubmatch(chunk); m != nil {
			answer = strings.ToUpper(m[1])
		}

		explanation := ""
		if m := explanationLine.FindStringSubmatch(chunk); m != nil {
			explanation = strings.TrimSpace(m[1])
		}

		out = append(out, ParsedQuestion{
			Stem:             stem,
			Options:          options,
			Answer:           answer,
			Explanation:      explanation,
			SourceQuestionNo: i + 1,
		})
	}
	return out
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
