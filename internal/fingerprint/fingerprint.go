// Package fingerprint derives the two hashes the engine uses to recognise
// duplicate and near-duplicate questions: an exact hash over the full
// normalised content, and a template hash over the stem alone with numeric
// literals masked out.
package fingerprint

import (
	"strings"

	"github.com/Aman-CERP/mcqrag/internal/textutil"
)

// ExactHash returns a stable fingerprint of stem, options, and answer. Two
// questions produce the same exact hash iff their normalised stem, ordered
// option list, and answer all match.
func ExactHash(stem string, options []string, answer string) string {
	normalizedOptions := make([]string, len(options))
	for i, o := range options {
		normalizedOptions[i] = textutil.NormalizeText(o)
	}

	payload := textutil.NormalizeText(stem) + "||" +
		strings.Join(normalizedOptions, "|") + "||" +
		textutil.NormalizeText(answer)

	return textutil.StableHash(payload)
}

// TemplateHash returns a fingerprint of stem with every numeric literal
// masked to "<num>", so two questions that differ only in the numbers they
// plug into an otherwise identical stem share the same template hash.
func TemplateHash(stem string) string {
	return textutil.StableHash(textutil.NormalizeTemplateText(stem))
}
