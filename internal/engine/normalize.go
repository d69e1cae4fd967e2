package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Aman-CERP/mcqrag/internal/qerrors"
)

func resolveStem(row RawRow) string {
	if s := strings.TrimSpace(row.Stem); s != "" {
		return s
	}
	return strings.TrimSpace(row.StemMD)
}

func resolveExplanation(row RawRow) string {
	value := row.Explanation
	if value == "" {
		value = row.ExplanationMD
	}
	return strings.TrimSpace(value)
}

func normalizeOptions(row RawRow) []string {
	if row.OptionsMap != nil {
		var out []string
		for _, key := range []string{"A", "B", "C", "D"} {
			if v, ok := row.OptionsMap[key]; ok {
				if t := strings.TrimSpace(v); t != "" {
					out = append(out, t)
				}
			}
		}
		return out
	}
	var out []string
	for _, v := range row.Options {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func normalizeAnswer(answer string) string {
	return strings.ToUpper(strings.TrimSpace(answer))
}

func normalizeMetadata(row RawRow) map[string]any {
	metadata := make(map[string]any, len(row.Metadata))
	for k, v := range row.Metadata {
		metadata[k] = v
	}
	if row.ID != "" {
		if _, ok := metadata["source_id"]; !ok {
			metadata["source_id"] = row.ID
		}
	}
	if row.Area != "" {
		if _, ok := metadata["area"]; !ok {
			metadata["area"] = row.Area
		}
	}
	if row.Subject != "" {
		if _, ok := metadata["subject"]; !ok {
			metadata["subject"] = row.Subject
		}
	}
	if row.Topic != "" {
		if _, ok := metadata["topic"]; !ok {
			metadata["topic"] = row.Topic
		}
	}
	if row.Difficulty != nil {
		if _, ok := metadata["difficulty"]; !ok {
			metadata["difficulty"] = row.Difficulty
		}
	}
	if row.SkillIDs != nil {
		if _, ok := metadata["skillIds"]; !ok {
			metadata["skillIds"] = row.SkillIDs
		}
	}
	return metadata
}

// normalizeImages converts raw image rows into QuestionImage values,
// synthesising an embedding from caption+OCR text when none was supplied.
func (e *Engine) normalizeImages(rows []RawImage, qid string) []QuestionImage {
	out := make([]QuestionImage, 0, len(rows))
	for idx, img := range rows {
		imageID := img.ImageID
		if imageID == "" {
			imageID = fmt.Sprintf("%s_img_%d", qid, idx+1)
		}
		vector := img.ImageVector
		if len(vector) == 0 {
			vector = e.embedder.Encode(img.Caption + "\n" + img.OCRText)
		} else if len(vector) != e.config.DenseDim {
			dimErr := qerrors.New(qerrors.CodeVectorDimMismatch, "image vector dimension mismatch", nil).
				WithDetail("qid", qid).
				WithDetail("image_id", imageID).
				WithDetail("got", len(vector)).
				WithDetail("want", e.config.DenseDim).
				WithSuggestion("re-embed the image with the configured dense_dim or omit imageVector so the engine derives one")
			e.logger.Warn(dimErr.Error(), "qid", qid, "image_id", imageID, "got", len(vector), "want", e.config.DenseDim, "suggestion", dimErr.Suggestion)
		}
		out = append(out, QuestionImage{
			ImageID:     imageID,
			Path:        img.Path,
			OCRText:     img.OCRText,
			Caption:     img.Caption,
			ImageVector: vector,
		})
	}
	return out
}

// metadataJSON renders metadata for the field-weighted BM25 document text.
// json.Marshal sorts map keys, so the same metadata always renders to the
// same string.
func metadataJSON(metadata map[string]any) string {
	data, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(data)
}
