package namegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"qiming/entity"
)

const fallbackScore = 90

type namesEnvelope struct {
	Names []nameEntry `json:"names"`
}

type nameEntry struct {
	Name           string   `json:"name"`
	FullName       string   `json:"full_name"`
	Pinyin         string   `json:"pinyin"`
	Meaning        string   `json:"meaning"`
	CulturalSource string   `json:"cultural_source"`
	WuxingAnalysis string   `json:"wuxing_analysis"`
	Score          *float64 `json:"score"`
	Highlight      string   `json:"highlight"`
	MbtiTendency   string   `json:"mbti_tendency"`
}

// stripFences removes an optional markdown code fence around the JSON body.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = content[len("```json"):]
	} else if strings.HasPrefix(content, "```") {
		content = content[len("```"):]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// parseNames decodes the completion body into name results. Every id is
// replaced with a fresh uuid: the model assigns pseudo-random ids that
// collide across batches. A missing score falls back to 90; any score is
// clamped to [0,100].
func parseNames(content string) ([]entity.NameResult, error) {
	var envelope namesEnvelope
	if err := json.Unmarshal([]byte(stripFences(content)), &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Names == nil {
		return nil, fmt.Errorf("response has no names field")
	}

	names := make([]entity.NameResult, 0, len(envelope.Names))
	for i, item := range envelope.Names {
		if item.Name == "" || item.FullName == "" || item.Pinyin == "" {
			return nil, fmt.Errorf("name %d is missing required fields", i+1)
		}
		score := fallbackScore
		if item.Score != nil {
			score = int(*item.Score)
		}
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		names = append(names, entity.NameResult{
			Id:             uuid.NewString(),
			Name:           item.Name,
			FullName:       item.FullName,
			Pinyin:         item.Pinyin,
			Meaning:        item.Meaning,
			CulturalSource: item.CulturalSource,
			WuxingAnalysis: item.WuxingAnalysis,
			Score:          score,
			Highlight:      item.Highlight,
			MbtiTendency:   item.MbtiTendency,
		})
	}
	return names, nil
}

// mergeNames joins two batches, dropping later entries whose full name was
// already seen. First-seen order is preserved.
func mergeNames(first, second []entity.NameResult) []entity.NameResult {
	seen := make(map[string]bool, len(first)+len(second))
	merged := make([]entity.NameResult, 0, len(first)+len(second))
	for _, batch := range [][]entity.NameResult{first, second} {
		for _, name := range batch {
			if seen[name.FullName] {
				continue
			}
			seen[name.FullName] = true
			merged = append(merged, name)
		}
	}
	return merged
}
