package search

import (
	"strings"
	"time"

	"github.com/lorekeep/lorekeep/internal/config"
)

// score computes the deterministic additive relevance of one hit.
// Every bonus comes from the configured weights; with identical inputs
// and weights the score is fully reproducible.
func (e *Engine) score(query string, plan queryPlan, hintNames map[string]bool, h *Hit) float64 {
	w := e.weights
	content := strings.ToLower(h.Item.RawContent)
	essence := strings.ToLower(h.Item.Essence)

	score := h.Similarity * w.SimilarityWeight

	if phrase := strings.ToLower(strings.TrimSpace(query)); phrase != "" && strings.Contains(content, phrase) {
		score += w.ExactPhraseBonus
	}

	for _, c := range plan.Concepts {
		c = strings.ToLower(c)
		if c == "" {
			continue
		}
		if strings.Contains(content, c) {
			score += w.ConceptContent
		}
		if strings.Contains(essence, c) {
			score += w.ConceptEssence
		}
	}

	tagKeywords := make(map[string]bool, len(h.Item.Tags.Keywords))
	for _, k := range h.Item.Tags.Keywords {
		tagKeywords[strings.ToLower(k)] = true
	}

	for _, kw := range plan.Keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(content, kw) {
			score += w.KeywordContent
		}
		if strings.Contains(essence, kw) {
			score += w.KeywordEssence
		}
		if tagKeywords[kw] {
			score += w.KeywordTag
		}
	}

	if hintNames[strings.ToLower(h.CategoryName)] {
		score += w.CategoryHint
	}

	score += recencyBonus(w, time.Since(h.Item.CreatedAt))

	if plan.WantsActionables && len(h.Item.Tags.Actionables) > 0 {
		score += w.IntentActionBonus
	}

	return score
}

// recencyBonus rewards fresh items on a day/week/month ladder.
func recencyBonus(w config.SearchConfig, age time.Duration) float64 {
	switch {
	case age < 24*time.Hour:
		return w.RecencyDay
	case age < 7*24*time.Hour:
		return w.RecencyWeek
	case age < 30*24*time.Hour:
		return w.RecencyMonth
	default:
		return 0
	}
}

// previewRadius is how much context surrounds a matched keyword in a
// preview: 50 bytes before, 100 after.
const (
	previewBefore = 50
	previewAfter  = 100
	previewPlain  = 150
)

// preview extracts a snippet of content centered on the first matched
// keyword, or the head of the content when nothing matches.
func preview(content string, keywords []string) string {
	lower := strings.ToLower(content)

	pos := -1
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if i := strings.Index(lower, kw); i != -1 && (pos == -1 || i < pos) {
			pos = i
		}
	}

	if pos == -1 {
		if len(content) <= previewPlain {
			return content
		}
		return content[:previewPlain] + "..."
	}

	start := pos - previewBefore
	if start < 0 {
		start = 0
	}
	end := pos + previewAfter
	if end > len(content) {
		end = len(content)
	}

	snippet := content[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}
