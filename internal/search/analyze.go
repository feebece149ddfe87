package search

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// queryPlan is the model's reading of a search query.
type queryPlan struct {
	Keywords         []string `json:"keywords"`
	Concepts         []string `json:"concepts"`
	CategoryHints    []string `json:"category_hints"`
	TimeWindow       string   `json:"time_window"`
	WantsActionables bool     `json:"wants_actionables"`
}

// analyzePromptTmpl asks the model to decompose a search query.
// %s placeholder: the query.
const analyzePromptTmpl = `You are a search query analyzer for a personal knowledge base. Decompose the query below.

Rules:
- "keywords": 2-8 lowercase terms worth matching literally. Include the query's own significant words.
- "concepts": broader topics the query is about, beyond its literal words.
- "category_hints": category names the answer likely lives in, empty if unsure.
- "time_window": "day", "week", "month", or "" when the query implies no recency ("today" means "day", "recently" means "week").
- "wants_actionables": true when the user asks for tasks, todos, or things to do.

Output format: JSON object.
Example: {"keywords": ["kubernetes", "ingress"], "concepts": ["networking"], "category_hints": ["Work Infrastructure"], "time_window": "", "wants_actionables": false}

Query: %s

Respond with JSON only:`

// analyzeQuery asks the model for a retrieval plan, falling back to
// tokenizing the raw query when the model fails. The returned bool
// marks the degraded path.
func (e *Engine) analyzeQuery(ctx context.Context, query string) (queryPlan, bool) {
	var plan queryPlan
	err := e.llm.Analyze(ctx, fmt.Sprintf(analyzePromptTmpl, query), &plan)
	if err != nil {
		e.logger.Warn("query analysis failed, tokenizing query", "error", err)
		return fallbackPlan(query), true
	}
	if len(plan.Keywords) == 0 {
		plan.Keywords = tokenize(query)
	}
	return plan, false
}

// fallbackPlan builds a plan from the raw query alone.
func fallbackPlan(query string) queryPlan {
	return queryPlan{Keywords: tokenize(query)}
}

// stopwords are query tokens too common to be useful as keywords.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true,
	"in": true, "on": true, "to": true, "for": true, "with": true,
	"about": true, "what": true, "when": true, "where": true,
	"who": true, "how": true, "did": true, "do": true, "i": true,
	"my": true, "me": true, "is": true, "are": true, "was": true,
}

// tokenize splits a query into lowercase keyword candidates.
func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
