package config

import (
	"fmt"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity).
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Modern SSL modes only; allow/prefer are deprecated.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	if err := c.Search.validate(); err != nil {
		return err
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr cannot be empty", ErrInvalidListenAddr)
	}

	return nil
}

// validate rejects negative weights. Zero is allowed: it disables a signal.
func (s SearchConfig) validate() error {
	weights := map[string]float64{
		"similarity_weight":   s.SimilarityWeight,
		"exact_phrase_bonus":  s.ExactPhraseBonus,
		"concept_content":     s.ConceptContent,
		"concept_essence":     s.ConceptEssence,
		"keyword_content":     s.KeywordContent,
		"keyword_essence":     s.KeywordEssence,
		"keyword_tag":         s.KeywordTag,
		"category_hint":       s.CategoryHint,
		"recency_day":         s.RecencyDay,
		"recency_week":        s.RecencyWeek,
		"recency_month":       s.RecencyMonth,
		"intent_action_bonus": s.IntentActionBonus,
	}
	for name, v := range weights {
		if v < 0 {
			return fmt.Errorf("%w: search.%s must not be negative, got %v", ErrInvalidSearchWeight, name, v)
		}
	}
	return nil
}
