package config

// defaultWeightValues returns the default relevance scoring weights keyed by
// their viper config names under "search.".
//
// These values are carried over from the production ranking behavior. They
// are not known to be optimal; tune via config, not by editing constants.
func defaultWeightValues() map[string]float64 {
	return map[string]float64{
		"similarity_weight":   15.0,
		"exact_phrase_bonus":  10.0,
		"concept_content":     5.0,
		"concept_essence":     3.0,
		"keyword_content":     2.0,
		"keyword_essence":     1.0,
		"keyword_tag":         1.5,
		"category_hint":       4.0,
		"recency_day":         3.0,
		"recency_week":        2.0,
		"recency_month":       1.0,
		"intent_action_bonus": 2.0,
	}
}
