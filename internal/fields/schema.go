package fields

// BuildRulesJSONSchema returns the schema that rules override documents
// must satisfy. Every table is a non-empty list of non-empty strings and
// unknown keys are rejected so typos fail loudly instead of silently
// keeping the defaults.
func BuildRulesJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"doc_number_keywords": keywordTable(),
			"date_keywords":       keywordTable(),
			"total_keywords":      keywordTable(),
			"legal_suffixes":      keywordTable(),
			"sector_keywords":     keywordTable(),
			"address_indicators":  keywordTable(),
			"address_stops":       keywordTable(),
			"item_start_keywords": keywordTable(),
			"item_end_keywords":   keywordTable(),
			"item_block_list":     keywordTable(),
			"max_items": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": 500,
			},
		},
	}
}

func keywordTable() map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": 1,
		"items": map[string]any{
			"type":      "string",
			"minLength": 1,
		},
	}
}
