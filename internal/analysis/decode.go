package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

// cleanModelJSON strips markdown fences and any prose around the JSON body.
// Models occasionally wrap the object despite instructions; the payload is
// whatever sits between the first opening brace and the last closing one.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// decodeAnalysis parses a model completion into an AnalysisResult. The parse
// is lenient: unknown keys are ignored and missing keys default to empty
// slices or a zeroed summary. Only a body that fails to decode as a JSON
// object at all is an error.
func decodeAnalysis(raw string) (*domain.AnalysisResult, error) {
	body := cleanModelJSON(raw)

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, fmt.Errorf("decodeAnalysis: %w", err)
	}

	if result.SuggestedCategories == nil {
		result.SuggestedCategories = []domain.CategorySuggestion{}
	}
	if result.DuplicateDetection == nil {
		result.DuplicateDetection = []domain.DuplicateFlag{}
	}
	if result.AnomalyDetection == nil {
		result.AnomalyDetection = []domain.AnomalyFlag{}
	}
	if result.CounterpartyMapping == nil {
		result.CounterpartyMapping = []domain.CounterpartyMapping{}
	}
	if result.Reconciliation == nil {
		result.Reconciliation = []domain.ReconciliationHint{}
	}
	return &result, nil
}
