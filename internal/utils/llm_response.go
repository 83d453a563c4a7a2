package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/phishing-detector/internal/core"
)

// LLMVerdict represents the structured response requested from LLM classifiers
type LLMVerdict struct {
	IsPhishing          bool    `json:"is_phishing"`
	PhishingProbability float64 `json:"phishing_probability"`
	Explanation         string  `json:"explanation"`
}

// ParseLLMVerdict parses a model response, tolerating prose around the JSON
// object. The probability is clamped to [0, 1].
func ParseLLMVerdict(responseText string) (*LLMVerdict, error) {
	var verdict LLMVerdict
	if err := json.Unmarshal([]byte(responseText), &verdict); err != nil {
		// Try to extract JSON from the text response
		jsonStart := strings.Index(responseText, "{")
		jsonEnd := strings.LastIndex(responseText, "}")
		if jsonStart < 0 || jsonEnd <= jsonStart {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &verdict); err != nil {
			return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}

	if verdict.PhishingProbability < 0 {
		verdict.PhishingProbability = 0
	}
	if verdict.PhishingProbability > 1 {
		verdict.PhishingProbability = 1
	}
	return &verdict, nil
}

// Prediction converts the verdict into a classifier prediction
func (v *LLMVerdict) Prediction(model string) *core.Prediction {
	label := core.LabelLegitimate
	if v.IsPhishing {
		label = core.LabelPhishing
	}
	return &core.Prediction{
		Label:                 label,
		PhishingProbability:   v.PhishingProbability,
		LegitimateProbability: 1 - v.PhishingProbability,
		Explanation:           v.Explanation,
		ModelUsed:             model,
	}
}
