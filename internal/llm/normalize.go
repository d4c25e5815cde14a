package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	maxStrengths       = 6
	maxWeaknesses      = 6
	maxMissingKeywords = 12
	maxSuggestions     = 3
	maxNextActions     = 3
)

// ParseReview normalizes a raw provider payload into a Review. It fails with
// ErrInvalidResponse when the payload is not JSON or when rewriteSuggestions
// or nextActions end up empty after normalization; those are contract
// violations the caller must not silently accept.
func ParseReview(raw []byte, model string) (Review, error) {
	cleaned := stripCodeFence(string(raw))

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Review{}, fmt.Errorf("%w: non-JSON content: %v", ErrInvalidResponse, err)
	}

	review := Review{
		Score:              toScore(parsed["score"]),
		Strengths:          takeStrings(parsed["strengths"], maxStrengths),
		Weaknesses:         takeStrings(parsed["weaknesses"], maxWeaknesses),
		MissingKeywords:    takeStrings(parsed["missingKeywords"], maxMissingKeywords),
		RewriteSuggestions: takeSuggestions(parsed["rewriteSuggestions"], maxSuggestions),
		NextActions:        takeStrings(parsed["nextActions"], maxNextActions),
		Model:              model,
	}

	if len(review.RewriteSuggestions) == 0 {
		return Review{}, fmt.Errorf("%w: missing rewriteSuggestions", ErrInvalidResponse)
	}
	if len(review.NextActions) == 0 {
		return Review{}, fmt.Errorf("%w: missing nextActions", ErrInvalidResponse)
	}
	return review, nil
}

// toScore coerces the score to a number, rounds it, and clamps to [0,100].
// Anything non-numeric or non-finite becomes 0.
func toScore(value any) int {
	var parsed float64
	switch v := value.(type) {
	case float64:
		parsed = v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		parsed = f
	default:
		return 0
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	rounded := math.Round(parsed)
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return int(rounded)
}

func takeStrings(value any, max int) []string {
	list, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
		if len(out) == max {
			break
		}
	}
	return out
}

func takeSuggestions(value any, max int) []RewriteSuggestion {
	list, ok := value.([]any)
	if !ok {
		return []RewriteSuggestion{}
	}
	out := make([]RewriteSuggestion, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		before := trimField(obj["before"])
		after := trimField(obj["after"])
		why := trimField(obj["why"])
		if before == "" || after == "" || why == "" {
			continue
		}
		out = append(out, RewriteSuggestion{Before: before, After: after, Why: why})
		if len(out) == max {
			break
		}
	}
	return out
}

func trimField(value any) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// stripCodeFence removes a surrounding markdown fence some models emit even
// when asked for bare JSON.
func stripCodeFence(input string) string {
	clean := strings.TrimSpace(input)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
