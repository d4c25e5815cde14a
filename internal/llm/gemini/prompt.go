package gemini

import (
	"encoding/json"
	"strings"

	"resume-review-backend/internal/llm"
)

const (
	defaultRoleTarget  = "Software Engineer"
	defaultTargetLevel = "Not specified"
)

// BuildPrompt assembles the single review prompt. The model is instructed to
// return strict JSON with explicit cardinality constraints; the normalizer in
// the llm package enforces them on the way back.
func BuildPrompt(input llm.ReviewInput) string {
	roleTarget := strings.TrimSpace(input.RoleTarget)
	if roleTarget == "" {
		roleTarget = defaultRoleTarget
	}
	targetLevel := strings.TrimSpace(input.TargetLevel)
	if targetLevel == "" {
		targetLevel = defaultTargetLevel
	}

	structured, err := json.MarshalIndent(input.Sections, "", "  ")
	if err != nil {
		structured = []byte("{}")
	}

	return strings.Join([]string{
		"You are an expert ATS and hiring resume reviewer for software roles.",
		"Analyze the resume and return STRICT JSON only (no markdown, no extra text).",
		"Use concise, actionable feedback.",
		"",
		"Required JSON shape:",
		"{",
		`  "score": number (0-100),`,
		`  "strengths": string[],`,
		`  "weaknesses": string[],`,
		`  "missingKeywords": string[],`,
		`  "rewriteSuggestions": [{"before": string, "after": string, "why": string}],`,
		`  "nextActions": string[]`,
		"}",
		"",
		"Constraints:",
		"- Provide 3-6 strengths",
		"- Provide 3-6 weaknesses",
		"- Provide 5-12 missingKeywords",
		"- Provide exactly 3 rewriteSuggestions",
		"- Provide exactly 3 nextActions",
		"- Score must reflect ATS readability + role alignment + measurable impact",
		"",
		"Target role: " + roleTarget,
		"Target level: " + targetLevel,
		"",
		"Parsed sections JSON:",
		string(structured),
		"",
		"Raw extracted resume text:",
		input.RawText,
	}, "\n")
}
