package workflow

import (
	"encoding/json"
)

// Engine output schemas, one per kind. Every kind produces at least the
// generated prompt text; extra fields returned by the engine are tolerated,
// missing required fields are not.

type ImageOutput struct {
	Prompt         string `json:"prompt" validate:"required"`
	NegativePrompt string `json:"negative_prompt"`
	Model          string `json:"model"`
}

type VideoOutput struct {
	Prompt string   `json:"prompt" validate:"required"`
	Scenes []string `json:"scenes"`
}

type WebsiteOutput struct {
	Prompt   string            `json:"prompt" validate:"required"`
	Headline string            `json:"headline"`
	Sections map[string]string `json:"sections"`
}

type AdOutput struct {
	Prompt   string   `json:"prompt" validate:"required"`
	Variants []string `json:"variants"`
}

// ValidateOutput checks an engine response body against the output schema
// for a workflow kind. A 2xx transport result with a body failing this gate
// is still a failed run.
func ValidateOutput(kind Kind, raw []byte) error {
	var target any
	switch kind {
	case KindImage:
		target = &ImageOutput{}
	case KindVideo:
		target = &VideoOutput{}
	case KindWebsite:
		target = &WebsiteOutput{}
	case KindAd:
		target = &AdOutput{}
	default:
		return &ValidationError{Violations: []Violation{{Field: "type", Rule: "oneof"}}}
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return &ValidationError{Violations: []Violation{{Field: "body", Rule: "malformed"}}}
	}
	return checkStruct(target)
}
