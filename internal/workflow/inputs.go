package workflow

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ImageInputs describes an image prompt request.
type ImageInputs struct {
	Subject     string `json:"subject" validate:"required,max=500"`
	Style       string `json:"style" validate:"required,oneof=photorealistic illustration 3d anime watercolor"`
	AspectRatio string `json:"aspect_ratio" validate:"required,oneof=1:1 16:9 9:16 4:3"`
	Mood        string `json:"mood" validate:"omitempty,max=120"`
}

// VideoInputs describes a video prompt request.
type VideoInputs struct {
	Subject         string `json:"subject" validate:"required,max=500"`
	Platform        string `json:"platform" validate:"required,oneof=youtube tiktok instagram"`
	DurationSeconds int    `json:"duration_seconds" validate:"required,min=5,max=180"`
	Style           string `json:"style" validate:"omitempty,oneof=cinematic vlog tutorial documentary"`
}

// WebsiteInputs describes a website copy request.
type WebsiteInputs struct {
	BusinessName string   `json:"business_name" validate:"required,max=200"`
	Industry     string   `json:"industry" validate:"required,max=200"`
	Sections     []string `json:"sections" validate:"required,min=1,dive,oneof=hero about services pricing contact faq"`
	Tone         string   `json:"tone" validate:"omitempty,oneof=professional playful bold minimal"`
}

// AdInputs describes an ad copy request.
type AdInputs struct {
	Product      string `json:"product" validate:"required,max=300"`
	Audience     string `json:"audience" validate:"required,max=300"`
	Platform     string `json:"platform" validate:"required,oneof=google facebook instagram linkedin"`
	CallToAction string `json:"call_to_action" validate:"omitempty,max=120"`
}

// ParseInputs strictly decodes and validates the raw inputs payload for a
// workflow kind. Unknown fields are rejected, not ignored. The function is
// pure: no I/O, deterministic for a given payload.
func ParseInputs(kind Kind, raw []byte) (any, error) {
	var target any
	switch kind {
	case KindImage:
		target = &ImageInputs{}
	case KindVideo:
		target = &VideoInputs{}
	case KindWebsite:
		target = &WebsiteInputs{}
	case KindAd:
		target = &AdInputs{}
	default:
		return nil, &ValidationError{Violations: []Violation{{Field: "type", Rule: "oneof"}}}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, decodeError(err)
	}

	if err := checkStruct(target); err != nil {
		return nil, err
	}
	return target, nil
}

func decodeError(err error) error {
	msg := err.Error()
	// json.Decoder reports unknown fields as: json: unknown field "x"
	if idx := strings.Index(msg, `unknown field "`); idx >= 0 {
		field := msg[idx+len(`unknown field "`):]
		field = strings.TrimSuffix(field, `"`)
		return &ValidationError{Violations: []Violation{{Field: field, Rule: "unknown"}}}
	}
	return &ValidationError{Violations: []Violation{{Field: "inputs", Rule: "malformed"}}}
}
