// Package workflow defines the typed payloads exchanged with the automation
// engine, one input and one output schema per workflow kind, selected by the
// "type" discriminator at the API boundary.
package workflow

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind is the workflow discriminator.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindWebsite Kind = "website"
	KindAd      Kind = "ad"
)

// ParseKind validates the discriminator.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindImage, KindVideo, KindWebsite, KindAd:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown workflow type %q", s)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report violations under the wire (json) field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Violation is a single field-level validation failure.
type Violation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError carries the full set of field violations for a payload.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Rule
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, Violation{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}
