package entities

import "time"

// ParseResult bundles a parsed document with the diagnostics of its parse call.
// Errors holds the recoverable parse errors only; Document.ProcessingErrors
// holds those followed by the rendered validation messages.
type ParseResult struct {
	Document   *SPLDocument      `json:"document"`
	Errors     []string          `json:"errors"`
	Validation *ValidationResult `json:"validation,omitempty"`
	Duration   time.Duration     `json:"duration_ns"`
}

func (r *ParseResult) IsValid() bool {
	return r.Validation == nil || r.Validation.IsValid()
}
