package entities

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

type ValidationMessage struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Field    string   `json:"field,omitempty"`
	Context  string   `json:"context,omitempty"`
}

func (m ValidationMessage) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", strings.ToUpper(string(m.Severity)))
	if m.Context != "" {
		fmt.Fprintf(&b, " in %s", m.Context)
	}
	if m.Field != "" {
		fmt.Fprintf(&b, " (field: %s)", m.Field)
	}
	b.WriteString(": ")
	b.WriteString(m.Message)
	return b.String()
}

// ValidationResult collects the findings of one validation run.
type ValidationResult struct {
	Messages []ValidationMessage `json:"messages"`
}

func (r *ValidationResult) Add(sev Severity, msg, field, context string) {
	r.Messages = append(r.Messages, ValidationMessage{Severity: sev, Message: msg, Field: field, Context: context})
}

func (r *ValidationResult) AddError(msg, field, context string) {
	r.Add(SeverityError, msg, field, context)
}

func (r *ValidationResult) AddWarning(msg, field, context string) {
	r.Add(SeverityWarning, msg, field, context)
}

func (r *ValidationResult) AddInfo(msg, field, context string) {
	r.Add(SeverityInfo, msg, field, context)
}

// Merge appends the messages of other.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Messages = append(r.Messages, other.Messages...)
}

func (r *ValidationResult) BySeverity(sev Severity) []ValidationMessage {
	var out []ValidationMessage
	for _, m := range r.Messages {
		if m.Severity == sev {
			out = append(out, m)
		}
	}
	return out
}

func (r *ValidationResult) Errors() []ValidationMessage   { return r.BySeverity(SeverityError) }
func (r *ValidationResult) Warnings() []ValidationMessage { return r.BySeverity(SeverityWarning) }
func (r *ValidationResult) Infos() []ValidationMessage    { return r.BySeverity(SeverityInfo) }

// IsValid is true when no error-severity message was recorded.
func (r *ValidationResult) IsValid() bool {
	for _, m := range r.Messages {
		if m.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Strings renders every message in recording order.
func (r *ValidationResult) Strings() []string {
	out := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.String()
	}
	return out
}

type ValidationSummary struct {
	IsValid      bool     `json:"is_valid"`
	ErrorCount   int      `json:"error_count"`
	WarningCount int      `json:"warning_count"`
	InfoCount    int      `json:"info_count"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
}

func (r *ValidationResult) Summary() ValidationSummary {
	s := ValidationSummary{IsValid: r.IsValid(), Errors: []string{}, Warnings: []string{}}
	for _, m := range r.Messages {
		switch m.Severity {
		case SeverityError:
			s.ErrorCount++
			s.Errors = append(s.Errors, m.String())
		case SeverityWarning:
			s.WarningCount++
			s.Warnings = append(s.Warnings, m.String())
		case SeverityInfo:
			s.InfoCount++
		}
	}
	return s
}
