package splparser

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrMalformedXML    = errors.New("malformed xml")
	ErrNotSPLDocument  = errors.New("not an spl document")
	ErrMissingIdentity = errors.New("missing required identity element")

	// ErrInvalidDenominator accompanies a usable quantity whose denominator
	// value could not be read; the denominator falls back to 1.
	ErrInvalidDenominator = errors.New("invalid denominator value")
)

// ParseError is returned when a document cannot be processed at all.
// No partial document accompanies it.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(kind error, format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Err: kind}
}

// errorCollector accumulates recoverable errors for a single parse call.
type errorCollector struct {
	logger     *slog.Logger
	limit      int
	messages   []string
	suppressed int
}

func newErrorCollector(logger *slog.Logger, limit int) *errorCollector {
	return &errorCollector{logger: logger, limit: limit}
}

func (c *errorCollector) add(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Warn("recoverable parse error", "error", msg)
	if c.limit > 0 && len(c.messages) >= c.limit {
		c.suppressed++
		return
	}
	c.messages = append(c.messages, msg)
}

// list returns the collected messages, with a trailing note when the limit was hit.
func (c *errorCollector) list() []string {
	out := make([]string, len(c.messages), len(c.messages)+1)
	copy(out, c.messages)
	if c.suppressed > 0 {
		out = append(out, fmt.Sprintf("%d further errors suppressed", c.suppressed))
	}
	return out
}
