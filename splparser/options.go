package splparser

import (
	"log/slog"
	"time"

	"github.com/giygas/spl-labels-api/interfaces"
	"github.com/giygas/spl-labels-api/splparser/entities"
)

const (
	DefaultMaxSectionDepth   = 64
	DefaultMaxErrors         = 100
	DefaultSubstanceCacheTTL = time.Hour
)

// Options tunes a Parser. The zero value of a field selects its default.
type Options struct {
	// MaxSectionDepth bounds subsection recursion; deeper sections are skipped with an error.
	MaxSectionDepth int
	// MaxErrors caps the recoverable errors kept per parse call; negative means unlimited.
	MaxErrors int
	// StrictIdentity makes missing setId and versionNumber elements fatal.
	StrictIdentity bool
	// SubstanceCacheTTL is the lifetime of substance code to name entries; negative disables expiry.
	SubstanceCacheTTL time.Duration
	// EmphasizeKeywords upper-cases caution phrases in clinical text.
	EmphasizeKeywords bool
	// ExpandAbbreviations rewrites common dosing abbreviations in clinical text.
	ExpandAbbreviations bool
	// SectionTypeOverrides maps extra LOINC codes to section types, on top of the fixed table.
	SectionTypeOverrides map[string]entities.SectionType
	// SkipValidation disables the validation step.
	SkipValidation bool
}

func (o Options) withDefaults() Options {
	if o.MaxSectionDepth <= 0 {
		o.MaxSectionDepth = DefaultMaxSectionDepth
	}
	if o.MaxErrors == 0 {
		o.MaxErrors = DefaultMaxErrors
	}
	if o.SubstanceCacheTTL == 0 {
		o.SubstanceCacheTTL = DefaultSubstanceCacheTTL
	}
	return o
}

type Option func(*Parser)

func WithOptions(o Options) Option {
	return func(p *Parser) { p.opts = o }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// WithValidator replaces the default validator. A nil validator behaves like SkipValidation.
func WithValidator(v interfaces.DocumentValidator) Option {
	return func(p *Parser) {
		p.validator = v
		p.validatorSet = true
	}
}

// WithSubstanceCache shares a substance cache between parsers.
func WithSubstanceCache(c *SubstanceCache) Option {
	return func(p *Parser) { p.cache = c }
}
