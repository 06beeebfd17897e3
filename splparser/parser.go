// Package splparser turns SPL (HL7 v3 Structured Product Labeling) XML into
// the typed document model of the entities package.
package splparser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/giygas/spl-labels-api/interfaces"
	"github.com/giygas/spl-labels-api/splparser/entities"
	"github.com/giygas/spl-labels-api/validation"
)

// Parser is stateless between calls apart from its substance cache, which is
// synchronized, so one Parser may serve concurrent parses.
type Parser struct {
	opts         Options
	logger       *slog.Logger
	cache        *SubstanceCache
	validator    interfaces.DocumentValidator
	validatorSet bool
	overrides    classifierOverrides
}

var _ interfaces.DocumentParser = (*Parser)(nil)

func NewParser(options ...Option) *Parser {
	p := &Parser{}
	for _, opt := range options {
		opt(p)
	}
	p.opts = p.opts.withDefaults()
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.cache == nil {
		p.cache = NewSubstanceCache(p.opts.SubstanceCacheTTL)
	}
	if !p.validatorSet {
		p.validator = validation.NewDocumentValidator()
	}
	p.overrides = classifierOverrides(p.opts.SectionTypeOverrides)
	return p
}

// Substances exposes the substance code to name cache filled while parsing.
func (p *Parser) Substances() *SubstanceCache {
	return p.cache
}

// run holds the mutable state of a single parse call.
type run struct {
	p        *Parser
	logger   *slog.Logger
	errs     *errorCollector
	mediaSeq int
}

func (p *Parser) newRun() *run {
	return &run{
		p:      p,
		logger: p.logger,
		errs:   newErrorCollector(p.logger, p.opts.MaxErrors),
	}
}

// Parse reads an SPL document from raw XML. A *ParseError is returned when the
// content is not well-formed XML or not an SPL document; every other problem
// is recorded on the result.
func (p *Parser) Parse(content []byte) (*entities.ParseResult, error) {
	start := time.Now()
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	doc.ReadSettings.Entity = xml.HTMLEntity
	if err := doc.ReadFromBytes(bytes.TrimPrefix(content, utf8BOM)); err != nil {
		return nil, &ParseError{Msg: err.Error(), Err: ErrMalformedXML}
	}
	root := doc.Root()
	if root == nil {
		return nil, newParseError(ErrMalformedXML, "no root element")
	}
	return p.parseRoot(root, start)
}

func (p *Parser) ParseString(content string) (*entities.ParseResult, error) {
	return p.Parse([]byte(content))
}

func (p *Parser) ParseReader(r io.Reader) (*entities.ParseResult, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return p.Parse(content)
}

// ParseElement parses an already decoded document element.
func (p *Parser) ParseElement(root *etree.Element) (*entities.ParseResult, error) {
	if root == nil {
		return nil, newParseError(ErrMalformedXML, "nil root element")
	}
	return p.parseRoot(root, time.Now())
}

// ParseDocument is Parse without the diagnostics wrapper.
func (p *Parser) ParseDocument(content []byte) (*entities.SPLDocument, error) {
	res, err := p.Parse(content)
	if err != nil {
		return nil, err
	}
	return res.Document, nil
}

func (p *Parser) parseRoot(root *etree.Element, start time.Time) (*entities.ParseResult, error) {
	if err := p.checkRoot(root); err != nil {
		return nil, err
	}

	r := p.newRun()
	doc := &entities.SPLDocument{
		Sections:         []entities.SPLSection{},
		ProcessingErrors: []string{},
	}
	r.extractIdentity(root, doc)
	doc.Author = r.extractAuthor(root)

	for i, el := range FindAllPath(root, "component/structuredBody/component/section") {
		if s, ok := r.parseSection(el, 1, fmt.Sprintf("section[%d]", i+1)); ok {
			doc.Sections = append(doc.Sections, s)
		}
	}

	result := &entities.ParseResult{Document: doc, Errors: r.errs.list()}
	doc.ProcessingErrors = append(doc.ProcessingErrors, result.Errors...)
	if p.validator != nil && !p.opts.SkipValidation {
		result.Validation = p.validator.Validate(doc)
		doc.ProcessingErrors = append(doc.ProcessingErrors, result.Validation.Strings()...)
	}
	result.Duration = time.Since(start)

	p.logger.Debug("parsed spl document",
		"document_id", doc.DocumentID,
		"sections", doc.SectionCount(),
		"errors", len(result.Errors),
		"duration", result.Duration)
	return result, nil
}

func (p *Parser) checkRoot(root *etree.Element) error {
	if root.Tag != "document" || !isHL7(root) {
		return newParseError(ErrNotSPLDocument, "root element is %q in namespace %q", root.Tag, root.NamespaceURI())
	}
	required := []string{"id", "code"}
	if p.opts.StrictIdentity {
		required = append(required, "setId", "versionNumber")
	}
	for _, tag := range required {
		if Find(root, tag) == nil {
			return newParseError(ErrMissingIdentity, "<%s> not found", tag)
		}
	}
	return nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// charsetReader decodes documents that declare a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
