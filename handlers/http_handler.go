package handlers

import (
	"errors"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/giygas/spl-labels-api/interfaces"
	"github.com/giygas/spl-labels-api/logging"
	"github.com/giygas/spl-labels-api/splparser"
	"github.com/giygas/spl-labels-api/splparser/entities"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler interface
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// SubstanceLookup resolves substance codes seen during parsing to their names
type SubstanceLookup interface {
	Lookup(code string) (string, bool)
}

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore      interfaces.DocumentStore
	parser         interfaces.DocumentParser
	validator      interfaces.DocumentValidator
	substances     SubstanceLookup
	healthChecker  interfaces.HealthChecker
	maxRequestBody int64
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DocumentStore, parser interfaces.DocumentParser,
	validator interfaces.DocumentValidator, substances SubstanceLookup,
	healthChecker interfaces.HealthChecker, maxRequestBody int64) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		dataStore:      dataStore,
		parser:         parser,
		validator:      validator,
		substances:     substances,
		healthChecker:  healthChecker,
		maxRequestBody: maxRequestBody,
	}
}

// DocumentSummary is the listing view of a stored document
type DocumentSummary struct {
	DocumentID    string `json:"document_id"`
	SetID         string `json:"set_id"`
	VersionNumber string `json:"version_number"`
	Title         string `json:"title,omitempty"`
	EffectiveTime string `json:"effective_time,omitempty"`
	Labeler       string `json:"labeler,omitempty"`
	Sections      int    `json:"sections"`
	Products      int    `json:"products"`
	Errors        int    `json:"processing_errors"`
}

func summarize(doc *entities.SPLDocument) DocumentSummary {
	s := DocumentSummary{
		DocumentID:    doc.DocumentID,
		SetID:         doc.SetID,
		VersionNumber: doc.VersionNumber,
		Title:         doc.Title,
		EffectiveTime: doc.EffectiveTime,
		Sections:      doc.SectionCount(),
		Products:      len(doc.ManufacturedProducts()),
		Errors:        len(doc.ProcessingErrors),
	}
	if org := doc.Author.Labeler(); org != nil {
		s.Labeler = org.Name
	}
	return s
}

// documentFromPath resolves the {id} URL parameter, writing the error response itself
func (h *HTTPHandlerImpl) documentFromPath(w http.ResponseWriter, r *http.Request) (*entities.SPLDocument, bool) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateInput(id); err != nil {
		logging.Warn("Unusual user input", "id", id, "error", err)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	doc, exists := h.dataStore.GetDocumentsMap()[id]
	if !exists {
		RespondWithError(w, http.StatusNotFound, "Document not found")
		return nil, false
	}
	return doc, true
}

// ServeDocuments returns a page of document summaries
func (h *HTTPHandlerImpl) ServeDocuments(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		logging.Warn("Unusual user input", "page", r.URL.Query().Get("page"))
		RespondWithError(w, http.StatusBadRequest, "Invalid page number")
		return
	}

	documents := h.dataStore.GetDocuments()
	summaries := make([]DocumentSummary, len(documents))
	for i, doc := range documents {
		summaries[i] = summarize(doc)
	}

	response, ok := paginate(summaries, page)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Page not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, response)
}

// FindDocument returns a full document by id
func (h *HTTPHandlerImpl) FindDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.documentFromPath(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, doc)
}

// FindDocumentBySet returns the latest stored version of a document set
func (h *HTTPHandlerImpl) FindDocumentBySet(w http.ResponseWriter, r *http.Request) {
	setID := chi.URLParam(r, "setId")
	if err := h.validator.ValidateInput(setID); err != nil {
		logging.Warn("Unusual user input", "setId", setID, "error", err)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, exists := h.dataStore.GetSetsMap()[setID]
	if !exists {
		RespondWithError(w, http.StatusNotFound, "Document set not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, doc)
}

// ServeSections returns the top-level sections of a document, or every
// section of the tree with the requested type
func (h *HTTPHandlerImpl) ServeSections(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.documentFromPath(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("type")
	if raw == "" {
		RespondWithJSON(w, http.StatusOK, doc.Sections)
		return
	}

	sectionType, err := h.validator.ValidateSectionType(raw)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sections := doc.SectionsByType(sectionType)
	if sections == nil {
		sections = []*entities.SPLSection{}
	}
	RespondWithJSON(w, http.StatusOK, sections)
}

// SectionTextResponse carries the text of the first section of a type and its readability figures
type SectionTextResponse struct {
	DocumentID  string                 `json:"document_id"`
	SectionType entities.SectionType   `json:"section_type"`
	Text        string                 `json:"text"`
	Analysis    splparser.TextAnalysis `json:"analysis"`
}

// ServeSectionText returns the text of the first section of the requested type
func (h *HTTPHandlerImpl) ServeSectionText(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.documentFromPath(w, r)
	if !ok {
		return
	}

	sectionType, err := h.validator.ValidateSectionType(chi.URLParam(r, "type"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, found := doc.SectionTextByType(sectionType)
	if !found {
		RespondWithError(w, http.StatusNotFound, "Section not found")
		return
	}

	RespondWithJSON(w, http.StatusOK, SectionTextResponse{
		DocumentID:  doc.DocumentID,
		SectionType: sectionType,
		Text:        text,
		Analysis:    splparser.AnalyzeText(text),
	})
}

// ProductView is a manufactured product with its derived names
type ProductView struct {
	*entities.ManufacturedProduct
	FullName string                     `json:"full_name"`
	Summary  entities.IngredientSummary `json:"ingredient_summary"`
}

// ServeProducts returns every manufactured product of a document
func (h *HTTPHandlerImpl) ServeProducts(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.documentFromPath(w, r)
	if !ok {
		return
	}

	products := doc.ManufacturedProducts()
	views := make([]ProductView, len(products))
	for i, p := range products {
		views[i] = ProductView{
			ManufacturedProduct: p,
			FullName:            p.FullName(),
			Summary:             p.IngredientSummary(),
		}
	}
	RespondWithJSON(w, http.StatusOK, views)
}

// ServeActiveIngredients returns the active ingredients of every product of a document
func (h *HTTPHandlerImpl) ServeActiveIngredients(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.documentFromPath(w, r)
	if !ok {
		return
	}

	ingredients := doc.ActiveIngredients()
	if ingredients == nil {
		ingredients = []entities.Ingredient{}
	}
	RespondWithJSON(w, http.StatusOK, ingredients)
}

// ServeAnalysis returns the section analysis of a document against a label profile
func (h *HTTPHandlerImpl) ServeAnalysis(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.documentFromPath(w, r)
	if !ok {
		return
	}

	profile := splparser.ProfileOTC
	if raw := r.URL.Query().Get("profile"); raw != "" {
		profile = splparser.LabelProfile(strings.ToUpper(raw))
		if profile != splparser.ProfileOTC && profile != splparser.ProfilePrescription {
			RespondWithError(w, http.StatusBadRequest, "profile must be one of: OTC, RX")
			return
		}
	}

	RespondWithJSON(w, http.StatusOK, splparser.AnalyzeDocument(doc, profile))
}

// FindSubstance resolves a substance code to the name it was last seen with
func (h *HTTPHandlerImpl) FindSubstance(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.validator.ValidateInput(code); err != nil {
		logging.Warn("Unusual user input", "code", code, "error", err)
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	name, found := h.substances.Lookup(code)
	if !found {
		RespondWithError(w, http.StatusNotFound, "Substance not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"code": code, "name": name})
}

// readDocument reads the request body, writing the error response itself
func (h *HTTPHandlerImpl) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		RespondWithError(w, http.StatusBadRequest, "Request body must contain an SPL document")
		return nil, false
	}
	return body, true
}

// parseBody parses the request body, mapping fatal parse errors to 422
func (h *HTTPHandlerImpl) parseBody(w http.ResponseWriter, r *http.Request) (*entities.ParseResult, bool) {
	body, ok := h.readDocument(w, r)
	if !ok {
		return nil, false
	}

	result, err := h.parser.Parse(body)
	if err != nil {
		var parseErr *splparser.ParseError
		if errors.As(err, &parseErr) {
			RespondWithError(w, http.StatusUnprocessableEntity, parseErr.Error())
			return nil, false
		}
		logging.Error("Unexpected parser failure", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to parse document")
		return nil, false
	}
	return result, true
}

// ParseDocument parses the SPL document posted in the request body
func (h *HTTPHandlerImpl) ParseDocument(w http.ResponseWriter, r *http.Request) {
	result, ok := h.parseBody(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// ValidateResponse reports the validation outcome of a posted document
type ValidateResponse struct {
	DocumentID string                       `json:"document_id"`
	Summary    entities.ValidationSummary   `json:"summary"`
	Messages   []entities.ValidationMessage `json:"messages"`
}

// ValidateDocument parses and validates the SPL document posted in the request body
func (h *HTTPHandlerImpl) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	result, ok := h.parseBody(w, r)
	if !ok {
		return
	}

	validation := h.validator.Validate(result.Document)
	messages := validation.Messages
	if messages == nil {
		messages = []entities.ValidationMessage{}
	}
	RespondWithJSON(w, http.StatusOK, ValidateResponse{
		DocumentID: result.Document.DocumentID,
		Summary:    validation.Summary(),
		Messages:   messages,
	})
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// Get memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, details, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{
		Status: status,
		Uptime: formatUptimeHuman(time.Since(h.dataStore.GetServerStartTime())),
		Data:   details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	RespondWithJSON(w, httpStatus, response)
}
