// Package interfaces defines the contracts between the SPL parsing core and
// the service around it, so that each layer can be tested in isolation.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/spl-labels-api/splparser/entities"
)

// IngestReport summarizes the quality of one ingestion run
type IngestReport struct {
	SourcesSeen                       int      `json:"sources_seen"`
	DocumentsParsed                   int      `json:"documents_parsed"`
	ParseFailures                     []string `json:"parse_failures"`
	InvalidDocuments                  []string `json:"invalid_documents"`
	DuplicateDocumentIDs              []string `json:"duplicate_document_ids"`
	DocumentsWithoutProducts          int      `json:"documents_without_products"`
	DocumentsWithoutActiveIngredients int      `json:"documents_without_active_ingredients"`
	TotalProcessingErrors             int      `json:"total_processing_errors"`
}

// Source is one raw SPL XML document with the name it was loaded under
// (file path, or archive path plus entry name).
type Source struct {
	Name    string
	Content []byte
}

// DocumentStore defines the contract for document storage.
// Reads are lock-free and updates swap the whole data set atomically.
type DocumentStore interface {
	GetDocuments() []*entities.SPLDocument
	GetDocumentsMap() map[string]*entities.SPLDocument
	GetSetsMap() map[string]*entities.SPLDocument
	GetReport() *IngestReport
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateData(documents []*entities.SPLDocument, report *IngestReport)
	Upsert(document *entities.SPLDocument)
	BeginUpdate() bool
	EndUpdate()
}

// DocumentParser turns raw SPL XML into a document. Implementations must be
// safe for concurrent use.
type DocumentParser interface {
	Parse(content []byte) (*entities.ParseResult, error)
}

// DocumentLoader reads raw documents from wherever they are kept.
type DocumentLoader interface {
	Load(ctx context.Context) ([]Source, error)
	LoadFile(path string) (Source, error)
}

// Scheduler manages automated ingestion and health monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the API endpoints.
type HTTPHandler interface {
	ServeDocuments(w http.ResponseWriter, r *http.Request)
	FindDocument(w http.ResponseWriter, r *http.Request)
	FindDocumentBySet(w http.ResponseWriter, r *http.Request)
	ServeSections(w http.ResponseWriter, r *http.Request)
	ServeSectionText(w http.ResponseWriter, r *http.Request)
	ServeProducts(w http.ResponseWriter, r *http.Request)
	ServeActiveIngredients(w http.ResponseWriter, r *http.Request)
	ServeAnalysis(w http.ResponseWriter, r *http.Request)
	FindSubstance(w http.ResponseWriter, r *http.Request)
	ParseDocument(w http.ResponseWriter, r *http.Request)
	ValidateDocument(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker provides system health monitoring and reporting.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
	CalculateNextUpdate() time.Time
}

// DocumentValidator checks parsed documents and user input.
type DocumentValidator interface {
	// Validate runs the structural and business-rule checks over a document
	Validate(doc *entities.SPLDocument) *entities.ValidationResult

	// ReportQuality aggregates findings over a whole ingestion run
	ReportQuality(documents []*entities.SPLDocument) *IngestReport

	// ValidateInput validates identifiers received from clients
	ValidateInput(input string) error

	// ValidateSectionType parses a section type received from clients
	ValidateSectionType(input string) (entities.SectionType, error)
}
