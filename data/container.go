// Package data provides thread-safe in-memory storage for parsed SPL documents.
// The DocumentContainer swaps whole data sets atomically, so readers never
// see a half-applied ingestion run.
package data

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/spl-labels-api/interfaces"
	"github.com/giygas/spl-labels-api/logging"
	"github.com/giygas/spl-labels-api/splparser/entities"
)

// Compile-time check to ensure DocumentContainer implements DocumentStore
var _ interfaces.DocumentStore = (*DocumentContainer)(nil)

// snapshot is one consistent view of the stored documents
type snapshot struct {
	documents []*entities.SPLDocument
	byID      map[string]*entities.SPLDocument
	bySetID   map[string]*entities.SPLDocument
}

// DocumentContainer holds all the data with atomic pointers for zero-downtime updates
type DocumentContainer struct {
	data            atomic.Pointer[snapshot]
	report          atomic.Pointer[interfaces.IngestReport]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time

	// upsertMu serializes single-document writers; readers stay lock-free
	upsertMu sync.Mutex
}

// NewDocumentContainer creates a new DocumentContainer with empty data
func NewDocumentContainer() *DocumentContainer {
	dc := &DocumentContainer{}
	dc.data.Store(buildSnapshot(nil))
	dc.report.Store(&interfaces.IngestReport{})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func buildSnapshot(documents []*entities.SPLDocument) *snapshot {
	s := &snapshot{
		documents: make([]*entities.SPLDocument, 0, len(documents)),
		byID:      make(map[string]*entities.SPLDocument, len(documents)),
		bySetID:   make(map[string]*entities.SPLDocument, len(documents)),
	}
	for _, doc := range documents {
		if doc == nil {
			continue
		}
		s.documents = append(s.documents, doc)
		if _, dup := s.byID[doc.DocumentID]; !dup {
			s.byID[doc.DocumentID] = doc
		}
		if current, ok := s.bySetID[doc.SetID]; !ok || newerVersion(doc, current) {
			s.bySetID[doc.SetID] = doc
		}
	}
	return s
}

// newerVersion reports whether a has a higher version number than b.
// Numeric versions compare as numbers, anything else as strings.
func newerVersion(a, b *entities.SPLDocument) bool {
	va, errA := strconv.Atoi(a.VersionNumber)
	vb, errB := strconv.Atoi(b.VersionNumber)
	if errA == nil && errB == nil {
		return va > vb
	}
	return a.VersionNumber > b.VersionNumber
}

func (dc *DocumentContainer) load() *snapshot {
	if s := dc.data.Load(); s != nil {
		return s
	}
	logging.Warn("Document store is empty or invalid")
	return buildSnapshot(nil)
}

// GetDocuments returns the documents in ingestion order
func (dc *DocumentContainer) GetDocuments() []*entities.SPLDocument {
	return dc.load().documents
}

// GetDocumentsMap returns the documents keyed by document id for O(1) lookups
func (dc *DocumentContainer) GetDocumentsMap() map[string]*entities.SPLDocument {
	return dc.load().byID
}

// GetSetsMap returns the latest version of each document set, keyed by set id
func (dc *DocumentContainer) GetSetsMap() map[string]*entities.SPLDocument {
	return dc.load().bySetID
}

// GetReport returns the report of the last ingestion run
func (dc *DocumentContainer) GetReport() *interfaces.IngestReport {
	if r := dc.report.Load(); r != nil {
		return r
	}
	return &interfaces.IngestReport{}
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DocumentContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a data update is currently in progress
func (dc *DocumentContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DocumentContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DocumentContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically replaces every document and the ingest report
func (dc *DocumentContainer) UpdateData(documents []*entities.SPLDocument, report *interfaces.IngestReport) {
	s := buildSnapshot(documents)

	dc.upsertMu.Lock()
	defer dc.upsertMu.Unlock()

	// Atomic swap (zero downtime replacement)
	dc.data.Store(s)
	if report != nil {
		dc.report.Store(report)
	}
	dc.lastUpdated.Store(time.Now())
}

// Upsert adds a single document, replacing a stored document with the same id
func (dc *DocumentContainer) Upsert(document *entities.SPLDocument) {
	if document == nil {
		return
	}
	dc.upsertMu.Lock()
	defer dc.upsertMu.Unlock()

	current := dc.load().documents
	next := make([]*entities.SPLDocument, 0, len(current)+1)
	replaced := false
	for _, doc := range current {
		if doc.DocumentID == document.DocumentID {
			if !replaced {
				next = append(next, document)
				replaced = true
			}
			continue
		}
		next = append(next, doc)
	}
	if !replaced {
		next = append(next, document)
	}

	dc.data.Store(buildSnapshot(next))
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a data update operation
// Returns true if update can proceed, false if another update is in progress
func (dc *DocumentContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a data update operation
func (dc *DocumentContainer) EndUpdate() {
	dc.updating.Store(false)
}
