package health

import (
	"net/http"
	"testing"
	"time"

	"github.com/giygas/spl-labels-api/interfaces"
	"github.com/giygas/spl-labels-api/splparser/entities"
)

// MockHealthDataStore for testing
type MockHealthDataStore struct {
	documents   []*entities.SPLDocument
	report      *interfaces.IngestReport
	lastUpdated time.Time
	startTime   time.Time
	isUpdating  bool
}

func (m *MockHealthDataStore) GetDocuments() []*entities.SPLDocument { return m.documents }

func (m *MockHealthDataStore) GetDocumentsMap() map[string]*entities.SPLDocument {
	out := make(map[string]*entities.SPLDocument, len(m.documents))
	for _, d := range m.documents {
		out[d.DocumentID] = d
	}
	return out
}

func (m *MockHealthDataStore) GetSetsMap() map[string]*entities.SPLDocument {
	out := make(map[string]*entities.SPLDocument, len(m.documents))
	for _, d := range m.documents {
		out[d.SetID] = d
	}
	return out
}

func (m *MockHealthDataStore) GetReport() *interfaces.IngestReport {
	if m.report == nil {
		return &interfaces.IngestReport{}
	}
	return m.report
}

func (m *MockHealthDataStore) GetLastUpdated() time.Time     { return m.lastUpdated }
func (m *MockHealthDataStore) IsUpdating() bool              { return m.isUpdating }
func (m *MockHealthDataStore) GetServerStartTime() time.Time { return m.startTime }

func (m *MockHealthDataStore) UpdateData(documents []*entities.SPLDocument, report *interfaces.IngestReport) {
	// Not used in health tests
}

func (m *MockHealthDataStore) Upsert(document *entities.SPLDocument) {
	// Not used in health tests
}

func (m *MockHealthDataStore) BeginUpdate() bool {
	return true
}

func (m *MockHealthDataStore) EndUpdate() {
}

func someDocuments() []*entities.SPLDocument {
	return []*entities.SPLDocument{
		{DocumentID: "a1", SetID: "a", VersionNumber: "1"},
		{DocumentID: "b1", SetID: "b", VersionNumber: "1"},
	}
}

func TestNewHealthChecker(t *testing.T) {
	healthChecker := NewHealthChecker(&MockHealthDataStore{}, 0)

	impl, ok := healthChecker.(*HealthCheckerImpl)
	if !ok {
		t.Fatal("NewHealthChecker should return *HealthCheckerImpl")
	}
	if impl.scanInterval != time.Hour {
		t.Errorf("a non-positive interval should default to one hour, got %v", impl.scanInterval)
	}
}

func TestHealthCheckStatuses(t *testing.T) {
	tests := []struct {
		name       string
		store      *MockHealthDataStore
		wantStatus string
		wantHTTP   int
	}{
		{
			name:       "healthy",
			store:      &MockHealthDataStore{documents: someDocuments(), lastUpdated: time.Now().Add(-30 * time.Minute)},
			wantStatus: "healthy",
			wantHTTP:   http.StatusOK,
		},
		{
			name:       "starting",
			store:      &MockHealthDataStore{isUpdating: true},
			wantStatus: "starting",
			wantHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:       "no documents",
			store:      &MockHealthDataStore{lastUpdated: time.Now()},
			wantStatus: "unhealthy",
			wantHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:       "degraded",
			store:      &MockHealthDataStore{documents: someDocuments(), lastUpdated: time.Now().Add(-3 * time.Hour)},
			wantStatus: "degraded",
			wantHTTP:   http.StatusServiceUnavailable,
		},
		{
			name:       "stale",
			store:      &MockHealthDataStore{documents: someDocuments(), lastUpdated: time.Now().Add(-5 * time.Hour)},
			wantStatus: "unhealthy",
			wantHTTP:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, details, httpStatus := NewHealthChecker(tt.store, time.Hour).HealthCheck()
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if httpStatus != tt.wantHTTP {
				t.Errorf("httpStatus = %d, want %d", httpStatus, tt.wantHTTP)
			}
			if details == nil {
				t.Fatal("details should not be nil")
			}
		})
	}
}

func TestHealthCheckDetails(t *testing.T) {
	store := &MockHealthDataStore{
		documents:   someDocuments(),
		report:      &interfaces.IngestReport{InvalidDocuments: []string{"a1"}, ParseFailures: []string{"x.xml", "y.xml"}},
		lastUpdated: time.Now().Add(-90 * time.Minute),
		startTime:   time.Now().Add(-2 * time.Hour),
	}
	_, details, _ := NewHealthChecker(store, time.Hour).HealthCheck()

	want := map[string]any{
		"documents":         2,
		"sets":              2,
		"invalid_documents": 1,
		"parse_failures":    2,
		"is_updating":       false,
		"data_age_hours":    1.5,
	}
	for key, value := range want {
		if details[key] != value {
			t.Errorf("details[%q] = %v, want %v", key, details[key], value)
		}
	}
	for _, key := range []string{"last_update", "next_update", "uptime_seconds"} {
		if _, ok := details[key]; !ok {
			t.Errorf("details should contain %q", key)
		}
	}
}

func TestCalculateNextUpdate(t *testing.T) {
	last := time.Now().Add(-150 * time.Minute)
	checker := NewHealthChecker(&MockHealthDataStore{lastUpdated: last}, time.Hour)

	next := checker.CalculateNextUpdate()
	if want := last.Add(3 * time.Hour); !next.Equal(want) {
		t.Errorf("CalculateNextUpdate() = %v, want %v", next, want)
	}
	if next.Before(time.Now()) {
		t.Error("next update should be in the future")
	}

	fresh := NewHealthChecker(&MockHealthDataStore{}, time.Hour).CalculateNextUpdate()
	if time.Since(fresh) > time.Second {
		t.Errorf("without a previous update the next one is due now, got %v", fresh)
	}
}
