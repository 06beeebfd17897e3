// Package scheduler runs the periodic ingestion of SPL documents: it loads
// raw documents, parses them with a bounded worker pool, and swaps the result
// into the document store. An optional watcher picks up files as soon as they
// land in the data directory.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/giygas/spl-labels-api/interfaces"
	"github.com/giygas/spl-labels-api/logging"
	"github.com/giygas/spl-labels-api/metrics"
	"github.com/giygas/spl-labels-api/splparser/entities"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// ErrParseTimeout is returned when a single document takes longer than the configured parse timeout
var ErrParseTimeout = errors.New("parse timed out")

// Options tunes the ingestion runs
type Options struct {
	Interval     time.Duration // time between two ingestion runs
	Workers      int           // concurrent parse workers
	ParseTimeout time.Duration // upper bound for a single parse, zero disables it
	WatchDir     string        // directory watched for new files, empty disables watching
}

// Scheduler handles data updates and health monitoring using dependency injection
type Scheduler struct {
	dataStore interfaces.DocumentStore
	loader    interfaces.DocumentLoader
	parser    interfaces.DocumentParser
	validator interfaces.DocumentValidator
	scheduler *gocron.Scheduler
	opts      Options

	watcher  *watcher
	stopOnce sync.Once
	stop     chan struct{}
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DocumentStore, loader interfaces.DocumentLoader,
	parser interfaces.DocumentParser, validator interfaces.DocumentValidator, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Scheduler{
		dataStore: dataStore,
		loader:    loader,
		parser:    parser,
		validator: validator,
		scheduler: gocron.NewScheduler(time.Local),
		opts:      opts,
		stop:      make(chan struct{}),
	}
}

// Start performs the initial ingestion, then schedules the periodic ones
func (s *Scheduler) Start() error {
	// Initial load
	if _, err := s.Ingest(context.Background()); err != nil {
		logging.Error("Failed to perform initial data load", "error", err)
		return fmt.Errorf("initial data load failed: %w", err)
	}

	_, err := s.scheduler.Every(s.opts.Interval).WaitForSchedule().Do(func() {
		if _, err := s.Ingest(context.Background()); err != nil {
			logging.Error("Failed to update data", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule updates", "error", err)
		return fmt.Errorf("failed to schedule updates: %w", err)
	}

	s.scheduler.StartAsync()

	if s.opts.WatchDir != "" {
		w, err := newWatcher(s.opts.WatchDir, s.ingestFile)
		if err != nil {
			// periodic scans still pick the files up
			logging.Warn("Failed to watch data directory", "dir", s.opts.WatchDir, "error", err)
		} else {
			s.watcher = w
		}
	}

	// Start health monitoring
	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler and the directory watcher
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.scheduler.Stop()
		if s.watcher != nil {
			s.watcher.Close()
		}
		close(s.stop)
	})
}

// Ingest loads, parses and stores every available document. It returns a nil
// report without error when another ingestion is already running.
func (s *Scheduler) Ingest(ctx context.Context) (*interfaces.IngestReport, error) {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return nil, nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info(fmt.Sprintf("Starting SPL ingestion at: %s", time.Now().Format(time.RFC3339)))
	start := time.Now()

	sources, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	documents, failures := s.ParseAll(ctx, sources)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingestion cancelled: %w", err)
	}

	report := s.validator.ReportQuality(documents)
	report.SourcesSeen = len(sources)
	report.ParseFailures = failures
	logReport(report)

	// Atomic update using injected data store (including report)
	s.dataStore.UpdateData(documents, report)
	metrics.DocumentsStored.Set(float64(len(s.dataStore.GetDocuments())))

	logging.Info("SPL ingestion completed",
		"duration", time.Since(start).String(),
		"sources", len(sources),
		"document_count", len(documents),
		"failures", len(failures))
	return report, nil
}

// ParseAll parses sources with the configured number of workers. Documents
// come back in source order; failures lists the names of sources that could
// not be parsed.
func (s *Scheduler) ParseAll(ctx context.Context, sources []interfaces.Source) ([]*entities.SPLDocument, []string) {
	results := make([]*entities.SPLDocument, len(sources))
	errs := make([]error, len(sources))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(s.opts.Workers, max(len(sources), 1)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = s.parseOne(ctx, sources[i])
			}
		}()
	}

feed:
	for i := range sources {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	documents := make([]*entities.SPLDocument, 0, len(sources))
	failures := []string{}
	for i, doc := range results {
		switch {
		case errs[i] != nil:
			logging.Warn("Failed to parse SPL document", "source", sources[i].Name, "error", errs[i])
			failures = append(failures, sources[i].Name)
		case doc != nil:
			documents = append(documents, doc)
		}
	}
	return documents, failures
}

// parseOne parses a single source, giving up after the parse timeout
func (s *Scheduler) parseOne(ctx context.Context, src interfaces.Source) (*entities.SPLDocument, error) {
	if s.opts.ParseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ParseTimeout)
		defer cancel()
	}

	type outcome struct {
		result *entities.ParseResult
		err    error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		res, err := s.parser.Parse(src.Content)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		metrics.ObserveParse(o.result, time.Since(start))
		if o.err != nil {
			return nil, o.err
		}
		return o.result.Document, nil
	case <-ctx.Done():
		metrics.ObserveParse(nil, time.Since(start))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrParseTimeout, s.opts.ParseTimeout)
		}
		return nil, ctx.Err()
	}
}

// ingestFile parses one file and upserts it into the store
func (s *Scheduler) ingestFile(path string) {
	src, err := s.loader.LoadFile(path)
	if err != nil {
		logging.Warn("Failed to read watched file", "path", path, "error", err)
		return
	}
	doc, err := s.parseOne(context.Background(), src)
	if err != nil {
		logging.Warn("Failed to parse watched file", "path", path, "error", err)
		return
	}
	s.dataStore.Upsert(doc)
	metrics.DocumentsStored.Set(float64(len(s.dataStore.GetDocuments())))
	logging.Info("Watched file ingested", "path", path, "document_id", doc.DocumentID)
}

func logReport(report *interfaces.IngestReport) {
	if len(report.ParseFailures) > 0 {
		logging.Warn("SPL sources that failed to parse",
			"total", len(report.ParseFailures),
			"sources", report.ParseFailures,
		)
	}

	if len(report.InvalidDocuments) > 0 {
		logging.Warn("Documents with validation errors",
			"total", len(report.InvalidDocuments),
			"document_ids", report.InvalidDocuments,
		)
	}

	if report.DocumentsWithoutProducts > 0 {
		logging.Info("Documents without manufactured products", "count", report.DocumentsWithoutProducts)
	}

	if report.DocumentsWithoutActiveIngredients > 0 {
		logging.Info("Documents without active ingredients", "count", report.DocumentsWithoutActiveIngredients)
	}
}

// startHealthMonitoring monitors the health of the data updates
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > 3*s.opts.Interval {
					logging.Warn("Data hasn't been updated in over three scan intervals",
						"last_update", lastUpdate.Format(time.RFC3339))
				}
			}
		}
	}()
}
