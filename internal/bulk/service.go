package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/entity"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/metrics"
)

// Store is everything the bulk service needs from the contact store.
type Store interface {
	ContactStore
	Ping(ctx context.Context) error
	ListActive(ctx context.Context, ownerID string, f entity.ListFilter) ([]entity.Contact, error)
}

type Config struct {
	// Timeout bounds reconciliation of one upload; 0 disables it.
	Timeout time.Duration
	// Workers > 1 reconciles independent rows in parallel.
	Workers int
	// NewID overrides contact id generation (tests).
	NewID func() string
}

// Service runs the upload pipeline and contact exports.
type Service struct {
	store      Store
	reconciler *Reconciler
	timeout    time.Duration
	logger     *zap.SugaredLogger
}

func NewService(store Store, cfg Config, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		store:      store,
		reconciler: NewReconciler(store, logger, cfg.Workers, cfg.NewID),
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// Import decodes data as the declared mimeType, validates every row and
// reconciles the valid ones into ownerID's contacts.
//
// Format and decode errors, and an unreachable store, fail the whole call
// before any row is written. Everything that goes wrong inside a row ends up
// in that row's outcome.
func (s *Service) Import(ctx context.Context, ownerID string, data []byte, mimeType string) (*BatchResult, error) {
	start := time.Now()
	reader, err := Decode(data, mimeType)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	jobs, err := readJobs(reader)
	if err != nil {
		return nil, err
	}

	if err := s.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res := Aggregate(s.reconciler.Reconcile(ctx, ownerID, jobs))

	format, _ := FormatOf(mimeType)
	metrics.ObserveBulkUpload(string(format), time.Since(start))
	metrics.ObserveBulkRows(string(StatusInserted), res.Inserted)
	metrics.ObserveBulkRows(string(StatusUpdated), res.Updated)
	metrics.ObserveBulkRows(string(StatusSkippedInvalid), res.SkippedInvalid)
	metrics.ObserveBulkRows(string(StatusFailed), res.Failed)
	s.logger.Infow("bulk upload processed",
		"owner", ownerID,
		"format", format,
		"total", res.Total,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped_invalid", res.SkippedInvalid,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &res, nil
}

func readJobs(reader RowReader) ([]Job, error) {
	var jobs []Job
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return jobs, nil
		}
		if err != nil {
			return nil, err
		}
		in, verr := Normalize(row)
		jobs = append(jobs, Job{Index: row.Index, Contact: in, Invalid: verr})
	}
}

// Export renders every active contact of ownerID as csv or excel.
func (s *Service) Export(ctx context.Context, ownerID, format string) (*Export, error) {
	if format != ExportCSV && format != ExportExcel {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExportFormat, format)
	}
	contacts, err := s.store.ListActive(ctx, ownerID, entity.ListFilter{SortField: "created_at"})
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, ErrNoContacts
	}
	return EncodeExport(contacts, format)
}
