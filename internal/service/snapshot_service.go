package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

type reportRenderer interface {
	Reservations(format, state string) (*Report, error)
}

type snapshotStore interface {
	Save(name string, data []byte) error
	Read(name string) ([]byte, error)
	List() ([]string, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// SnapshotConfig controls persisted inventory snapshots.
type SnapshotConfig struct {
	Format    string
	Retention time.Duration
}

// SnapshotService writes reservation reports to storage so the in-memory
// inventory survives as a record after shutdown.
type SnapshotService struct {
	reports reportRenderer
	store   snapshotStore
	config  SnapshotConfig
	logger  *zap.Logger
}

// NewSnapshotService constructs a SnapshotService. A nil store disables it.
func NewSnapshotService(reports reportRenderer, store snapshotStore, cfg SnapshotConfig, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Format == "" {
		cfg.Format = ReportFormatCSV
	}
	return &SnapshotService{reports: reports, store: store, config: cfg, logger: logger}
}

// Enabled reports whether snapshots have somewhere to go.
func (s *SnapshotService) Enabled() bool {
	return s != nil && s.store != nil
}

// Save renders the full inventory and stores it. An empty format uses the
// configured default.
func (s *SnapshotService) Save(format string) (string, error) {
	if !s.Enabled() {
		return "", appErrors.Clone(appErrors.ErrValidation, "snapshots are disabled")
	}
	if format == "" {
		format = s.config.Format
	}
	report, err := s.reports.Reservations(format, "")
	if err != nil {
		return "", err
	}
	if err := s.store.Save(report.Filename, report.Body); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to store snapshot")
	}
	s.logger.Info("inventory snapshot saved", zap.String("name", report.Filename), zap.Int("bytes", len(report.Body)))
	return report.Filename, nil
}

// List returns stored snapshot names, newest first.
func (s *SnapshotService) List() ([]string, error) {
	if !s.Enabled() {
		return []string{}, nil
	}
	names, err := s.store.List()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list snapshots")
	}
	return names, nil
}

// Open returns a stored snapshot together with its content type.
func (s *SnapshotService) Open(name string) ([]byte, string, error) {
	if !s.Enabled() {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "snapshots are disabled")
	}
	contentType := ""
	switch {
	case strings.HasSuffix(name, "."+ReportFormatCSV):
		contentType = "text/csv"
	case strings.HasSuffix(name, "."+ReportFormatPDF):
		contentType = "application/pdf"
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown snapshot %q", name))
	}
	data, err := s.store.Read(name)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, fmt.Sprintf("snapshot %q not found", name))
	}
	return data, contentType, nil
}

// Prune deletes snapshots past the retention window. Zero retention keeps
// everything.
func (s *SnapshotService) Prune() ([]string, error) {
	if !s.Enabled() || s.config.Retention <= 0 {
		return nil, nil
	}
	deleted, err := s.store.CleanupOlderThan(s.config.Retention)
	if err != nil {
		return deleted, err
	}
	if len(deleted) > 0 {
		s.logger.Info("old snapshots removed", zap.Strings("names", deleted))
	}
	return deleted, nil
}
