package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/slot-booking/internal/models"
	"github.com/noah-isme/slot-booking/pkg/jobs"
)

const slotEventJobType = "slot_event"

type auditRepository interface {
	Create(ctx context.Context, event *models.SlotEvent) error
	ListRecent(ctx context.Context, limit int) ([]models.SlotEvent, error)
}

// AuditConfig sizes the worker pool that persists slot events.
type AuditConfig struct {
	Workers    int
	Retries    int
	BufferSize int
	RetryDelay time.Duration
}

// AuditService records slot transitions. With a repository the events are
// written asynchronously through a job queue; without one they are only
// logged.
type AuditService struct {
	repo   auditRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs an AuditService. repo may be nil.
func NewAuditService(repo auditRepository, cfg AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger}
	if repo != nil {
		s.queue = jobs.NewQueue("slot-audit", s.handle, jobs.QueueConfig{
			Workers:    cfg.Workers,
			BufferSize: cfg.BufferSize,
			MaxRetries: cfg.Retries,
			RetryDelay: cfg.RetryDelay,
			Logger:     logger,
		})
	}
	return s
}

// Start launches the persistence workers.
func (s *AuditService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop flushes buffered events and stops the workers.
func (s *AuditService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Publish implements SlotEventPublisher. It never blocks: when the buffer is
// full the event is logged and dropped.
func (s *AuditService) Publish(_ context.Context, event models.SlotEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if s.queue == nil {
		s.logger.Debug("slot event",
			zap.String("event_id", event.ID),
			zap.Int64("client_id", event.ClientID),
			zap.String("provider", event.Provider),
			zap.String("slot", event.Slot),
			zap.String("from", event.FromState),
			zap.String("to", event.ToState),
		)
		return
	}

	if err := s.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: slotEventJobType, Payload: event}); err != nil {
		s.logger.Warn("slot event dropped", zap.String("event_id", event.ID), zap.Error(err))
	}
}

// Recent returns the newest persisted events.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]models.SlotEvent, error) {
	if s.repo == nil {
		return []models.SlotEvent{}, nil
	}
	return s.repo.ListRecent(ctx, limit)
}

// Enabled reports whether events are persisted.
func (s *AuditService) Enabled() bool {
	return s.repo != nil
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.SlotEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	return s.repo.Create(ctx, &event)
}
