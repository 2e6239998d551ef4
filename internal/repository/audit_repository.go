package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/slot-booking/internal/models"
)

// AuditRepository persists slot state transitions.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an event, filling in id and timestamp when unset.
func (r *AuditRepository) Create(ctx context.Context, event *models.SlotEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO slot_events (id, client_id, provider, slot, from_state, to_state, created_at) VALUES (:id, :client_id, :provider, :slot, :from_state, :to_state, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create slot event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]models.SlotEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, client_id, provider, slot, from_state, to_state, created_at FROM slot_events ORDER BY created_at DESC LIMIT $1`
	var events []models.SlotEvent
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("list slot events: %w", err)
	}
	return events, nil
}
