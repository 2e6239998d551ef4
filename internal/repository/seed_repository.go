package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/slot-booking/internal/models"
)

// SeedRepository loads users and provider slots from PostgreSQL.
type SeedRepository struct {
	db *sqlx.DB
}

// NewSeedRepository creates a new instance of SeedRepository.
func NewSeedRepository(db *sqlx.DB) *SeedRepository {
	return &SeedRepository{db: db}
}

type providerSlotRow struct {
	Provider string `db:"provider"`
	Year     int    `db:"year"`
	Month    int    `db:"month"`
	Day      int    `db:"day"`
	Hour     int    `db:"hour"`
}

// Users returns every seeded account ordered by id.
func (r *SeedRepository) Users(ctx context.Context) ([]models.User, error) {
	const query = `SELECT id, username, password FROM users ORDER BY id`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Providers returns provider slots in insertion order.
func (r *SeedRepository) Providers(ctx context.Context) ([]models.ProviderSlots, error) {
	const query = `SELECT provider, year, month, day, hour FROM provider_slots ORDER BY position, id`
	var rows []providerSlotRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list provider slots: %w", err)
	}

	set := newProviderSet()
	for _, row := range rows {
		slot, err := models.NewTimeSlot(row.Year, row.Month, row.Day, row.Hour)
		if err != nil {
			return nil, fmt.Errorf("provider slot %s: %w", row.Provider, err)
		}
		set.add(models.ServiceProvider{Name: row.Provider}, slot)
	}
	return set.list(), nil
}

// Import replaces the stored seed with users and providers in one
// transaction. Provider order is kept through the position column.
func (r *SeedRepository) Import(ctx context.Context, users []models.User, providers []models.ProviderSlots) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed import tx: %w", err)
	}

	const (
		clearSlots = `DELETE FROM provider_slots`
		clearUsers = `DELETE FROM users`
		insertUser = `INSERT INTO users (id, username, password) VALUES (:id, :username, :password)`
		insertSlot = `INSERT INTO provider_slots (provider, year, month, day, hour, position)
VALUES (:provider, :year, :month, :day, :hour, :position)`
	)

	for _, stmt := range []string{clearSlots, clearUsers} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear seed: %w", err)
		}
	}
	for i := range users {
		if _, err := tx.NamedExecContext(ctx, insertUser, users[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("import user %d: %w", users[i].ID, err)
		}
	}
	for position, p := range providers {
		for _, slot := range p.Slots {
			row := map[string]interface{}{
				"provider": p.Provider.Name,
				"year":     slot.Year,
				"month":    slot.Month,
				"day":      slot.Day,
				"hour":     slot.Hour,
				"position": position,
			}
			if _, err := tx.NamedExecContext(ctx, insertSlot, row); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("import slot %s %s: %w", p.Provider.Name, slot, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed import tx: %w", err)
	}
	return nil
}
