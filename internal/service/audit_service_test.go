package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slot-booking/internal/models"
)

type mockAuditRepo struct {
	mu      sync.Mutex
	created []models.SlotEvent
	failFor int
}

func (m *mockAuditRepo) Create(_ context.Context, event *models.SlotEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor > 0 {
		m.failFor--
		return errors.New("db unavailable")
	}
	m.created = append(m.created, *event)
	return nil
}

func (m *mockAuditRepo) ListRecent(_ context.Context, limit int) ([]models.SlotEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SlotEvent(nil), m.created...), nil
}

func (m *mockAuditRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

func TestAuditServicePersistsInventoryEvents(t *testing.T) {
	repo := &mockAuditRepo{failFor: 1}
	audit := NewAuditService(repo, AuditConfig{Workers: 1, Retries: 2, RetryDelay: 10 * time.Millisecond}, nil)
	audit.Start(context.Background())

	inv := NewInventoryService(seedProviders(), audit, nil)
	require.NoError(t, inv.AddToBasket(context.Background(), 1, haakon15))
	_, err := inv.ConfirmBooking(context.Background(), 1)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return repo.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	audit.Stop()

	events, err := audit.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, int64(1), e.ClientID)
	}
	assert.True(t, audit.Enabled())
}

func TestAuditServiceWithoutRepository(t *testing.T) {
	audit := NewAuditService(nil, AuditConfig{}, nil)
	audit.Start(context.Background())
	defer audit.Stop()

	audit.Publish(context.Background(), models.SlotEvent{ClientID: 1})

	events, err := audit.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.False(t, audit.Enabled())
}
