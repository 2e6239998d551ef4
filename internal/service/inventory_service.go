package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/slot-booking/internal/models"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

// SlotEventPublisher receives every successful slot transition.
type SlotEventPublisher interface {
	Publish(ctx context.Context, event models.SlotEvent)
}

// InventoryService owns the slot records of every provider. It is the only
// component that changes slot state.
type InventoryService struct {
	mu      sync.RWMutex
	order   []models.ServiceProvider
	records map[models.ServiceProvider][]*models.SlotRecord

	events SlotEventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewInventoryService builds the inventory from loaded provider slots. Every
// slot starts available; repeated providers or slots collapse into one entry.
func NewInventoryService(providers []models.ProviderSlots, events SlotEventPublisher, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InventoryService{
		records: make(map[models.ServiceProvider][]*models.SlotRecord, len(providers)),
		events:  events,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}

	for _, p := range providers {
		if _, seen := s.records[p.Provider]; !seen {
			s.order = append(s.order, p.Provider)
		}
		seen := make(map[models.TimeSlot]struct{}, len(p.Slots))
		list := make([]*models.SlotRecord, 0, len(p.Slots))
		for _, slot := range p.Slots {
			if _, dup := seen[slot]; dup {
				continue
			}
			seen[slot] = struct{}{}
			list = append(list, &models.SlotRecord{Slot: slot, State: models.SlotAvailable})
		}
		s.records[p.Provider] = list
	}
	return s
}

// AddToBasket moves an available slot into the client's basket.
func (s *InventoryService) AddToBasket(ctx context.Context, clientID int64, appt models.Appointment) error {
	return s.mutate(ctx, clientID, appt, func(record *models.SlotRecord) (models.SlotState, error) {
		if record.State != models.SlotAvailable {
			return 0, appErrors.Clone(appErrors.ErrNotAvailable, fmt.Sprintf("%s is not available", appt))
		}
		return models.SlotBasketed, nil
	})
}

// RemoveFromBasket returns a slot from the client's basket to availability.
func (s *InventoryService) RemoveFromBasket(ctx context.Context, clientID int64, appt models.Appointment) error {
	return s.mutate(ctx, clientID, appt, func(record *models.SlotRecord) (models.SlotState, error) {
		if record.State != models.SlotBasketed || record.Owner != clientID {
			return 0, appErrors.Clone(appErrors.ErrNotInYourBasket, fmt.Sprintf("%s is not in your basket", appt))
		}
		return models.SlotAvailable, nil
	})
}

// ConfirmBooking reserves every slot in the client's basket. Either all of
// them are reserved or, when the basket is empty, none.
func (s *InventoryService) ConfirmBooking(ctx context.Context, clientID int64) ([]models.Appointment, error) {
	s.mu.Lock()

	type pending struct {
		provider models.ServiceProvider
		record   *models.SlotRecord
	}
	var basket []pending
	for _, provider := range s.order {
		for _, record := range s.records[provider] {
			if record.State == models.SlotBasketed && record.Owner == clientID {
				basket = append(basket, pending{provider: provider, record: record})
			}
		}
	}
	if len(basket) == 0 {
		s.mu.Unlock()
		return nil, appErrors.ErrEmptyBasket
	}

	confirmed := make([]models.Appointment, 0, len(basket))
	events := make([]models.SlotEvent, 0, len(basket))
	for _, p := range basket {
		events = append(events, s.transition(clientID, p.provider, p.record, models.SlotReserved))
		confirmed = append(confirmed, models.Appointment{Provider: p.provider, Slot: p.record.Slot})
	}
	s.mu.Unlock()

	s.publish(ctx, events...)
	return confirmed, nil
}

// CancelAppointment releases a slot reserved by the client.
func (s *InventoryService) CancelAppointment(ctx context.Context, clientID int64, appt models.Appointment) error {
	return s.mutate(ctx, clientID, appt, func(record *models.SlotRecord) (models.SlotState, error) {
		if record.State != models.SlotReserved || record.Owner != clientID {
			return 0, appErrors.Clone(appErrors.ErrNotReservedByYou, fmt.Sprintf("%s is not reserved by you", appt))
		}
		return models.SlotAvailable, nil
	})
}

// ListBasket returns the client's basketed appointments.
func (s *InventoryService) ListBasket(clientID int64) []models.Appointment {
	return s.collect(func(r *models.SlotRecord) bool {
		return r.State == models.SlotBasketed && r.Owner == clientID
	})
}

// ListBooked returns the client's reserved appointments.
func (s *InventoryService) ListBooked(clientID int64) []models.Appointment {
	return s.collect(func(r *models.SlotRecord) bool {
		return r.State == models.SlotReserved && r.Owner == clientID
	})
}

// ListAvailable returns available appointments in load order, restricted to
// one provider when provider is non-nil and non-empty.
func (s *InventoryService) ListAvailable(provider *string) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	providers := s.order
	if provider != nil && *provider != "" {
		p := models.ServiceProvider{Name: *provider}
		if _, ok := s.records[p]; !ok {
			return nil, appErrors.Clone(appErrors.ErrNoSuchProvider, fmt.Sprintf("no such service provider: %s", *provider))
		}
		providers = []models.ServiceProvider{p}
	}

	out := []models.Appointment{}
	for _, p := range providers {
		for _, record := range s.records[p] {
			if record.State == models.SlotAvailable {
				out = append(out, models.Appointment{Provider: p, Slot: record.Slot})
			}
		}
	}
	return out, nil
}

// Snapshot copies every slot record in load order.
func (s *InventoryService) Snapshot() []models.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Reservation
	for _, p := range s.order {
		for _, record := range s.records[p] {
			out = append(out, models.Reservation{
				Appointment: models.Appointment{Provider: p, Slot: record.Slot},
				State:       record.State,
				Owner:       record.Owner,
			})
		}
	}
	return out
}

// StateCounts returns the number of slots in each state.
func (s *InventoryService) StateCounts() map[models.SlotState]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[models.SlotState]int{
		models.SlotAvailable: 0,
		models.SlotBasketed:  0,
		models.SlotReserved:  0,
	}
	for _, p := range s.order {
		for _, record := range s.records[p] {
			counts[record.State]++
		}
	}
	return counts
}

func (s *InventoryService) collect(match func(*models.SlotRecord) bool) []models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Appointment{}
	for _, p := range s.order {
		for _, record := range s.records[p] {
			if match(record) {
				out = append(out, models.Appointment{Provider: p, Slot: record.Slot})
			}
		}
	}
	return out
}

// lookup must be called with the lock held.
func (s *InventoryService) lookup(appt models.Appointment) (*models.SlotRecord, error) {
	records, ok := s.records[appt.Provider]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNoSuchProvider, fmt.Sprintf("no such service provider: %s", appt.Provider.Name))
	}
	for _, record := range records {
		if record.Slot == appt.Slot {
			return record, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNoSuchTimeSlot, fmt.Sprintf("no such time slot: %s", appt))
}

// mutate applies one guarded transition to the record of appt. decide runs
// under the write lock and returns the target state or a rejection.
func (s *InventoryService) mutate(ctx context.Context, clientID int64, appt models.Appointment, decide func(*models.SlotRecord) (models.SlotState, error)) error {
	s.mu.Lock()
	record, err := s.lookup(appt)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	to, err := decide(record)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	event := s.transition(clientID, appt.Provider, record, to)
	s.mu.Unlock()

	s.publish(ctx, event)
	return nil
}

// transition must be called with the write lock held.
func (s *InventoryService) transition(clientID int64, provider models.ServiceProvider, record *models.SlotRecord, to models.SlotState) models.SlotEvent {
	from := record.State
	record.State = to
	if to == models.SlotAvailable {
		record.Owner = 0
	} else {
		record.Owner = clientID
	}

	return models.SlotEvent{
		ClientID:  clientID,
		Provider:  provider.Name,
		Slot:      record.Slot.String(),
		FromState: from.String(),
		ToState:   to.String(),
		CreatedAt: s.now(),
	}
}

func (s *InventoryService) publish(ctx context.Context, events ...models.SlotEvent) {
	for _, event := range events {
		s.logger.Debug("slot transition",
			zap.Int64("client_id", event.ClientID),
			zap.String("provider", event.Provider),
			zap.String("slot", event.Slot),
			zap.String("from", event.FromState),
			zap.String("to", event.ToState),
		)
		if s.events != nil {
			s.events.Publish(ctx, event)
		}
	}
}
