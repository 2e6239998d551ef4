package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slot-booking/internal/models"
	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SlotEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event models.SlotEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) snapshot() []models.SlotEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.SlotEvent(nil), p.events...)
}

var (
	haakon = models.ServiceProvider{Name: "Haakon Doctorsen"}
	knud   = models.ServiceProvider{Name: "Knud Tennistrenersen"}

	haakon15 = models.Appointment{Provider: haakon, Slot: models.TimeSlot{Year: 2019, Month: 2, Day: 20, Hour: 15}}
	haakon17 = models.Appointment{Provider: haakon, Slot: models.TimeSlot{Year: 2019, Month: 2, Day: 20, Hour: 17}}
	knud15   = models.Appointment{Provider: knud, Slot: models.TimeSlot{Year: 2019, Month: 2, Day: 25, Hour: 15}}
	knud17   = models.Appointment{Provider: knud, Slot: models.TimeSlot{Year: 2019, Month: 2, Day: 25, Hour: 17}}
	knud19   = models.Appointment{Provider: knud, Slot: models.TimeSlot{Year: 2019, Month: 2, Day: 25, Hour: 19}}
)

func seedProviders() []models.ProviderSlots {
	return []models.ProviderSlots{
		{Provider: haakon, Slots: []models.TimeSlot{haakon15.Slot, haakon17.Slot}},
		{Provider: knud, Slots: []models.TimeSlot{knud15.Slot, knud17.Slot, knud19.Slot}},
	}
}

func newInventory(t *testing.T) (*InventoryService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewInventoryService(seedProviders(), pub, nil), pub
}

func TestInventoryInitialState(t *testing.T) {
	inv, _ := newInventory(t)

	available, err := inv.ListAvailable(nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Appointment{haakon15, haakon17, knud15, knud17, knud19}, available)

	counts := inv.StateCounts()
	assert.Equal(t, 5, counts[models.SlotAvailable])
	assert.Equal(t, 0, counts[models.SlotBasketed])
	assert.Equal(t, 0, counts[models.SlotReserved])
}

func TestInventoryCollapsesDuplicates(t *testing.T) {
	inv := NewInventoryService([]models.ProviderSlots{
		{Provider: haakon, Slots: []models.TimeSlot{haakon15.Slot, haakon15.Slot, haakon17.Slot}},
		{Provider: knud, Slots: []models.TimeSlot{knud15.Slot}},
		{Provider: haakon, Slots: []models.TimeSlot{haakon17.Slot}},
	}, nil, nil)

	snapshot := inv.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, haakon17, snapshot[0].Appointment)
	assert.Equal(t, knud15, snapshot[1].Appointment)
}

func TestInventoryBookingRoundTrip(t *testing.T) {
	inv, pub := newInventory(t)
	ctx := context.Background()

	require.NoError(t, inv.AddToBasket(ctx, 1, haakon15))
	assert.Equal(t, []models.Appointment{haakon15}, inv.ListBasket(1))

	available, err := inv.ListAvailable(&haakon.Name)
	require.NoError(t, err)
	assert.Equal(t, []models.Appointment{haakon17}, available)

	confirmed, err := inv.ConfirmBooking(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Appointment{haakon15}, confirmed)
	assert.Empty(t, inv.ListBasket(1))
	assert.Equal(t, []models.Appointment{haakon15}, inv.ListBooked(1))

	require.NoError(t, inv.CancelAppointment(ctx, 1, haakon15))
	assert.Empty(t, inv.ListBooked(1))

	available, err = inv.ListAvailable(nil)
	require.NoError(t, err)
	assert.Contains(t, available, haakon15)

	events := pub.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, "AVAILABLE", events[0].FromState)
	assert.Equal(t, "BASKETED", events[0].ToState)
	assert.Equal(t, "RESERVED", events[1].ToState)
	assert.Equal(t, "AVAILABLE", events[2].ToState)
	assert.Equal(t, "2019-02-20-15", events[2].Slot)
}

func TestInventoryDoubleBooking(t *testing.T) {
	inv, _ := newInventory(t)
	ctx := context.Background()

	require.NoError(t, inv.AddToBasket(ctx, 1, haakon15))

	err := inv.AddToBasket(ctx, 2, haakon15)
	assert.True(t, errors.Is(err, appErrors.ErrNotAvailable))

	err = inv.AddToBasket(ctx, 1, haakon15)
	assert.True(t, errors.Is(err, appErrors.ErrNotAvailable))

	_, err = inv.ConfirmBooking(ctx, 1)
	require.NoError(t, err)
	err = inv.AddToBasket(ctx, 2, haakon15)
	assert.True(t, errors.Is(err, appErrors.ErrNotAvailable))
}

func TestInventoryOwnership(t *testing.T) {
	inv, pub := newInventory(t)
	ctx := context.Background()

	require.NoError(t, inv.AddToBasket(ctx, 1, haakon15))
	require.NoError(t, inv.AddToBasket(ctx, 1, haakon17))
	_, err := inv.ConfirmBooking(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, inv.AddToBasket(ctx, 1, knud15))

	err = inv.RemoveFromBasket(ctx, 2, knud15)
	assert.True(t, errors.Is(err, appErrors.ErrNotInYourBasket))
	err = inv.RemoveFromBasket(ctx, 1, haakon15)
	assert.True(t, errors.Is(err, appErrors.ErrNotInYourBasket))

	err = inv.CancelAppointment(ctx, 2, haakon15)
	assert.True(t, errors.Is(err, appErrors.ErrNotReservedByYou))
	err = inv.CancelAppointment(ctx, 1, knud15)
	assert.True(t, errors.Is(err, appErrors.ErrNotReservedByYou))

	assert.Equal(t, []models.Appointment{haakon15, haakon17}, inv.ListBooked(1))
	assert.Equal(t, []models.Appointment{knud15}, inv.ListBasket(1))
	assert.Len(t, pub.snapshot(), 5)
}

func TestInventoryUnknownAppointment(t *testing.T) {
	inv, _ := newInventory(t)
	ctx := context.Background()

	err := inv.AddToBasket(ctx, 1, models.Appointment{Provider: models.ServiceProvider{Name: "Nobody"}, Slot: haakon15.Slot})
	assert.True(t, errors.Is(err, appErrors.ErrNoSuchProvider))

	err = inv.AddToBasket(ctx, 1, models.Appointment{Provider: haakon, Slot: knud15.Slot})
	assert.True(t, errors.Is(err, appErrors.ErrNoSuchTimeSlot))

	unknown := "Nobody"
	_, err = inv.ListAvailable(&unknown)
	assert.True(t, errors.Is(err, appErrors.ErrNoSuchProvider))

	empty := ""
	available, err := inv.ListAvailable(&empty)
	require.NoError(t, err)
	assert.Len(t, available, 5)
}

func TestInventoryConfirmEmptyBasket(t *testing.T) {
	inv, pub := newInventory(t)

	_, err := inv.ConfirmBooking(context.Background(), 1)
	assert.True(t, errors.Is(err, appErrors.ErrEmptyBasket))
	assert.Empty(t, pub.snapshot())
}

func TestInventoryConfirmAcrossProviders(t *testing.T) {
	inv, _ := newInventory(t)
	ctx := context.Background()

	require.NoError(t, inv.AddToBasket(ctx, 1, knud19))
	require.NoError(t, inv.AddToBasket(ctx, 1, haakon17))
	require.NoError(t, inv.AddToBasket(ctx, 2, knud15))

	confirmed, err := inv.ConfirmBooking(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Appointment{haakon17, knud19}, confirmed)
	assert.Equal(t, []models.Appointment{knud15}, inv.ListBasket(2))
	assert.Empty(t, inv.ListBooked(2))
}

func TestInventoryConcurrentAddOnlyOneWins(t *testing.T) {
	inv, _ := newInventory(t)
	ctx := context.Background()

	const clients = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []int64
	)
	for i := int64(1); i <= clients; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := inv.AddToBasket(ctx, id, haakon15); err == nil {
				mu.Lock()
				winners = append(winners, id)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, []models.Appointment{haakon15}, inv.ListBasket(winners[0]))
}

func TestInventoryConcurrentConfirmIsAllOrNothing(t *testing.T) {
	inv, _ := newInventory(t)
	ctx := context.Background()

	require.NoError(t, inv.AddToBasket(ctx, 1, haakon15))
	require.NoError(t, inv.AddToBasket(ctx, 1, knud17))

	var (
		wg        sync.WaitGroup
		successes int
		mu        sync.Mutex
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			confirmed, err := inv.ConfirmBooking(ctx, 1)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				assert.Len(t, confirmed, 2)
				return
			}
			assert.True(t, errors.Is(err, appErrors.ErrEmptyBasket))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, []models.Appointment{haakon15, knud17}, inv.ListBooked(1))
}
