package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

func TestNewTimeSlotValidation(t *testing.T) {
	cases := []struct {
		name                   string
		year, month, day, hour int
		valid                  bool
	}{
		{"regular", 2019, 2, 20, 15, true},
		{"midnight end", 2019, 1, 31, 24, true},
		{"hour too large", 2019, 1, 1, 25, false},
		{"negative hour", 2019, 1, 1, -1, false},
		{"day zero", 2019, 1, 0, 10, false},
		{"february 29", 2020, 2, 29, 10, false},
		{"april 31", 2019, 4, 31, 10, false},
		{"november 30", 2019, 11, 30, 10, true},
		{"december 32", 2019, 12, 32, 10, false},
		{"month zero", 2019, 0, 10, 10, false},
		{"month thirteen", 2019, 13, 10, 10, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot, err := NewTimeSlot(tc.year, tc.month, tc.day, tc.hour)
			if !tc.valid {
				require.Error(t, err)
				assert.True(t, errors.Is(err, appErrors.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.hour, slot.Hour)
		})
	}
}

func TestParseTimeSlot(t *testing.T) {
	slot, err := ParseTimeSlot("2019-2-20-15")
	require.NoError(t, err)
	assert.Equal(t, TimeSlot{Year: 2019, Month: 2, Day: 20, Hour: 15}, slot)
	assert.Equal(t, "2019-02-20-15", slot.String())

	_, err = ParseTimeSlot("2019-02-20")
	assert.Error(t, err)

	_, err = ParseTimeSlot("2019-02-xx-15")
	assert.Error(t, err)
}

func TestAppointmentIsComparableKey(t *testing.T) {
	a := Appointment{Provider: ServiceProvider{Name: "Haakon Doctorsen"}, Slot: TimeSlot{2019, 2, 20, 15}}
	b := Appointment{Provider: ServiceProvider{Name: "Haakon Doctorsen"}, Slot: TimeSlot{2019, 2, 20, 15}}

	assert.Equal(t, a, b)
	assert.Equal(t, "Haakon Doctorsen 2019-02-20-15", a.String())
	assert.Equal(t, "RESERVED", SlotReserved.String())
}
