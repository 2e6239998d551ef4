package models

import (
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/noah-isme/slot-booking/pkg/errors"
)

// TimeSlot is an hourly calendar point. Values are validated on construction
// and never mutated afterwards.
type TimeSlot struct {
	Year  int `db:"year" json:"year"`
	Month int `db:"month" json:"month"`
	Day   int `db:"day" json:"day"`
	Hour  int `db:"hour" json:"hour"`
}

// NewTimeSlot validates the month, hour and day against a simplified month
// table: February has 28 days, April, June, September and November have 30,
// every other month 31. Leap years are not considered.
func NewTimeSlot(year, month, day, hour int) (TimeSlot, error) {
	if month < 1 || month > 12 {
		return TimeSlot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("incorrect month: %d", month))
	}
	if hour < 0 || hour > 24 {
		return TimeSlot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("incorrect hour: %d", hour))
	}
	if day < 1 || day > daysInMonth(month) {
		return TimeSlot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("incorrect day: %d", day))
	}
	return TimeSlot{Year: year, Month: month, Day: day, Hour: hour}, nil
}

// ParseTimeSlot parses the yyyy-mm-dd-hh form used by seed files and clients.
func ParseTimeSlot(raw string) (TimeSlot, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 4 {
		return TimeSlot{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid time slot string: %q", raw))
	}

	values := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return TimeSlot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, fmt.Sprintf("invalid time slot string: %q", raw))
		}
		values[i] = v
	}

	return NewTimeSlot(values[0], values[1], values[2], values[3])
}

// String renders the slot as yyyy-mm-dd-hh.
func (t TimeSlot) String() string {
	return fmt.Sprintf("%04d-%02d-%02d-%02d", t.Year, t.Month, t.Day, t.Hour)
}

func daysInMonth(month int) int {
	switch month {
	case 2:
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
