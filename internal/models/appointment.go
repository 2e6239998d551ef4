package models

import "fmt"

// Appointment identifies one bookable unit. It is a lookup key, not state.
type Appointment struct {
	Provider ServiceProvider `json:"provider"`
	Slot     TimeSlot        `json:"slot"`
}

func (a Appointment) String() string {
	return fmt.Sprintf("%s %s", a.Provider.Name, a.Slot)
}
