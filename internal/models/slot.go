package models

// SlotState is the lifecycle of a slot record.
type SlotState int

const (
	SlotAvailable SlotState = iota
	SlotBasketed
	SlotReserved
)

func (s SlotState) String() string {
	switch s {
	case SlotAvailable:
		return "AVAILABLE"
	case SlotBasketed:
		return "BASKETED"
	case SlotReserved:
		return "RESERVED"
	default:
		return "UNKNOWN"
	}
}

// SlotRecord is the inventory entry for one (provider, slot) pair. Owner is
// only meaningful while State is not SlotAvailable.
type SlotRecord struct {
	Slot  TimeSlot
	State SlotState
	Owner int64
}

// Reservation is a read-only snapshot of a slot record used for reports and
// metrics.
type Reservation struct {
	Appointment Appointment
	State       SlotState
	Owner       int64
}
