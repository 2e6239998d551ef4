package models

import "time"

// SlotEvent records one state transition of a slot record.
type SlotEvent struct {
	ID        string    `db:"id" json:"id"`
	ClientID  int64     `db:"client_id" json:"client_id"`
	Provider  string    `db:"provider" json:"provider"`
	Slot      string    `db:"slot" json:"slot"`
	FromState string    `db:"from_state" json:"from_state"`
	ToState   string    `db:"to_state" json:"to_state"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
