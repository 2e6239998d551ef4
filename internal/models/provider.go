package models

// ServiceProvider offers bookable time slots. Providers are identified by name.
type ServiceProvider struct {
	Name string `db:"provider" json:"name"`
}

// ProviderSlots is one provider together with its slots in load order.
type ProviderSlots struct {
	Provider ServiceProvider
	Slots    []TimeSlot
}
