package models

import "time"

// Registration is a user's reservation of one workshop slot. Records are immutable
// once created; removal is an admin operation that also drops the correlated session.
type Registration struct {
	RegistrationID   string    `json:"registrationId"`
	Date             string    `json:"date"` // YYYY-MM-DD
	Slot             string    `json:"slot"` // e.g. "09:00 - 11:00"
	Name             string    `json:"name"`
	Email            string    `json:"email"` // stored lower-cased
	WWID             string    `json:"wwid"`
	GamePreference   string    `json:"gamePreference"`
	RegistrationTime time.Time `json:"registrationTime"`
}

// SlotKey returns the occupancy grouping key for this registration.
func (r Registration) SlotKey() string {
	return r.Date + "_" + r.Slot
}
