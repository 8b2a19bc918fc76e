// Package availability computes per-slot occupancy and gates registrations
// against capacity and per-slot uniqueness.
package availability

import (
	"context"
	"errors"
	"strings"

	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

var (
	// ErrSlotFull means the slot already holds MaxUsersPerSlot registrations.
	ErrSlotFull = errors.New("slot is full")
	// ErrDuplicateEmail means this email already holds this exact slot.
	ErrDuplicateEmail = errors.New("email already registered for this slot")
	// ErrDuplicateWWID means this wwid already holds this exact slot.
	ErrDuplicateWWID = errors.New("wwid already registered for this slot")
)

// Engine answers occupancy questions from the registrations collection.
// It is read-only and always consults the store, never cached counts.
type Engine struct {
	store store.Store
}

// NewEngine creates an availability engine over the store.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// Occupancy returns registration counts per slot key for one date.
func (e *Engine) Occupancy(ctx context.Context, date string) (map[string]int, error) {
	regs, err := e.store.Registrations(ctx)
	if err != nil {
		return nil, err
	}
	return CountOccupancy(regs, date), nil
}

// CountOccupancy groups registrations of one date by slot key.
func CountOccupancy(regs []models.Registration, date string) map[string]int {
	occupancy := make(map[string]int)
	for _, reg := range regs {
		if reg.Date == date {
			occupancy[reg.SlotKey()]++
		}
	}
	return occupancy
}

// IsSlotFull reports whether the slot has reached capacity.
func (e *Engine) IsSlotFull(ctx context.Context, date, slot string) (bool, error) {
	occupancy, err := e.Occupancy(ctx, date)
	if err != nil {
		return false, err
	}
	return occupancy[workshop.SlotKey(date, slot)] >= workshop.MaxUsersPerSlot, nil
}

// CanRegister reports whether (email, wwid) may take (date, slot): nil when the
// slot has room and neither identity already holds it. The same identity
// holding other slots is allowed; multi-slot booking is deliberate policy.
func (e *Engine) CanRegister(ctx context.Context, email, wwid, date, slot string) error {
	regs, err := e.store.Registrations(ctx)
	if err != nil {
		return err
	}
	return Check(regs, email, wwid, date, slot)
}

// Check applies the capacity and per-slot uniqueness rules against an already
// read registrations collection. Registration paths call this inside the
// store's update transaction so the collection cannot change underneath.
func Check(regs []models.Registration, email, wwid, date, slot string) error {
	email = strings.ToLower(email)
	key := workshop.SlotKey(date, slot)
	count := 0
	for _, reg := range regs {
		if reg.SlotKey() != key {
			continue
		}
		if strings.ToLower(reg.Email) == email {
			return ErrDuplicateEmail
		}
		if reg.WWID == wwid {
			return ErrDuplicateWWID
		}
		count++
	}
	if count >= workshop.MaxUsersPerSlot {
		return ErrSlotFull
	}
	return nil
}
