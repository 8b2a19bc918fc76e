// Package store persists the two workshop collections, registrations and
// sessions, as whole units behind a minimal key-value contract. Drivers differ
// in durability and in how strongly Update* serializes concurrent writers.
package store

import (
	"context"

	"github.com/gaming-workshop/backend/internal/models"
)

// Collection keys shared by all drivers.
const (
	KeyRegistrations = "registrations"
	KeySessions      = "sessions"
)

// Store reads and writes the registrations and sessions collections.
// UpdateRegistrations and UpdateSessions run fn against a freshly read copy of
// the collection and write back its result; drivers guard the read-modify-write
// as strongly as they can (mutex, WATCH/MULTI, or SELECT FOR UPDATE). A fn
// error aborts the update and leaves the persisted state untouched.
type Store interface {
	Registrations(ctx context.Context) ([]models.Registration, error)
	PutRegistrations(ctx context.Context, regs []models.Registration) error
	UpdateRegistrations(ctx context.Context, fn func([]models.Registration) ([]models.Registration, error)) error

	Sessions(ctx context.Context) ([]models.Session, error)
	PutSessions(ctx context.Context, sessions []models.Session) error
	UpdateSessions(ctx context.Context, fn func([]models.Session) ([]models.Session, error)) error
}
