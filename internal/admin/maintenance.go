package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

// ErrImportFormat means an import payload could not be parsed. The store is
// left untouched.
var ErrImportFormat = errors.New("invalid import format")

// DefaultRetentionDays is the cutoff used when clearing stale sessions.
const DefaultRetentionDays = 7

// TrackerDropper evicts a cached live tracker without persisting it. Satisfied
// by the session manager; nil disables eviction.
type TrackerDropper interface {
	Drop(registrationID string)
}

// Maintenance performs the destructive admin operations.
type Maintenance struct {
	store    store.Store
	trackers TrackerDropper
	now      func() time.Time
	logger   *zap.Logger
}

func NewMaintenance(s store.Store, trackers TrackerDropper, now func() time.Time, logger *zap.Logger) *Maintenance {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maintenance{store: s, trackers: trackers, now: now, logger: logger}
}

// importPayload mirrors the full export document; only the two collections are
// consumed, extra fields are ignored.
type importPayload struct {
	Registrations *[]models.Registration `json:"registrations"`
	Sessions      *[]models.Session      `json:"sessions"`
}

// Import replaces either collection wholesale if the payload carries it.
// Malformed JSON leaves the store untouched.
func (m *Maintenance) Import(ctx context.Context, raw []byte) (regs, sessions int, err error) {
	var payload importPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	if payload.Registrations == nil && payload.Sessions == nil {
		return 0, 0, fmt.Errorf("%w: no registrations or sessions field", ErrImportFormat)
	}

	if payload.Registrations != nil {
		if err := m.store.PutRegistrations(ctx, *payload.Registrations); err != nil {
			return 0, 0, fmt.Errorf("import registrations: %w", err)
		}
		regs = len(*payload.Registrations)
	}
	if payload.Sessions != nil {
		if err := m.store.PutSessions(ctx, *payload.Sessions); err != nil {
			return regs, 0, fmt.Errorf("import sessions: %w", err)
		}
		sessions = len(*payload.Sessions)
		if m.trackers != nil {
			for _, s := range *payload.Sessions {
				m.trackers.Drop(s.RegistrationID)
			}
		}
	}
	m.logger.Info("data imported", zap.Int("registrations", regs), zap.Int("sessions", sessions))
	return regs, sessions, nil
}

// ResetDay drops every registration and session on one date.
func (m *Maintenance) ResetDay(ctx context.Context, date string) (removed int, err error) {
	if _, err := workshop.ParseDate(date); err != nil {
		return 0, fmt.Errorf("%w: bad date %q", ErrImportFormat, date)
	}

	err = m.store.UpdateRegistrations(ctx, func(regs []models.Registration) ([]models.Registration, error) {
		kept := regs[:0]
		for _, r := range regs {
			if r.Date == date {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		return kept, nil
	})
	if err != nil {
		return 0, fmt.Errorf("reset day %s: %w", date, err)
	}

	var dropped []string
	err = m.store.UpdateSessions(ctx, func(sessions []models.Session) ([]models.Session, error) {
		kept := sessions[:0]
		for _, s := range sessions {
			if s.Date == date {
				dropped = append(dropped, s.RegistrationID)
				continue
			}
			kept = append(kept, s)
		}
		return kept, nil
	})
	if err != nil {
		return removed, fmt.Errorf("reset day %s: %w", date, err)
	}
	m.evict(dropped)

	m.logger.Info("day reset", zap.String("date", date), zap.Int("registrations_removed", removed))
	return removed, nil
}

// ClearOldSessions drops session records whose workshop date is more than
// retentionDays in the past. Zero or negative falls back to the default.
func (m *Maintenance) ClearOldSessions(ctx context.Context, retentionDays int) (removed int, err error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := m.now().UTC().AddDate(0, 0, -retentionDays)

	var dropped []string
	err = m.store.UpdateSessions(ctx, func(sessions []models.Session) ([]models.Session, error) {
		kept := sessions[:0]
		for _, s := range sessions {
			d, err := workshop.ParseDate(s.Date)
			if err == nil && d.Before(cutoff) {
				dropped = append(dropped, s.RegistrationID)
				continue
			}
			kept = append(kept, s)
		}
		return kept, nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear old sessions: %w", err)
	}
	m.evict(dropped)

	m.logger.Info("old sessions cleared", zap.Int("removed", len(dropped)), zap.Int("retention_days", retentionDays))
	return len(dropped), nil
}

// ClearAll wipes both collections.
func (m *Maintenance) ClearAll(ctx context.Context) error {
	sessions, err := m.store.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	if err := m.store.PutRegistrations(ctx, []models.Registration{}); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	if err := m.store.PutSessions(ctx, []models.Session{}); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.RegistrationID)
	}
	m.evict(ids)

	m.logger.Warn("all workshop data cleared")
	return nil
}

func (m *Maintenance) evict(ids []string) {
	if m.trackers == nil {
		return
	}
	for _, id := range ids {
		m.trackers.Drop(id)
	}
}
