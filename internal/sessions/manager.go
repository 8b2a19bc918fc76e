package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
)

// ErrRegistrationNotFound means no registration exists to bootstrap a session.
var ErrRegistrationNotFound = errors.New("no registration for this id")

// Manager holds the live trackers, one per loaded registration, and drives
// their periodic ticks. Trackers are created on session load and dropped on
// unload; nothing session-scoped lives outside them.
type Manager struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
	store    store.Store
	clock    Clock
	logger   *zap.Logger
}

// NewManager creates a tracker registry. clock may be nil (wall clock).
func NewManager(s store.Store, clock Clock, logger *zap.Logger) *Manager {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		trackers: make(map[string]*Tracker),
		store:    s,
		clock:    clock,
		logger:   logger,
	}
}

// Load returns the tracker for a registration, creating it from the persisted
// session record if one exists. Restored sessions resume exactly where they
// left off, including a still-running game-task timer.
func (m *Manager) Load(ctx context.Context, registrationID string) (*Tracker, error) {
	m.mu.Lock()
	if t, ok := m.trackers[registrationID]; ok {
		m.mu.Unlock()
		return t, nil
	}
	m.mu.Unlock()

	regs, err := m.store.Registrations(ctx)
	if err != nil {
		return nil, err
	}
	var reg *models.Registration
	for i := range regs {
		if regs[i].RegistrationID == registrationID {
			reg = &regs[i]
			break
		}
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}

	session := models.Session{
		RegistrationID: reg.RegistrationID,
		User:           reg.Name,
		WWID:           reg.WWID,
		Email:          reg.Email,
		Date:           reg.Date,
		Slot:           reg.Slot,
		RegisteredGame: reg.GamePreference,
		GameTasks:      []models.GameTask{},
	}
	stored, err := m.store.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range stored {
		if s.RegistrationID == registrationID {
			session = s
			break
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trackers[registrationID]; ok {
		return t, nil
	}
	t := newTracker(session, m.clock, m.store, m.logger)
	m.trackers[registrationID] = t
	m.logger.Info("session loaded",
		zap.String("registration_id", registrationID),
		zap.Int64("elapsed_ms", session.ElapsedTime),
		zap.Int("game_tasks", len(session.GameTasks)),
	)
	return t, nil
}

// Get returns an already-loaded tracker, or nil.
func (m *Manager) Get(registrationID string) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackers[registrationID]
}

// Unload drops a tracker, persisting its current state first.
func (m *Manager) Unload(ctx context.Context, registrationID string) error {
	m.mu.Lock()
	t, ok := m.trackers[registrationID]
	delete(m.trackers, registrationID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.session.ElapsedTime = t.clock.Now().Sub(t.referenceStart).Milliseconds()
		t.running = false
	}
	return t.persistLocked(ctx)
}

// Drop removes a tracker without persisting, for cascade deletes where the
// session record itself is going away.
func (m *Manager) Drop(registrationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trackers, registrationID)
}

// Run ticks every loaded tracker once per interval until ctx is done. Paused
// trackers tick to a no-op, so the loop just sweeps everything.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			trackers := make([]*Tracker, 0, len(m.trackers))
			for _, t := range m.trackers {
				trackers = append(trackers, t)
			}
			m.mu.Unlock()
			for _, t := range trackers {
				if _, err := t.Tick(ctx); err != nil {
					m.logger.Warn("session tick", zap.Error(err))
				}
			}
		}
	}
}
