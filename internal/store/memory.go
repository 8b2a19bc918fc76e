package store

import (
	"context"
	"sync"

	"github.com/gaming-workshop/backend/internal/models"
)

// Memory is an in-process Store. It round-trips records through JSON-free deep
// copies so callers never share slices with the stored state. Used in tests and
// as the zero-config driver.
type Memory struct {
	mu            sync.Mutex
	registrations []models.Registration
	sessions      []models.Session
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Registrations(ctx context.Context) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRegistrations(m.registrations), nil
}

func (m *Memory) PutRegistrations(ctx context.Context, regs []models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations = copyRegistrations(regs)
	return nil
}

func (m *Memory) UpdateRegistrations(ctx context.Context, fn func([]models.Registration) ([]models.Registration, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(copyRegistrations(m.registrations))
	if err != nil {
		return err
	}
	m.registrations = copyRegistrations(next)
	return nil
}

func (m *Memory) Sessions(ctx context.Context) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySessions(m.sessions), nil
}

func (m *Memory) PutSessions(ctx context.Context, sessions []models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = copySessions(sessions)
	return nil
}

func (m *Memory) UpdateSessions(ctx context.Context, fn func([]models.Session) ([]models.Session, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(copySessions(m.sessions))
	if err != nil {
		return err
	}
	m.sessions = copySessions(next)
	return nil
}

func copyRegistrations(in []models.Registration) []models.Registration {
	out := make([]models.Registration, len(in))
	copy(out, in)
	return out
}

func copySessions(in []models.Session) []models.Session {
	out := make([]models.Session, len(in))
	for i, s := range in {
		tasks := make([]models.GameTask, len(s.GameTasks))
		for j, t := range s.GameTasks {
			t.Observations = append([]models.Observation(nil), t.Observations...)
			t.Screenshots = append([]models.Screenshot(nil), t.Screenshots...)
			tasks[j] = t
		}
		s.GameTasks = tasks
		out[i] = s
	}
	return out
}
