package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gaming-workshop/backend/internal/models"
)

// File persists each collection as one JSON file under a data directory,
// written atomically via rename. Single-process only; a process-wide mutex
// serializes read-modify-write cycles.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates the data directory if needed and returns a file store.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *File) read(key string, out interface{}) error {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (f *File) write(key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (f *File) Registrations(ctx context.Context) ([]models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var regs []models.Registration
	if err := f.read(KeyRegistrations, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (f *File) PutRegistrations(ctx context.Context, regs []models.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(KeyRegistrations, regs)
}

func (f *File) UpdateRegistrations(ctx context.Context, fn func([]models.Registration) ([]models.Registration, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var regs []models.Registration
	if err := f.read(KeyRegistrations, &regs); err != nil {
		return err
	}
	next, err := fn(regs)
	if err != nil {
		return err
	}
	return f.write(KeyRegistrations, next)
}

func (f *File) Sessions(ctx context.Context) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []models.Session
	if err := f.read(KeySessions, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (f *File) PutSessions(ctx context.Context, sessions []models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(KeySessions, sessions)
}

func (f *File) UpdateSessions(ctx context.Context, fn func([]models.Session) ([]models.Session, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []models.Session
	if err := f.read(KeySessions, &sessions); err != nil {
		return err
	}
	next, err := fn(sessions)
	if err != nil {
		return err
	}
	return f.write(KeySessions, next)
}
