// Package sessions runs the timed testing session per registration: the
// overall session timer and the per-game task sub-timers, with their lifecycle
// rules and periodic persistence.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

var (
	// ErrInvalidState is the base error for operations rejected by the
	// session or game-task lifecycle rules.
	ErrInvalidState = errors.New("invalid state")
	// ErrPayloadTooLarge means a screenshot exceeds the size cap.
	ErrPayloadTooLarge = errors.New("screenshot payload too large")
	// ErrConfirmationRequired guards destructive timer resets.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// MaxScreenshotBytes caps one screenshot's inline payload.
const MaxScreenshotBytes = 5 * 1024 * 1024

// persistEvery is the coarse persistence cadence while the timer runs; ticks
// between boundaries update derived state in memory only.
const persistEvery = 30 * time.Second

// State is a snapshot of the tracker for API responses and tick results.
type State struct {
	RegistrationID    string  `json:"registrationId"`
	Running           bool    `json:"running"`
	ElapsedTime       int64   `json:"elapsedTime"`
	CompletionPercent float64 `json:"completionPercent"`
	Completed         bool    `json:"completed"`
	ActiveGameTask    string  `json:"activeGameTask,omitempty"`
}

// Tracker owns one registration's live session: created on session load,
// dropped on unload, never shared between registrations.
type Tracker struct {
	mu      sync.Mutex
	session models.Session
	running bool
	// referenceStart is now minus elapsed while running, so elapsed survives
	// pause/resume cycles without drift.
	referenceStart time.Time
	lastPersisted  time.Duration
	clock          Clock
	store          store.Store
	logger         *zap.Logger
}

func newTracker(session models.Session, clock Clock, s store.Store, logger *zap.Logger) *Tracker {
	return &Tracker{
		session: session,
		clock:   clock,
		store:   s,
		logger:  logger,
	}
}

func completionPercent(elapsed time.Duration) float64 {
	p := float64(elapsed) / float64(workshop.TotalSessionTime) * 100
	if p > 100 {
		p = 100
	}
	return p
}

func (t *Tracker) elapsedLocked() time.Duration {
	if t.running {
		return t.clock.Now().Sub(t.referenceStart)
	}
	return time.Duration(t.session.ElapsedTime) * time.Millisecond
}

func (t *Tracker) stateLocked() State {
	elapsed := t.elapsedLocked()
	return State{
		RegistrationID:    t.session.RegistrationID,
		Running:           t.running,
		ElapsedTime:       elapsed.Milliseconds(),
		CompletionPercent: completionPercent(elapsed),
		Completed:         elapsed >= workshop.TotalSessionTime,
		ActiveGameTask:    t.session.ActiveGameTask,
	}
}

// State returns a snapshot of the session.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Session returns a copy of the persisted-shape session record.
func (t *Tracker) Session() models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syncLocked()
	return t.session
}

// syncLocked folds the live timer into the session record.
func (t *Tracker) syncLocked() {
	elapsed := t.elapsedLocked()
	t.session.ElapsedTime = elapsed.Milliseconds()
	t.session.CompletionPercent = completionPercent(elapsed)
}

// persistLocked upserts the full session record keyed by registrationId.
func (t *Tracker) persistLocked(ctx context.Context) error {
	t.syncLocked()
	t.session.LastUpdated = t.clock.Now().UTC()
	record := t.session
	err := t.store.UpdateSessions(ctx, func(sessions []models.Session) ([]models.Session, error) {
		for i := range sessions {
			if sessions[i].RegistrationID == record.RegistrationID {
				sessions[i] = record
				return sessions, nil
			}
		}
		return append(sessions, record), nil
	})
	if err != nil {
		return fmt.Errorf("persist session %s: %w", record.RegistrationID, err)
	}
	t.lastPersisted = time.Duration(record.ElapsedTime) * time.Millisecond
	return nil
}

// Start begins or resumes the session timer. Valid from not-started or paused.
func (t *Tracker) Start(ctx context.Context) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return t.stateLocked(), fmt.Errorf("%w: session timer already running", ErrInvalidState)
	}
	elapsed := time.Duration(t.session.ElapsedTime) * time.Millisecond
	t.referenceStart = t.clock.Now().Add(-elapsed)
	t.running = true
	if t.session.StartTime == nil {
		now := t.clock.Now().UTC()
		t.session.StartTime = &now
	}
	return t.stateLocked(), nil
}

// Pause freezes the session timer and persists.
func (t *Tracker) Pause(ctx context.Context) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return t.stateLocked(), fmt.Errorf("%w: session timer is not running", ErrInvalidState)
	}
	t.session.ElapsedTime = t.clock.Now().Sub(t.referenceStart).Milliseconds()
	t.running = false
	if err := t.persistLocked(ctx); err != nil {
		return t.stateLocked(), err
	}
	return t.stateLocked(), nil
}

// Reset clears all timing data. Destructive; the caller must confirm.
func (t *Tracker) Reset(ctx context.Context, confirm bool) (State, error) {
	if !confirm {
		return t.State(), ErrConfirmationRequired
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.session.ElapsedTime = 0
	t.session.CompletionPercent = 0
	if err := t.persistLocked(ctx); err != nil {
		return t.stateLocked(), err
	}
	return t.stateLocked(), nil
}

// Tick advances the running timer: recomputes elapsed time, auto-pauses when
// the 2-hour session completes, and persists on 30-second boundaries rather
// than every tick. A paused tracker ticks to a no-op.
func (t *Tracker) Tick(ctx context.Context) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return t.stateLocked(), nil
	}
	elapsed := t.clock.Now().Sub(t.referenceStart)
	t.session.ElapsedTime = elapsed.Milliseconds()
	t.session.CompletionPercent = completionPercent(elapsed)

	if elapsed >= workshop.TotalSessionTime {
		t.running = false
		if err := t.persistLocked(ctx); err != nil {
			return t.stateLocked(), err
		}
		t.logger.Info("session completed",
			zap.String("registration_id", t.session.RegistrationID),
			zap.Int64("elapsed_ms", t.session.ElapsedTime),
		)
		return t.stateLocked(), nil
	}

	if elapsed-t.lastPersisted >= persistEvery {
		if err := t.persistLocked(ctx); err != nil {
			return t.stateLocked(), err
		}
	}
	return t.stateLocked(), nil
}

// activeTaskLocked returns the named task if it exists and is still active.
func (t *Tracker) activeTaskLocked(game string) (*models.GameTask, error) {
	task := t.session.Task(game)
	if task == nil {
		return nil, fmt.Errorf("%w: no task for game %q", ErrInvalidState, game)
	}
	if !task.IsActive {
		return nil, fmt.Errorf("%w: task for game %q is completed", ErrInvalidState, game)
	}
	return task, nil
}

// AddGameTask creates a new active task for a game. Only one task may be
// active at a time and each game may be added once.
func (t *Tracker) AddGameTask(ctx context.Context, game string) (models.GameTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session.ActiveGameTask != "" {
		return models.GameTask{}, fmt.Errorf("%w: complete the current game task %q first", ErrInvalidState, t.session.ActiveGameTask)
	}
	if t.session.Task(game) != nil {
		return models.GameTask{}, fmt.Errorf("%w: a task for game %q already exists", ErrInvalidState, game)
	}
	task := models.GameTask{
		Game:         game,
		StartTime:    t.clock.Now().UTC(),
		IsActive:     true,
		Observations: []models.Observation{},
		Screenshots:  []models.Screenshot{},
	}
	t.session.GameTasks = append(t.session.GameTasks, task)
	t.session.ActiveGameTask = game
	if err := t.persistLocked(ctx); err != nil {
		return models.GameTask{}, err
	}
	return task, nil
}

// StartGameTimer starts the play-time timer of an active task.
func (t *Tracker) StartGameTimer(ctx context.Context, game string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, err := t.activeTaskLocked(game)
	if err != nil {
		return err
	}
	if task.GameStartTime != nil {
		return fmt.Errorf("%w: game timer for %q already running", ErrInvalidState, game)
	}
	now := t.clock.Now()
	task.GameStartTime = &now
	return t.persistLocked(ctx)
}

// PauseGameTimer accumulates the current run into totalPlayTime and clears the
// reference instant.
func (t *Tracker) PauseGameTimer(ctx context.Context, game string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, err := t.activeTaskLocked(game)
	if err != nil {
		return err
	}
	if task.GameStartTime == nil {
		return fmt.Errorf("%w: game timer for %q is not running", ErrInvalidState, game)
	}
	task.TotalPlayTime += t.clock.Now().Sub(*task.GameStartTime).Milliseconds()
	task.GameStartTime = nil
	return t.persistLocked(ctx)
}

// RecordCrash increments the crash counter of an active task.
func (t *Tracker) RecordCrash(ctx context.Context, game string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, err := t.activeTaskLocked(game)
	if err != nil {
		return 0, err
	}
	task.Crashes++
	if err := t.persistLocked(ctx); err != nil {
		return task.Crashes, err
	}
	return task.Crashes, nil
}

// AddObservation appends a timestamped note to an active task.
func (t *Tracker) AddObservation(ctx context.Context, game, note string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, err := t.activeTaskLocked(game)
	if err != nil {
		return err
	}
	if note == "" {
		return fmt.Errorf("%w: observation text is empty", ErrInvalidState)
	}
	task.Observations = append(task.Observations, models.Observation{
		Time: t.clock.Now().UTC(),
		Note: note,
	})
	return t.persistLocked(ctx)
}

// SetCompletion updates the completion percentage of an active task.
func (t *Tracker) SetCompletion(ctx context.Context, game string, pct int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, err := t.activeTaskLocked(game)
	if err != nil {
		return err
	}
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: completion percentage must be 0-100", ErrInvalidState)
	}
	task.CompletionPercentage = pct
	return t.persistLocked(ctx)
}

// ScreenshotInput is an uploaded progress screenshot.
type ScreenshotInput struct {
	ImageData string `json:"imageData"`
	Filename  string `json:"filename"`
}

// AddScreenshot appends an inline screenshot to an active task, stamping the
// task's completion at capture time.
func (t *Tracker) AddScreenshot(ctx context.Context, game string, in ScreenshotInput) (models.Screenshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, err := t.activeTaskLocked(game)
	if err != nil {
		return models.Screenshot{}, err
	}
	if len(in.ImageData) > MaxScreenshotBytes {
		return models.Screenshot{}, ErrPayloadTooLarge
	}
	shot := models.Screenshot{
		ID:               uuid.New().String(),
		Timestamp:        t.clock.Now().UTC(),
		ImageData:        in.ImageData,
		Filename:         in.Filename,
		CompletionAtTime: task.CompletionPercentage,
	}
	task.Screenshots = append(task.Screenshots, shot)
	if err := t.persistLocked(ctx); err != nil {
		return models.Screenshot{}, err
	}
	return shot, nil
}

// CompleteGameTask pauses a still-running game timer, freezes the task and
// clears the active pointer. There is no reactivation path.
func (t *Tracker) CompleteGameTask(ctx context.Context, game string) (models.GameTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, err := t.activeTaskLocked(game)
	if err != nil {
		return models.GameTask{}, err
	}
	if task.GameStartTime != nil {
		task.TotalPlayTime += t.clock.Now().Sub(*task.GameStartTime).Milliseconds()
		task.GameStartTime = nil
	}
	task.IsActive = false
	end := t.clock.Now().UTC()
	task.EndTime = &end
	if t.session.ActiveGameTask == game {
		t.session.ActiveGameTask = ""
	}
	if err := t.persistLocked(ctx); err != nil {
		return *task, err
	}
	t.logger.Info("game task completed",
		zap.String("registration_id", t.session.RegistrationID),
		zap.String("game", game),
		zap.Int64("play_time_ms", task.TotalPlayTime),
	)
	return *task, nil
}

// GamePlayTime returns the task's play time including any in-flight run.
func (t *Tracker) GamePlayTime(game string) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task := t.session.Task(game)
	if task == nil {
		return 0, fmt.Errorf("%w: no task for game %q", ErrInvalidState, game)
	}
	total := time.Duration(task.TotalPlayTime) * time.Millisecond
	if task.GameStartTime != nil {
		total += t.clock.Now().Sub(*task.GameStartTime)
	}
	return total, nil
}
