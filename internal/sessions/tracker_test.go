package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

// fakeClock is a manually advanced clock for deterministic timer tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func setup(t *testing.T) (*Manager, *fakeClock, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	clock := newFakeClock()
	err := s.PutRegistrations(context.Background(), []models.Registration{{
		RegistrationID: "REG-1",
		Date:           "2026-01-10",
		Slot:           "09:00 - 11:00",
		Name:           "Alice",
		Email:          "alice@example.com",
		WWID:           "WW123",
		GamePreference: "Space Raiders",
	}})
	if err != nil {
		t.Fatal(err)
	}
	return NewManager(s, clock, nil), clock, s
}

func TestLoadUnknownRegistration(t *testing.T) {
	m, _, _ := setup(t)
	if _, err := m.Load(context.Background(), "REG-MISSING"); !errors.Is(err, ErrRegistrationNotFound) {
		t.Fatalf("expected ErrRegistrationNotFound, got %v", err)
	}
}

func TestSessionTimerNinetyMinutes(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := setup(t)
	tr, err := m.Load(ctx, "REG-1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(90 * time.Minute)
	state, err := tr.Pause(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.ElapsedTime != 90*60*1000 {
		t.Errorf("elapsed = %d ms, want %d", state.ElapsedTime, 90*60*1000)
	}
	if state.CompletionPercent != 75 {
		t.Errorf("completion = %v, want 75", state.CompletionPercent)
	}
}

func TestSessionTimerAccumulatesAcrossPauses(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")

	for _, run := range []time.Duration{10 * time.Minute, 5 * time.Minute, 15 * time.Minute} {
		if _, err := tr.Start(ctx); err != nil {
			t.Fatal(err)
		}
		clock.Advance(run)
		if _, err := tr.Pause(ctx); err != nil {
			t.Fatal(err)
		}
		clock.Advance(30 * time.Minute) // paused gap, must not count
	}

	state := tr.State()
	if want := (30 * time.Minute).Milliseconds(); state.ElapsedTime != want {
		t.Errorf("elapsed = %d ms, want %d", state.ElapsedTime, want)
	}
}

func TestStartWhileRunningAndPauseWhilePaused(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")

	if _, err := tr.Pause(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("pause before start: expected ErrInvalidState, got %v", err)
	}
	if _, err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Start(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double start: expected ErrInvalidState, got %v", err)
	}
}

func TestTickAutoPausesAtTwoHours(t *testing.T) {
	ctx := context.Background()
	m, clock, s := setup(t)
	tr, _ := m.Load(ctx, "REG-1")

	if _, err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}
	clock.Advance(workshop.TotalSessionTime + time.Second)
	state, err := tr.Tick(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.Running {
		t.Error("timer still running past the 2-hour mark")
	}
	if !state.Completed {
		t.Error("session not marked completed")
	}
	if state.CompletionPercent != 100 {
		t.Errorf("completion = %v, want 100", state.CompletionPercent)
	}

	// auto-pause persisted the record
	sessions, _ := s.Sessions(ctx)
	if len(sessions) != 1 || sessions[0].ElapsedTime < workshop.TotalSessionTime.Milliseconds() {
		t.Errorf("completed session not persisted: %+v", sessions)
	}
}

func TestTickPersistsOnCoarseCadence(t *testing.T) {
	ctx := context.Background()
	m, clock, s := setup(t)
	tr, _ := m.Load(ctx, "REG-1")

	if _, err := tr.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// ticks inside the first 30 seconds do not write
	for i := 0; i < 29; i++ {
		clock.Advance(time.Second)
		if _, err := tr.Tick(ctx); err != nil {
			t.Fatal(err)
		}
	}
	sessions, _ := s.Sessions(ctx)
	if len(sessions) != 0 {
		t.Fatalf("persisted too early: %+v", sessions)
	}

	clock.Advance(time.Second)
	if _, err := tr.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	sessions, _ = s.Sessions(ctx)
	if len(sessions) != 1 {
		t.Fatal("expected persistence at the 30s boundary")
	}
	if sessions[0].ElapsedTime != (30 * time.Second).Milliseconds() {
		t.Errorf("persisted elapsed = %d", sessions[0].ElapsedTime)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")

	_, _ = tr.Start(ctx)
	clock.Advance(10 * time.Minute)
	_, _ = tr.Pause(ctx)

	if _, err := tr.Reset(ctx, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	state, err := tr.Reset(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if state.ElapsedTime != 0 || state.Running {
		t.Errorf("reset left state %+v", state)
	}
}

func TestSingleActiveGameTask(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")

	if _, err := tr.AddGameTask(ctx, "Space Raiders"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddGameTask(ctx, "Kart Wars"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState while a task is active, got %v", err)
	}
	if _, err := tr.CompleteGameTask(ctx, "Space Raiders"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddGameTask(ctx, "Kart Wars"); err != nil {
		t.Errorf("adding after completion should succeed, got %v", err)
	}
	// a game can only be added once, even after completion
	if _, err := tr.CompleteGameTask(ctx, "Kart Wars"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddGameTask(ctx, "Space Raiders"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected duplicate game rejection, got %v", err)
	}
}

func TestCompletedTaskIsFrozen(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")

	_, _ = tr.AddGameTask(ctx, "Space Raiders")
	if _, err := tr.CompleteGameTask(ctx, "Space Raiders"); err != nil {
		t.Fatal(err)
	}

	if _, err := tr.RecordCrash(ctx, "Space Raiders"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("crash on completed task: got %v", err)
	}
	if err := tr.AddObservation(ctx, "Space Raiders", "late note"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("observation on completed task: got %v", err)
	}
	if err := tr.SetCompletion(ctx, "Space Raiders", 50); !errors.Is(err, ErrInvalidState) {
		t.Errorf("completion on completed task: got %v", err)
	}
	if err := tr.StartGameTimer(ctx, "Space Raiders"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("timer on completed task: got %v", err)
	}
	if _, err := tr.CompleteGameTask(ctx, "Space Raiders"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double complete: got %v", err)
	}
}

func TestGameTimerAccumulation(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")
	_, _ = tr.AddGameTask(ctx, "Space Raiders")

	runs := []time.Duration{7 * time.Minute, 3 * time.Minute, 12 * time.Minute}
	for _, run := range runs {
		if err := tr.StartGameTimer(ctx, "Space Raiders"); err != nil {
			t.Fatal(err)
		}
		clock.Advance(run)
		if err := tr.PauseGameTimer(ctx, "Space Raiders"); err != nil {
			t.Fatal(err)
		}
		clock.Advance(20 * time.Minute) // paused gap excluded
	}

	session := tr.Session()
	task := session.Task("Space Raiders")
	if want := (22 * time.Minute).Milliseconds(); task.TotalPlayTime != want {
		t.Errorf("totalPlayTime = %d ms, want %d", task.TotalPlayTime, want)
	}
}

func TestCompleteAccumulatesRunningTimer(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")
	_, _ = tr.AddGameTask(ctx, "Space Raiders")

	_ = tr.StartGameTimer(ctx, "Space Raiders")
	clock.Advance(9 * time.Minute)
	task, err := tr.CompleteGameTask(ctx, "Space Raiders")
	if err != nil {
		t.Fatal(err)
	}
	if want := (9 * time.Minute).Milliseconds(); task.TotalPlayTime != want {
		t.Errorf("totalPlayTime = %d ms, want %d", task.TotalPlayTime, want)
	}
	if task.GameStartTime != nil {
		t.Error("reference instant not cleared on complete")
	}
	if task.EndTime == nil {
		t.Error("end time not stamped")
	}
}

func TestScreenshotCapAndCompletionStamp(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")
	_, _ = tr.AddGameTask(ctx, "Space Raiders")
	_ = tr.SetCompletion(ctx, "Space Raiders", 40)

	shot, err := tr.AddScreenshot(ctx, "Space Raiders", ScreenshotInput{ImageData: "data:image/png;base64,AAAA", Filename: "a.png"})
	if err != nil {
		t.Fatal(err)
	}
	if shot.CompletionAtTime != 40 {
		t.Errorf("completionAtTime = %d, want 40", shot.CompletionAtTime)
	}
	if shot.ID == "" {
		t.Error("screenshot id empty")
	}

	big := make([]byte, MaxScreenshotBytes+1)
	_, err = tr.AddScreenshot(ctx, "Space Raiders", ScreenshotInput{ImageData: string(big), Filename: "big.png"})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestCompletionRange(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")
	_, _ = tr.AddGameTask(ctx, "Space Raiders")

	if err := tr.SetCompletion(ctx, "Space Raiders", -1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("negative percentage accepted: %v", err)
	}
	if err := tr.SetCompletion(ctx, "Space Raiders", 101); !errors.Is(err, ErrInvalidState) {
		t.Errorf("percentage over 100 accepted: %v", err)
	}
	if err := tr.SetCompletion(ctx, "Space Raiders", 100); err != nil {
		t.Errorf("boundary value rejected: %v", err)
	}
}

func TestLoadRestoresPersistedSession(t *testing.T) {
	ctx := context.Background()
	m, clock, s := setup(t)
	tr, _ := m.Load(ctx, "REG-1")

	_, _ = tr.Start(ctx)
	clock.Advance(45 * time.Minute)
	_, _ = tr.Pause(ctx)
	_, _ = tr.AddGameTask(ctx, "Space Raiders")
	_, _ = tr.RecordCrash(ctx, "Space Raiders")
	_ = tr.StartGameTimer(ctx, "Space Raiders")
	clock.Advance(5 * time.Minute)
	_ = tr.PauseGameTimer(ctx, "Space Raiders")
	_ = tr.StartGameTimer(ctx, "Space Raiders") // leave the game timer running

	// a fresh manager simulates coming back to the dashboard
	m2 := NewManager(s, clock, nil)
	tr2, err := m2.Load(ctx, "REG-1")
	if err != nil {
		t.Fatal(err)
	}
	state := tr2.State()
	if state.Running {
		t.Error("session timer should load paused")
	}
	if want := (45 * time.Minute).Milliseconds(); state.ElapsedTime != want {
		t.Errorf("restored elapsed = %d, want %d", state.ElapsedTime, want)
	}
	if state.ActiveGameTask != "Space Raiders" {
		t.Errorf("active task = %q", state.ActiveGameTask)
	}

	// the still-running game timer keeps counting from its reference instant
	clock.Advance(2 * time.Minute)
	playTime, err := tr2.GamePlayTime("Space Raiders")
	if err != nil {
		t.Fatal(err)
	}
	if want := 7 * time.Minute; playTime != want {
		t.Errorf("restored play time = %v, want %v", playTime, want)
	}

	session := tr2.Session()
	if task := session.Task("Space Raiders"); task == nil || task.Crashes != 1 {
		t.Errorf("crash count lost on restore: %+v", task)
	}
}

func TestGameTaskOrderPreserved(t *testing.T) {
	ctx := context.Background()
	m, _, _ := setup(t)
	tr, _ := m.Load(ctx, "REG-1")

	games := []string{"Bravo", "Alpha", "Zulu"}
	for _, g := range games {
		if _, err := tr.AddGameTask(ctx, g); err != nil {
			t.Fatal(err)
		}
		if _, err := tr.CompleteGameTask(ctx, g); err != nil {
			t.Fatal(err)
		}
	}
	session := tr.Session()
	for i, g := range games {
		if session.GameTasks[i].Game != g {
			t.Fatalf("task order not preserved: %+v", session.GameTasks)
		}
	}
}
