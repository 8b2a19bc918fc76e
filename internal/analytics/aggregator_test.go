package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

func seed(t *testing.T) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	ctx := context.Background()

	regs := []models.Registration{
		{RegistrationID: "REG-1", Date: "2026-01-10", Slot: "09:00 - 11:00", Name: "Alice", Email: "alice@example.com", WWID: "WW1"},
		{RegistrationID: "REG-2", Date: "2026-01-10", Slot: "09:00 - 11:00", Name: "Bob", Email: "bob@example.com", WWID: "WW2"},
		{RegistrationID: "REG-3", Date: "2026-01-11", Slot: "13:00 - 15:00", Name: "Cara", Email: "cara@example.com", WWID: "WW3"},
	}
	if err := s.PutRegistrations(ctx, regs); err != nil {
		t.Fatal(err)
	}

	sessions := []models.Session{
		{
			RegistrationID: "REG-1", User: "Alice", WWID: "WW1", Date: "2026-01-10",
			GameTasks: []models.GameTask{
				{Game: "Space Raiders", TotalPlayTime: int64(90 * time.Minute / time.Millisecond), Crashes: 2, CompletionPercentage: 80,
					Screenshots: []models.Screenshot{{ID: "a"}, {ID: "b"}}},
				{Game: "Kart Wars", TotalPlayTime: int64(30 * time.Minute / time.Millisecond), CompletionPercentage: 40},
			},
		},
		{
			RegistrationID: "REG-2", User: "Bob", WWID: "WW2", Date: "2026-01-10",
			GameTasks: []models.GameTask{
				{Game: "Space Raiders", TotalPlayTime: int64(30 * time.Minute / time.Millisecond), Crashes: 1, CompletionPercentage: 20,
					Observations: []models.Observation{{Note: "stutter in level 2"}}},
			},
		},
		// no tasks at all, must not affect game aggregates
		{RegistrationID: "REG-3", User: "Cara", WWID: "WW3", Date: "2026-01-11"},
	}
	if err := s.PutSessions(ctx, sessions); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestOverview(t *testing.T) {
	a := NewAggregator(seed(t))
	overview, err := a.Overview(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if overview.TotalRegistrations != 3 {
		t.Errorf("totalRegistrations = %d", overview.TotalRegistrations)
	}
	if want := workshop.TotalSlots() - 3; overview.AvailableSlots != want {
		t.Errorf("availableSlots = %d, want %d", overview.AvailableSlots, want)
	}
	wantRate := 3.0 / float64(workshop.TotalSlots()) * 100
	if math.Abs(overview.CompletionRate-wantRate) > 1e-9 {
		t.Errorf("completionRate = %v, want %v", overview.CompletionRate, wantRate)
	}
	if overview.TotalSessions != 3 {
		t.Errorf("totalSessions = %d", overview.TotalSessions)
	}
	if overview.SlotFill["2026-01-10"]["09:00 - 11:00"] != 2 {
		t.Errorf("slot fill = %+v", overview.SlotFill)
	}
	if overview.SlotFill["2026-01-11"]["13:00 - 15:00"] != 1 {
		t.Errorf("slot fill = %+v", overview.SlotFill)
	}
}

func TestGameReport(t *testing.T) {
	a := NewAggregator(seed(t))
	report, err := a.GameReport(context.Background(), "Space Raiders")
	if err != nil {
		t.Fatal(err)
	}

	if report.TotalPlayers != 2 {
		t.Errorf("totalPlayers = %d", report.TotalPlayers)
	}
	if math.Abs(report.TotalHours-2.0) > 1e-9 {
		t.Errorf("totalHours = %v, want 2", report.TotalHours)
	}
	if report.TotalCrashes != 3 {
		t.Errorf("totalCrashes = %d", report.TotalCrashes)
	}
	if report.TotalScreenshots != 2 {
		t.Errorf("totalScreenshots = %d", report.TotalScreenshots)
	}
	if math.Abs(report.AvgCompletion-50) > 1e-9 {
		t.Errorf("avgCompletion = %v, want 50", report.AvgCompletion)
	}
	if math.Abs(report.AvgSessionTime-60) > 1e-9 {
		t.Errorf("avgSessionTime = %v minutes, want 60", report.AvgSessionTime)
	}
	if len(report.Players) != 2 {
		t.Fatalf("players = %+v", report.Players)
	}
	if report.Players[1].Notes != 1 || report.Players[1].WWID != "WW2" {
		t.Errorf("player row = %+v", report.Players[1])
	}
}

func TestGameReportUnknownGame(t *testing.T) {
	a := NewAggregator(seed(t))
	report, err := a.GameReport(context.Background(), "Nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalPlayers != 0 || report.TotalHours != 0 || len(report.Players) != 0 {
		t.Errorf("empty report expected, got %+v", report)
	}
	if report.AvgCompletion != 0 || report.AvgSessionTime != 0 {
		t.Errorf("averages over zero samples must be zero, got %+v", report)
	}
}

func TestGamesFirstSeenOrder(t *testing.T) {
	a := NewAggregator(seed(t))
	games, err := a.Games(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Space Raiders", "Kart Wars"}
	if len(games) != len(want) {
		t.Fatalf("games = %v", games)
	}
	for i := range want {
		if games[i] != want[i] {
			t.Fatalf("games = %v, want %v", games, want)
		}
	}
}
