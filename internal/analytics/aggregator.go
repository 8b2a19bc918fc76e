// Package analytics derives read-side roll-ups from the registrations and
// sessions collections. It never mutates either one.
package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaming-workshop/backend/internal/availability"
	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

// Overview summarises the whole workshop.
type Overview struct {
	TotalRegistrations int                       `json:"totalRegistrations"`
	AvailableSlots     int                       `json:"availableSlots"`
	CompletionRate     float64                   `json:"completionRate"`
	TotalSessions      int                       `json:"totalSessions"`
	SlotFill           map[string]map[string]int `json:"slotFill"`
}

// PlayerRow is one tester's record for a single game.
type PlayerRow struct {
	Name        string `json:"name"`
	WWID        string `json:"wwid"`
	Date        string `json:"date"`
	PlayTime    int64  `json:"playTime"`
	Completion  int    `json:"completion"`
	Crashes     int    `json:"crashes"`
	Screenshots int    `json:"screenshots"`
	Notes       int    `json:"notes"`
	SessionID   string `json:"sessionId"`
}

// GameReport aggregates every task recorded for one game across all sessions.
type GameReport struct {
	Game             string      `json:"game"`
	TotalPlayers     int         `json:"totalPlayers"`
	TotalHours       float64     `json:"totalHours"`
	TotalCrashes     int         `json:"totalCrashes"`
	TotalScreenshots int         `json:"totalScreenshots"`
	AvgCompletion    float64     `json:"avgCompletion"`
	AvgSessionTime   float64     `json:"avgSessionTime"`
	Players          []PlayerRow `json:"players"`
}

// Aggregator computes analytics from the store.
type Aggregator struct {
	store store.Store
}

func NewAggregator(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// Overview scans both collections for the dashboard numbers. The completion
// rate is registrations over total bookable capacity, as a percentage.
func (a *Aggregator) Overview(ctx context.Context) (Overview, error) {
	regs, err := a.store.Registrations(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics overview: %w", err)
	}
	sessions, err := a.store.Sessions(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("analytics overview: %w", err)
	}

	fill := make(map[string]map[string]int)
	for _, r := range regs {
		if fill[r.Date] == nil {
			fill[r.Date] = make(map[string]int)
		}
		fill[r.Date][r.Slot]++
	}

	total := workshop.TotalSlots()
	return Overview{
		TotalRegistrations: len(regs),
		AvailableSlots:     total - len(regs),
		CompletionRate:     float64(len(regs)) / float64(total) * 100,
		TotalSessions:      len(sessions),
		SlotFill:           fill,
	}, nil
}

// DateOccupancy returns one day's per-slot occupancy grid.
func (a *Aggregator) DateOccupancy(ctx context.Context, date string) (map[string]int, error) {
	regs, err := a.store.Registrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics occupancy: %w", err)
	}
	return availability.CountOccupancy(regs, date), nil
}

// GameReport rolls up every session carrying a task for the named game.
// Missing numeric fields on old records count as zero.
func (a *Aggregator) GameReport(ctx context.Context, game string) (GameReport, error) {
	sessions, err := a.store.Sessions(ctx)
	if err != nil {
		return GameReport{}, fmt.Errorf("analytics game report: %w", err)
	}

	report := GameReport{Game: game, Players: []PlayerRow{}}
	players := make(map[string]struct{})
	var completionSum, minuteSum float64
	var samples int

	for _, s := range sessions {
		task := s.Task(game)
		if task == nil {
			continue
		}
		players[strings.ToUpper(s.WWID)] = struct{}{}
		report.TotalHours += float64(task.TotalPlayTime) / (1000 * 60 * 60)
		report.TotalCrashes += task.Crashes
		report.TotalScreenshots += len(task.Screenshots)
		completionSum += float64(task.CompletionPercentage)
		minuteSum += float64(task.TotalPlayTime) / (1000 * 60)
		samples++
		report.Players = append(report.Players, playerRow(s, *task))
	}

	report.TotalPlayers = len(players)
	if samples > 0 {
		report.AvgCompletion = completionSum / float64(samples)
		report.AvgSessionTime = minuteSum / float64(samples)
	}
	return report, nil
}

// Games lists every game name that appears in any session, in first-seen order.
func (a *Aggregator) Games(ctx context.Context) ([]string, error) {
	sessions, err := a.store.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics games: %w", err)
	}
	seen := make(map[string]struct{})
	games := []string{}
	for _, s := range sessions {
		for _, task := range s.GameTasks {
			if _, ok := seen[task.Game]; ok {
				continue
			}
			seen[task.Game] = struct{}{}
			games = append(games, task.Game)
		}
	}
	return games, nil
}

func playerRow(s models.Session, task models.GameTask) PlayerRow {
	return PlayerRow{
		Name:        s.User,
		WWID:        s.WWID,
		Date:        s.Date,
		PlayTime:    task.TotalPlayTime,
		Completion:  task.CompletionPercentage,
		Crashes:     task.Crashes,
		Screenshots: len(task.Screenshots),
		Notes:       len(task.Observations),
		SessionID:   s.RegistrationID,
	}
}
