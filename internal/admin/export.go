// Package admin holds the operator surface: data exports and imports, the
// destructive maintenance operations and the backup trigger.
package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

// WorkshopInfo describes the fixed calendar inside a full export.
type WorkshopInfo struct {
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	TotalDays       int    `json:"totalDays"`
	SlotsPerDay     int    `json:"slotsPerDay"`
	MaxUsersPerSlot int    `json:"maxUsersPerSlot"`
	TotalSlots      int    `json:"totalSlots"`
}

// Statistics summarises the collections inside a full export.
type Statistics struct {
	TotalRegistrations int     `json:"totalRegistrations"`
	AvailableSlots     int     `json:"availableSlots"`
	CompletionRate     float64 `json:"completionRate"`
}

// FullExport is the complete backup document.
type FullExport struct {
	ExportDate    time.Time             `json:"exportDate"`
	WorkshopInfo  WorkshopInfo          `json:"workshopInfo"`
	Registrations []models.Registration `json:"registrations"`
	Sessions      []models.Session      `json:"sessions"`
	Statistics    Statistics            `json:"statistics"`
}

// Exporter produces CSV and JSON exports from the store.
type Exporter struct {
	store store.Store
	now   func() time.Time
}

func NewExporter(s store.Store, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{store: s, now: now}
}

// UsersCSV writes every registration as one CSV row.
func (e *Exporter) UsersCSV(ctx context.Context) ([]byte, error) {
	regs, err := e.store.Registrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"name", "email", "wwid", "date", "slot", "gamePreference", "registrationId", "registrationTime"}); err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	for _, r := range regs {
		row := []string{
			r.Name, r.Email, r.WWID, r.Date, r.Slot,
			r.GamePreference, r.RegistrationID,
			r.RegistrationTime.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export users: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	return buf.Bytes(), nil
}

// AnalyticsCSV writes one row per session with its headline timing numbers.
func (e *Exporter) AnalyticsCSV(ctx context.Context) ([]byte, error) {
	sessions, err := e.store.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("export analytics: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"user", "wwid", "date", "slot", "elapsedTime", "completionPercent"}); err != nil {
		return nil, fmt.Errorf("export analytics: %w", err)
	}
	for _, s := range sessions {
		row := []string{
			s.User, s.WWID, s.Date, s.Slot,
			fmt.Sprintf("%d", s.ElapsedTime),
			fmt.Sprintf("%.1f", s.CompletionPercent),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export analytics: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export analytics: %w", err)
	}
	return buf.Bytes(), nil
}

// Full builds the complete backup document from both collections.
func (e *Exporter) Full(ctx context.Context) (FullExport, error) {
	regs, err := e.store.Registrations(ctx)
	if err != nil {
		return FullExport{}, fmt.Errorf("full export: %w", err)
	}
	sessions, err := e.store.Sessions(ctx)
	if err != nil {
		return FullExport{}, fmt.Errorf("full export: %w", err)
	}

	total := workshop.TotalSlots()
	return FullExport{
		ExportDate: e.now().UTC(),
		WorkshopInfo: WorkshopInfo{
			StartDate:       workshop.StartDate,
			EndDate:         workshop.EndDate,
			TotalDays:       workshop.TotalDays(),
			SlotsPerDay:     len(workshop.TimeSlots),
			MaxUsersPerSlot: workshop.MaxUsersPerSlot,
			TotalSlots:      total,
		},
		Registrations: regs,
		Sessions:      sessions,
		Statistics: Statistics{
			TotalRegistrations: len(regs),
			AvailableSlots:     total - len(regs),
			CompletionRate:     float64(len(regs)) / float64(total) * 100,
		},
	}, nil
}

// FullJSON renders the backup document as indented JSON.
func (e *Exporter) FullJSON(ctx context.Context) ([]byte, error) {
	doc, err := e.Full(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("full export: %w", err)
	}
	return out, nil
}
