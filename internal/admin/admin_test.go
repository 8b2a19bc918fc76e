package admin

import (
	"context"
	"encoding/csv"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
}

func seed(t *testing.T) *store.Memory {
	t.Helper()
	s := store.NewMemory()
	ctx := context.Background()

	regTime := time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)
	regs := []models.Registration{
		{RegistrationID: "REG-1", Date: "2026-01-10", Slot: "09:00 - 11:00", Name: "Alice", Email: "alice@example.com", WWID: "WW1", GamePreference: "Space Raiders", RegistrationTime: regTime},
		{RegistrationID: "REG-2", Date: "2026-01-19", Slot: "11:00 - 13:00", Name: "Bob", Email: "bob@example.com", WWID: "WW2", GamePreference: "Kart Wars", RegistrationTime: regTime},
	}
	if err := s.PutRegistrations(ctx, regs); err != nil {
		t.Fatal(err)
	}
	sessions := []models.Session{
		{RegistrationID: "REG-1", User: "Alice", WWID: "WW1", Date: "2026-01-10", Slot: "09:00 - 11:00", ElapsedTime: 5400000, CompletionPercent: 75},
		{RegistrationID: "REG-2", User: "Bob", WWID: "WW2", Date: "2026-01-19", Slot: "11:00 - 13:00", ElapsedTime: 600000, CompletionPercent: 8.3},
	}
	if err := s.PutSessions(ctx, sessions); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestUsersCSV(t *testing.T) {
	e := NewExporter(seed(t), fixedNow)
	out, err := e.UsersCSV(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantHeader := []string{"name", "email", "wwid", "date", "slot", "gamePreference", "registrationId", "registrationTime"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v", rows[0])
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[1][0] != "Alice" || rows[1][6] != "REG-1" || rows[1][7] != "2026-01-05T10:30:00Z" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestAnalyticsCSV(t *testing.T) {
	e := NewExporter(seed(t), fixedNow)
	out, err := e.AnalyticsCSV(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	wantHeader := []string{"user", "wwid", "date", "slot", "elapsedTime", "completionPercent"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][4] != "5400000" || rows[1][5] != "75.0" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestFullExportStatistics(t *testing.T) {
	e := NewExporter(seed(t), fixedNow)
	doc, err := e.Full(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !doc.ExportDate.Equal(fixedNow()) {
		t.Errorf("exportDate = %v", doc.ExportDate)
	}
	if doc.WorkshopInfo.TotalSlots != workshop.TotalSlots() || doc.WorkshopInfo.SlotsPerDay != len(workshop.TimeSlots) {
		t.Errorf("workshopInfo = %+v", doc.WorkshopInfo)
	}
	if doc.Statistics.TotalRegistrations != 2 {
		t.Errorf("totalRegistrations = %d", doc.Statistics.TotalRegistrations)
	}
	if want := workshop.TotalSlots() - 2; doc.Statistics.AvailableSlots != want {
		t.Errorf("availableSlots = %d, want %d", doc.Statistics.AvailableSlots, want)
	}
	if len(doc.Registrations) != 2 || len(doc.Sessions) != 2 {
		t.Errorf("collections = %d regs, %d sessions", len(doc.Registrations), len(doc.Sessions))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seed(t)
	e := NewExporter(src, fixedNow)
	raw, err := e.FullJSON(ctx)
	if err != nil {
		t.Fatal(err)
	}

	dst := store.NewMemory()
	m := NewMaintenance(dst, nil, fixedNow, nil)
	regs, sessions, err := m.Import(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	if regs != 2 || sessions != 2 {
		t.Fatalf("import counted %d regs, %d sessions", regs, sessions)
	}

	wantRegs, _ := src.Registrations(ctx)
	gotRegs, _ := dst.Registrations(ctx)
	if !reflect.DeepEqual(gotRegs, wantRegs) {
		t.Errorf("registrations round-trip mismatch:\n got %+v\nwant %+v", gotRegs, wantRegs)
	}
	wantSessions, _ := src.Sessions(ctx)
	gotSessions, _ := dst.Sessions(ctx)
	if !reflect.DeepEqual(gotSessions, wantSessions) {
		t.Errorf("sessions round-trip mismatch:\n got %+v\nwant %+v", gotSessions, wantSessions)
	}
}

func TestImportMalformedLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	m := NewMaintenance(s, nil, fixedNow, nil)

	for _, raw := range []string{"not json at all", `{"registrations": "wrong shape"}`, `{"other": 1}`} {
		if _, _, err := m.Import(ctx, []byte(raw)); !errors.Is(err, ErrImportFormat) {
			t.Errorf("payload %q: expected ErrImportFormat, got %v", raw, err)
		}
	}

	regs, _ := s.Registrations(ctx)
	if len(regs) != 2 {
		t.Errorf("store modified by failed import: %d registrations", len(regs))
	}
}

func TestImportPartialPayload(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	m := NewMaintenance(s, nil, fixedNow, nil)

	// only sessions present: registrations stay as they were
	if _, n, err := m.Import(ctx, []byte(`{"sessions": []}`)); err != nil || n != 0 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}
	regs, _ := s.Registrations(ctx)
	sessions, _ := s.Sessions(ctx)
	if len(regs) != 2 || len(sessions) != 0 {
		t.Errorf("got %d regs, %d sessions", len(regs), len(sessions))
	}
}

func TestResetDay(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	m := NewMaintenance(s, nil, fixedNow, nil)

	removed, err := m.ResetDay(ctx, "2026-01-10")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d", removed)
	}
	regs, _ := s.Registrations(ctx)
	sessions, _ := s.Sessions(ctx)
	if len(regs) != 1 || regs[0].RegistrationID != "REG-2" {
		t.Errorf("regs = %+v", regs)
	}
	if len(sessions) != 1 || sessions[0].RegistrationID != "REG-2" {
		t.Errorf("sessions = %+v", sessions)
	}

	if _, err := m.ResetDay(ctx, "10/01/2026"); !errors.Is(err, ErrImportFormat) {
		t.Errorf("bad date accepted: %v", err)
	}
}

func TestClearOldSessions(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	m := NewMaintenance(s, nil, fixedNow, nil)

	// now is 2026-01-20: the 7-day cutoff keeps 2026-01-19 and drops 2026-01-10
	removed, err := m.ClearOldSessions(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d", removed)
	}
	sessions, _ := s.Sessions(ctx)
	if len(sessions) != 1 || sessions[0].RegistrationID != "REG-2" {
		t.Errorf("sessions = %+v", sessions)
	}
	// registrations are untouched by session retention
	regs, _ := s.Registrations(ctx)
	if len(regs) != 2 {
		t.Errorf("regs = %d", len(regs))
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	m := NewMaintenance(s, nil, fixedNow, nil)

	if err := m.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	regs, _ := s.Registrations(ctx)
	sessions, _ := s.Sessions(ctx)
	if len(regs) != 0 || len(sessions) != 0 {
		t.Errorf("data remained: %d regs, %d sessions", len(regs), len(sessions))
	}
}
