package availability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gaming-workshop/backend/internal/models"
	"github.com/gaming-workshop/backend/internal/store"
	"github.com/gaming-workshop/backend/internal/workshop"
)

const (
	testDate = "2026-01-10"
	testSlot = "09:00 - 11:00"
)

func reg(email, wwid, date, slot string) models.Registration {
	return models.Registration{
		RegistrationID:   "REG-" + wwid,
		Date:             date,
		Slot:             slot,
		Name:             "Player " + wwid,
		Email:            email,
		WWID:             wwid,
		GamePreference:   "Space Raiders",
		RegistrationTime: time.Now(),
	}
}

func TestOccupancyGroupsByDateAndSlot(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	_ = s.PutRegistrations(ctx, []models.Registration{
		reg("a@example.com", "WW1", testDate, testSlot),
		reg("b@example.com", "WW2", testDate, testSlot),
		reg("c@example.com", "WW3", testDate, "11:00 - 13:00"),
		reg("d@example.com", "WW4", "2026-01-11", testSlot),
	})

	engine := NewEngine(s)
	occupancy, err := engine.Occupancy(ctx, testDate)
	if err != nil {
		t.Fatal(err)
	}
	if got := occupancy[workshop.SlotKey(testDate, testSlot)]; got != 2 {
		t.Errorf("expected 2 in morning slot, got %d", got)
	}
	if got := occupancy[workshop.SlotKey(testDate, "11:00 - 13:00")]; got != 1 {
		t.Errorf("expected 1 in second slot, got %d", got)
	}
	if len(occupancy) != 2 {
		t.Errorf("other dates leaked into occupancy: %v", occupancy)
	}
}

func TestIsSlotFull(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	var regs []models.Registration
	for i := 0; i < workshop.MaxUsersPerSlot; i++ {
		regs = append(regs, reg(fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("WW%d", i), testDate, testSlot))
	}
	_ = s.PutRegistrations(ctx, regs)

	engine := NewEngine(s)
	full, err := engine.IsSlotFull(ctx, testDate, testSlot)
	if err != nil {
		t.Fatal(err)
	}
	if !full {
		t.Error("expected slot to be full at capacity")
	}
	full, _ = engine.IsSlotFull(ctx, testDate, "11:00 - 13:00")
	if full {
		t.Error("empty slot reported full")
	}
}

func TestCheckRejectsDuplicatesWithinSlotOnly(t *testing.T) {
	regs := []models.Registration{reg("alice@example.com", "WW1", testDate, testSlot)}

	if err := Check(regs, "alice@example.com", "WW9", testDate, testSlot); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected duplicate email, got %v", err)
	}
	// email comparison is case-insensitive
	if err := Check(regs, "ALICE@Example.com", "WW9", testDate, testSlot); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected duplicate email for upper-cased input, got %v", err)
	}
	if err := Check(regs, "other@example.com", "WW1", testDate, testSlot); !errors.Is(err, ErrDuplicateWWID) {
		t.Errorf("expected duplicate wwid, got %v", err)
	}
	// same identity in a different slot is allowed
	if err := Check(regs, "alice@example.com", "WW1", testDate, "11:00 - 13:00"); err != nil {
		t.Errorf("cross-slot duplicate should be allowed, got %v", err)
	}
	if err := Check(regs, "alice@example.com", "WW1", "2026-01-11", testSlot); err != nil {
		t.Errorf("same slot on another date should be allowed, got %v", err)
	}
}

func TestCheckCapacity(t *testing.T) {
	var regs []models.Registration
	for i := 0; i < workshop.MaxUsersPerSlot; i++ {
		regs = append(regs, reg(fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("WW%d", i), testDate, testSlot))
	}
	if err := Check(regs, "new@example.com", "WW99", testDate, testSlot); !errors.Is(err, ErrSlotFull) {
		t.Errorf("expected slot full, got %v", err)
	}
}
