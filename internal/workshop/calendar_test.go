package workshop

import "testing"

func TestContainsDate(t *testing.T) {
	cases := []struct {
		date string
		want bool
	}{
		{"2025-12-15", true},
		{"2026-03-15", true},
		{"2026-01-20", true},
		{"2025-12-14", false},
		{"2026-03-16", false},
		{"not-a-date", false},
	}
	for _, c := range cases {
		if got := ContainsDate(c.date); got != c.want {
			t.Errorf("ContainsDate(%q) = %v, want %v", c.date, got, c.want)
		}
	}
}

func TestValidSlot(t *testing.T) {
	if !ValidSlot("09:00 - 11:00") {
		t.Error("expected first slot to be valid")
	}
	if ValidSlot("19:00 - 21:00") {
		t.Error("expected unknown slot to be invalid")
	}
}

func TestTotals(t *testing.T) {
	days := TotalDays()
	if days != 91 {
		t.Errorf("TotalDays() = %d, want 91", days)
	}
	if got, want := TotalSlots(), days*len(TimeSlots)*MaxUsersPerSlot; got != want {
		t.Errorf("TotalSlots() = %d, want %d", got, want)
	}
}

func TestSlotKey(t *testing.T) {
	if got := SlotKey("2026-01-02", "09:00 - 11:00"); got != "2026-01-02_09:00 - 11:00" {
		t.Errorf("unexpected slot key %q", got)
	}
}
