// Package workshop holds the fixed workshop calendar: the date window, the
// daily time slots and the capacity constants everything else derives from.
package workshop

import "time"

// DateLayout is the wire format for workshop dates.
const DateLayout = "2006-01-02"

const (
	// StartDate and EndDate bound the workshop window, inclusive.
	StartDate = "2025-12-15"
	EndDate   = "2026-03-15"

	// MaxUsersPerSlot is the number of gaming setups available per slot.
	MaxUsersPerSlot = 4

	// TotalSessionTime is the length of one testing session.
	TotalSessionTime = 2 * time.Hour
)

// TimeSlots is the ordered list of daily 2-hour windows.
var TimeSlots = []string{
	"09:00 - 11:00",
	"11:00 - 13:00",
	"13:00 - 15:00",
	"15:00 - 17:00",
	"17:00 - 19:00",
}

// SlotKey builds the occupancy key for a (date, slot) pair.
func SlotKey(date, slot string) string {
	return date + "_" + slot
}

// ValidSlot reports whether slot is one of the configured time ranges.
func ValidSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

// ContainsDate reports whether date falls inside the workshop window.
func ContainsDate(date string) bool {
	d, err := ParseDate(date)
	if err != nil {
		return false
	}
	start, _ := ParseDate(StartDate)
	end, _ := ParseDate(EndDate)
	return !d.Before(start) && !d.After(end)
}

// TotalDays is the number of calendar days in the window, inclusive.
func TotalDays() int {
	start, _ := ParseDate(StartDate)
	end, _ := ParseDate(EndDate)
	return int(end.Sub(start).Hours()/24) + 1
}

// TotalSlots is the total bookable capacity of the whole workshop.
func TotalSlots() int {
	return TotalDays() * len(TimeSlots) * MaxUsersPerSlot
}
