package domain

import (
	"fmt"
	"time"
)

// Slot is one of the fixed hourly labels a court can be reserved for,
// "08:00" through "21:00".
type Slot string

const (
	slotFirstHour = 8
	slotLastHour  = 21

	DateLayout = "2006-01-02"
)

// Slots returns the full daily enumeration in order.
func Slots() []Slot {
	out := make([]Slot, 0, slotLastHour-slotFirstHour+1)
	for h := slotFirstHour; h <= slotLastHour; h++ {
		out = append(out, Slot(fmt.Sprintf("%02d:00", h)))
	}
	return out
}

func ParseSlot(s string) (Slot, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", fmt.Errorf("%w: slot %q", ErrInvalidInput, s)
	}
	if t.Minute() != 0 || t.Hour() < slotFirstHour || t.Hour() > slotLastHour {
		return "", fmt.Errorf("%w: slot %q outside daily grid", ErrInvalidInput, s)
	}
	return Slot(t.Format("15:04")), nil
}

// Day truncates t to a calendar date at UTC midnight. All date comparisons
// in the booking window run at day granularity.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	return d, nil
}
