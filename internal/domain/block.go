package domain

import "time"

// Block is an administrator-imposed unavailability for one (court, date,
// slot) tuple. A matching block makes the tuple unbookable regardless of
// reservation state.
type Block struct {
	ID        string
	CourtID   string
	Date      time.Time
	Slot      Slot
	Reason    string
	CreatedBy string
	CreatedAt time.Time
}
