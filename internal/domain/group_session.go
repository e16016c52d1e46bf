package domain

import "time"

// GroupSession represents a capacity-limited session shared by multiple participants.
// Instead of per-slot holds, capacity is claimed and released atomically through
// the current_participants counter under a row-level lock.
type GroupSession struct {
	ID                  int64
	SlotID              int64 // underlying slot with Status == SlotGroup
	Title               string
	MinParticipants     int
	MaxParticipants     int
	CurrentParticipants int
	Price               float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasCapacityFor returns true if count more participants fit into the session
func (g *GroupSession) HasCapacityFor(count int) bool {
	return g.CurrentParticipants+count <= g.MaxParticipants
}

// IsFull returns true if the session has no free spots left
func (g *GroupSession) IsFull() bool {
	return g.CurrentParticipants >= g.MaxParticipants
}

// FreeSpots returns the number of spots still available
func (g *GroupSession) FreeSpots() int {
	if g.IsFull() {
		return 0
	}
	return g.MaxParticipants - g.CurrentParticipants
}
