package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var slotTestNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func heldSlot(deadline time.Time) *Slot {
	txID := uuid.New()
	return &Slot{
		ID:                   1,
		InstructorID:         7,
		Status:               SlotHeld,
		HoldDeadline:         &deadline,
		HoldingTransactionID: &txID,
	}
}

func TestSlot_IsAvailable(t *testing.T) {
	tests := []struct {
		name string
		slot *Slot
		want bool
	}{
		{"available slot", &Slot{Status: SlotAvailable}, true},
		{"booked slot", &Slot{Status: SlotBooked}, false},
		{"blocked slot", &Slot{Status: SlotBlocked}, false},
		{"group slot", &Slot{Status: SlotGroup}, false},
		{"active hold", heldSlot(slotTestNow.Add(time.Minute)), false},
		{"expired hold counts as available", heldSlot(slotTestNow.Add(-time.Minute)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.slot.IsAvailable(slotTestNow))
		})
	}
}

func TestSlot_IsHoldExpired(t *testing.T) {
	assert.False(t, heldSlot(slotTestNow.Add(time.Minute)).IsHoldExpired(slotTestNow))
	assert.True(t, heldSlot(slotTestNow.Add(-time.Second)).IsHoldExpired(slotTestNow))

	// A held slot without a deadline is never considered expired
	noDeadline := &Slot{Status: SlotHeld}
	assert.False(t, noDeadline.IsHoldExpired(slotTestNow))

	// Status other than held never expires
	assert.False(t, (&Slot{Status: SlotBooked}).IsHoldExpired(slotTestNow))
}

func TestSlot_Transitions(t *testing.T) {
	available := &Slot{Status: SlotAvailable}
	blocked := &Slot{Status: SlotBlocked}
	booked := &Slot{Status: SlotBooked}
	held := heldSlot(slotTestNow.Add(time.Minute))
	group := &Slot{Status: SlotGroup}

	assert.True(t, available.CanBeBlocked())
	assert.False(t, blocked.CanBeBlocked())
	assert.False(t, held.CanBeBlocked())

	assert.True(t, blocked.CanBeUnblocked())
	assert.False(t, available.CanBeUnblocked())

	assert.True(t, available.CanBeDeleted())
	assert.True(t, blocked.CanBeDeleted())
	assert.False(t, booked.CanBeDeleted())
	assert.False(t, held.CanBeDeleted())
	assert.False(t, group.CanBeDeleted())
}
