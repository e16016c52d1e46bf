package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/STC-ReservationService/pkg/types"
)

// SlotStatus represents the status of a bookable time slot
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotHeld      SlotStatus = "held"
	SlotBooked    SlotStatus = "booked"
	SlotBlocked   SlotStatus = "blocked"
	SlotGroup     SlotStatus = "group" // underlying slot of a group session, capacity is tracked by counter
)

// Slot represents an individually bookable unit of instructor time
type Slot struct {
	ID           int64
	InstructorID int64
	SlotDate     time.Time
	StartTime    types.TimeString
	EndTime      types.TimeString
	Status       SlotStatus

	// Hold fields, set only while Status == SlotHeld
	HoldDeadline         *time.Time
	HoldingTransactionID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAvailable returns true if the slot can be claimed right now.
// A held slot whose hold deadline has passed counts as available:
// the stale hold is reclaimed lazily on the next initiation attempt.
func (s *Slot) IsAvailable(now time.Time) bool {
	if s.Status == SlotAvailable {
		return true
	}
	return s.Status == SlotHeld && s.IsHoldExpired(now)
}

// IsHoldExpired returns true if the slot is held and its deadline has passed
func (s *Slot) IsHoldExpired(now time.Time) bool {
	return s.Status == SlotHeld && s.HoldDeadline != nil && s.HoldDeadline.Before(now)
}

// CanBeDeleted returns true if the slot may be physically deleted.
// Held, booked and group slots are referenced by transactions or bookings.
func (s *Slot) CanBeDeleted() bool {
	return s.Status == SlotAvailable || s.Status == SlotBlocked
}

// CanBeBlocked returns true if the instructor may block the slot
func (s *Slot) CanBeBlocked() bool {
	return s.Status == SlotAvailable
}

// CanBeUnblocked returns true if the slot can be returned to the schedule
func (s *Slot) CanBeUnblocked() bool {
	return s.Status == SlotBlocked
}

// InstructorSlotsFilter фильтр для выборки слотов инструктора
type InstructorSlotsFilter struct {
	InstructorID int64       // Обязательный параметр
	StartDate    *time.Time  // Начало периода (опционально)
	EndDate      *time.Time  // Конец периода (опционально)
	Status       *SlotStatus // Фильтр по статусу (опционально)
}
