package domain

import "time"

// BookingStatus represents the status of a confirmed reservation
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking represents a confirmed reservation, created only by the reservation
// coordinator as a side effect of transaction settlement
type Booking struct {
	ID       int64
	ClientID int64

	// Exactly one of SlotID / GroupSessionID is set
	SlotID         *int64
	GroupSessionID *int64

	ParticipantsCount int
	Price             float64
	Status            BookingStatus

	// Denormalized description for history and notifications
	Description string

	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the booking still holds its slot or capacity
func (b *Booking) IsActive() bool {
	return b.Status != BookingCancelled
}

// CanBeCancelled returns true if the booking can be reversed
func (b *Booking) CanBeCancelled() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// IsGroup returns true if the booking references a group session
func (b *Booking) IsGroup() bool {
	return b.GroupSessionID != nil
}

// InactiveBookingStatuses список статусов, не занимающих слот или места
var InactiveBookingStatuses = []BookingStatus{
	BookingCancelled,
}

// InstructorBookingsFilter фильтр для получения бронирований инструктора
type InstructorBookingsFilter struct {
	InstructorID    int64          // Обязательный параметр
	StartDate       *time.Time     // Начало периода (опционально)
	EndDate         *time.Time     // Конец периода (опционально)
	Status          *BookingStatus // Фильтр по статусу (опционально)
	IncludeInactive bool           // Включать ли отмененные бронирования
}
