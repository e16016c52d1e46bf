package models

import (
	"errors"
	"time"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	"github.com/m04kA/STC-ReservationService/pkg/types"
)

var (
	// ErrInvalidDate возвращается при некорректной дате
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

	// ErrInvalidTimeRange возвращается при некорректном временном диапазоне
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrInvalidStatus возвращается при некорректном статусе слота
	ErrInvalidStatus = errors.New("invalid slot status")
)

// Request модели

// SlotTimeRange временной диапазон одного слота
type SlotTimeRange struct {
	StartTime string `json:"startTime"` // HH:MM
	EndTime   string `json:"endTime"`   // HH:MM
}

// CreateSlotsRequest запрос на создание слотов инструктора на день
type CreateSlotsRequest struct {
	InstructorID int64           `json:"instructorId"`
	UserID       int64           `json:"userId"`
	Date         string          `json:"date"` // YYYY-MM-DD
	Slots        []SlotTimeRange `json:"slots"`
}

// GetInstructorSlotsRequest запрос расписания инструктора
type GetInstructorSlotsRequest struct {
	InstructorID int64      `json:"instructorId"`
	StartDate    *time.Time `json:"startDate,omitempty"` // Начало периода (опционально)
	EndDate      *time.Time `json:"endDate,omitempty"`   // Конец периода (опционально)
	Status       *string    `json:"status,omitempty"`    // Фильтр по статусу (опционально)
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *GetInstructorSlotsRequest) ToDomainFilter() (domain.InstructorSlotsFilter, error) {
	filter := domain.InstructorSlotsFilter{
		InstructorID: r.InstructorID,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
	}

	if r.Status != nil {
		status, err := ToDomainSlotStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	return filter, nil
}

// CreateGroupSessionRequest запрос на создание групповой сессии на базе слота
type CreateGroupSessionRequest struct {
	UserID          int64   `json:"userId"`
	SlotID          int64   `json:"slotId"`
	Title           string  `json:"title"`
	MinParticipants int     `json:"minParticipants"`
	MaxParticipants int     `json:"maxParticipants"`
	Price           float64 `json:"price"`
}

// Response модели

// SlotResponse представление слота в ответах API
type SlotResponse struct {
	ID           int64  `json:"id"`
	InstructorID int64  `json:"instructorId"`
	Date         string `json:"date"`      // YYYY-MM-DD
	StartTime    string `json:"startTime"` // HH:MM
	EndTime      string `json:"endTime"`   // HH:MM
	Status       string `json:"status"`
}

// SlotListResponse список слотов
type SlotListResponse struct {
	Slots []*SlotResponse `json:"slots"`
	Total int             `json:"total"`
}

// GroupSessionResponse представление групповой сессии в ответах API
type GroupSessionResponse struct {
	ID                  int64   `json:"id"`
	SlotID              int64   `json:"slotId"`
	Title               string  `json:"title"`
	MinParticipants     int     `json:"minParticipants"`
	MaxParticipants     int     `json:"maxParticipants"`
	CurrentParticipants int     `json:"currentParticipants"`
	FreeSpots           int     `json:"freeSpots"`
	Price               float64 `json:"price"`
}

// FromDomainSlot конвертирует domain.Slot в SlotResponse
func FromDomainSlot(s *domain.Slot) *SlotResponse {
	return &SlotResponse{
		ID:           s.ID,
		InstructorID: s.InstructorID,
		Date:         s.SlotDate.Format(domain.DateFormat),
		StartTime:    s.StartTime.String(),
		EndTime:      s.EndTime.String(),
		Status:       string(s.Status),
	}
}

// FromDomainSlotList конвертирует список domain.Slot в SlotListResponse
func FromDomainSlotList(slots []*domain.Slot) *SlotListResponse {
	result := &SlotListResponse{
		Slots: make([]*SlotResponse, 0, len(slots)),
		Total: len(slots),
	}
	for _, s := range slots {
		result.Slots = append(result.Slots, FromDomainSlot(s))
	}
	return result
}

// FromDomainGroupSession конвертирует domain.GroupSession в GroupSessionResponse
func FromDomainGroupSession(gs *domain.GroupSession) *GroupSessionResponse {
	return &GroupSessionResponse{
		ID:                  gs.ID,
		SlotID:              gs.SlotID,
		Title:               gs.Title,
		MinParticipants:     gs.MinParticipants,
		MaxParticipants:     gs.MaxParticipants,
		CurrentParticipants: gs.CurrentParticipants,
		FreeSpots:           gs.FreeSpots(),
		Price:               gs.Price,
	}
}

// ToDomainSlotStatus конвертирует строку в domain.SlotStatus
func ToDomainSlotStatus(s string) (domain.SlotStatus, error) {
	switch domain.SlotStatus(s) {
	case domain.SlotAvailable, domain.SlotHeld, domain.SlotBooked, domain.SlotBlocked, domain.SlotGroup:
		return domain.SlotStatus(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// ParseDate разбирает дату в формате YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(domain.DateFormat, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// ToDomainSlots конвертирует запрос на создание в список domain.Slot
// Проверяет формат времени и корректность диапазонов
func (r *CreateSlotsRequest) ToDomainSlots() ([]*domain.Slot, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return nil, err
	}

	slots := make([]*domain.Slot, 0, len(r.Slots))
	for _, tr := range r.Slots {
		start, err := types.NewTimeStringFromString(tr.StartTime)
		if err != nil {
			return nil, ErrInvalidTimeRange
		}
		end, err := types.NewTimeStringFromString(tr.EndTime)
		if err != nil {
			return nil, ErrInvalidTimeRange
		}
		if !start.IsBefore(end) {
			return nil, ErrInvalidTimeRange
		}

		slots = append(slots, &domain.Slot{
			InstructorID: r.InstructorID,
			SlotDate:     date,
			StartTime:    start,
			EndTime:      end,
			Status:       domain.SlotAvailable,
		})
	}

	return slots, nil
}
