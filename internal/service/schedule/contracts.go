package schedule

import (
	"context"

	"github.com/m04kA/STC-ReservationService/internal/domain"
)

// SlotRepository интерфейс репозитория слотов
type SlotRepository interface {
	Create(ctx context.Context, s *domain.Slot) (*domain.Slot, error)
	GetByID(ctx context.Context, id int64) (*domain.Slot, error)
	ListByInstructor(ctx context.Context, filter domain.InstructorSlotsFilter) ([]*domain.Slot, error)
	UpdateStatus(ctx context.Context, id int64, from, to domain.SlotStatus) error
	Delete(ctx context.Context, id int64) error
}

// GroupSessionRepository интерфейс репозитория групповых сессий
type GroupSessionRepository interface {
	Create(ctx context.Context, gs *domain.GroupSession) (*domain.GroupSession, error)
}

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	CountActiveBySlotID(ctx context.Context, slotID int64) (int, error)
}

// TransactionRepository интерфейс репозитория журнала платежей
type TransactionRepository interface {
	CountNonTerminalBySlotID(ctx context.Context, slotID int64) (int, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
