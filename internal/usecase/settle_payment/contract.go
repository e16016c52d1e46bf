package settle_payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	"github.com/m04kA/STC-ReservationService/internal/integrations/notifyservice"
)

// TransactionRepository интерфейс репозитория журнала платежей
type TransactionRepository interface {
	GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Transaction, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, bookingID int64, providerStatus string) error
	MarkStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, providerStatus *string) error
}

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	Cancel(ctx context.Context, id int64, reason string) error
}

// SlotRepository интерфейс репозитория слотов
type SlotRepository interface {
	MarkBooked(ctx context.Context, id int64, txID uuid.UUID) error
	Release(ctx context.Context, id int64) error
	ReleaseIfHeldBy(ctx context.Context, id int64, txID uuid.UUID) error
}

// GroupSessionRepository интерфейс репозитория групповых сессий
type GroupSessionRepository interface {
	DecrementParticipants(ctx context.Context, id int64, count int) error
}

// NotifyServiceClient интерфейс клиента сервиса уведомлений
type NotifyServiceClient interface {
	SendEventBestEffort(ctx context.Context, event notifyservice.Event)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
