package initiate_reservation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	"github.com/m04kA/STC-ReservationService/internal/integrations/payprovider"
)

// SlotRepository интерфейс репозитория слотов
type SlotRepository interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Slot, error)
	Hold(ctx context.Context, id int64, txID uuid.UUID, deadline time.Time) error
	ReleaseExpiredHold(ctx context.Context, id int64, now time.Time) error
	ReleaseIfHeldBy(ctx context.Context, id int64, txID uuid.UUID) error
}

// GroupSessionRepository интерфейс репозитория групповых сессий
type GroupSessionRepository interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.GroupSession, error)
	IncrementParticipants(ctx context.Context, id int64, count int) error
	DecrementParticipants(ctx context.Context, id int64, count int) error
}

// TransactionRepository интерфейс репозитория журнала платежей
type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error)
	SetProviderPaymentID(ctx context.Context, id uuid.UUID, providerPaymentID string) error
	MarkStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, providerStatus *string) error
}

// PayProviderClient интерфейс клиента платежного провайдера
type PayProviderClient interface {
	CreateInvoice(ctx context.Context, req payprovider.CreateInvoiceRequest) (*payprovider.Invoice, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
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
