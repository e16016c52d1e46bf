package sweeper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	"github.com/m04kA/STC-ReservationService/internal/integrations/notifyservice"
)

// SlotRepository интерфейс репозитория слотов
type SlotRepository interface {
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*domain.Slot, error)
	ReleaseExpiredHold(ctx context.Context, id int64, now time.Time) error
	ReleaseIfHeldBy(ctx context.Context, id int64, txID uuid.UUID) error
}

// TransactionRepository интерфейс репозитория журнала платежей
type TransactionRepository interface {
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Transaction, error)
	MarkStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, providerStatus *string) error
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

// Metrics интерфейс метрик sweeper'а
type Metrics interface {
	ObserveSweeperRun(duty string, err error)
	AddSweeperReclaimed(kind string, n int)
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

// noopMetrics используется, когда сбор метрик выключен
type noopMetrics struct{}

func (noopMetrics) ObserveSweeperRun(string, error) {}
func (noopMetrics) AddSweeperReclaimed(string, int) {}

