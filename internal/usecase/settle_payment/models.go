package settle_payment

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/m04kA/STC-ReservationService/internal/domain"
)

// Request модель входящего webhook'а провайдера
// Проверка подписи выполняется выше по стеку, до вызова usecase
type Request struct {
	ProviderPaymentID string          // Correlation id платежа у провайдера
	ProviderStatus    string          // paid | failed | refunded
	RawPayload        json.RawMessage // Исходное тело webhook'а (для аудита в логах)
}

// Response итог settlement'а
type Response struct {
	TransactionID uuid.UUID
	Status        domain.TransactionStatus // Итоговый статус транзакции
	BookingID     *int64                   // ID бронирования (для completed)
	Duplicate     bool                     // true, если webhook был дубликатом и side effects не применялись
}
