package payprovider

import "github.com/google/uuid"

// Статусы платежа, которые провайдер присылает в webhook
// Движок реагирует только на эти значения; остальные логируются и подтверждаются
const (
	StatusPaid     = "paid"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
)

// CreateInvoiceRequest запрос на создание инвойса у провайдера
type CreateInvoiceRequest struct {
	// TransactionID наш идентификатор транзакции, передается провайдеру
	// как idempotency key
	TransactionID uuid.UUID `json:"transactionId"`
	ClientID      int64     `json:"clientId"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description"`
}

// Invoice созданный у провайдера платеж
type Invoice struct {
	// ProviderPaymentID идентификатор платежа на стороне провайдера,
	// по нему сопоставляются входящие webhook'и
	ProviderPaymentID string `json:"paymentId"`
	PaymentURL        string `json:"paymentUrl"`
}

// ErrorResponse модель ошибки от провайдера
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
