package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the status of a payment attempt
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
	TxExpired   TransactionStatus = "expired"
)

// TerminalTransactionStatuses список терминальных статусов транзакции
// Транзакция в терминальном статусе больше не меняется
var TerminalTransactionStatuses = []TransactionStatus{
	TxCompleted,
	TxFailed,
	TxCancelled,
	TxExpired,
}

// Transaction represents a payment attempt correlated with the external
// payment provider. It carries the booking intent captured at initiation
// time, before the booking itself exists.
type Transaction struct {
	ID       uuid.UUID
	ClientID int64
	Amount   float64
	Status   TransactionStatus

	// Provider correlation, set after the invoice is created
	ProviderPaymentID *string
	ProviderStatus    *string

	// Intent is immutable once written; validated again at settlement time
	Intent BookingIntent

	// BookingID is non-nil if and only if Status == TxCompleted
	BookingID *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal returns true if the transaction reached a final status
func (t *Transaction) IsTerminal() bool {
	for _, s := range TerminalTransactionStatuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

// IsPending returns true if the transaction still awaits settlement
func (t *Transaction) IsPending() bool {
	return t.Status == TxPending
}

// IsStale returns true if the transaction is pending longer than the payment window
func (t *Transaction) IsStale(now time.Time) bool {
	return t.Status == TxPending && t.CreatedAt.Add(PaymentPendingTTL).Before(now)
}
