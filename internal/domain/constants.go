package domain

import "time"

// Reconciliation timing constants
const (
	// HoldTTL время жизни hold'а на слот, пока клиент оплачивает
	HoldTTL = 5 * time.Minute

	// PaymentPendingTTL окно ожидания callback'а провайдера,
	// после которого pending транзакция считается протухшей
	PaymentPendingTTL = 30 * time.Minute

	// DefaultSweepInterval период запуска sweeper'а по умолчанию
	DefaultSweepInterval = 5 * time.Minute

	// DefaultSweepBatchSize максимум записей, обрабатываемых за один проход
	DefaultSweepBatchSize = 100
)

// Business validation constants
const (
	MinGroupParticipants     = 1
	MaxGroupParticipants     = 50
	MaxParticipantsPerIntent = 10
	MaxDescriptionLength     = 500
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)
