package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransaction_IsTerminal(t *testing.T) {
	assert.False(t, (&Transaction{Status: TxPending}).IsTerminal())

	for _, s := range TerminalTransactionStatuses {
		assert.True(t, (&Transaction{Status: s}).IsTerminal(), "status %s", s)
	}
}

func TestTransaction_IsPending(t *testing.T) {
	assert.True(t, (&Transaction{Status: TxPending}).IsPending())
	assert.False(t, (&Transaction{Status: TxCompleted}).IsPending())
	assert.False(t, (&Transaction{Status: TxExpired}).IsPending())
}

func TestTransaction_IsStale(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	fresh := &Transaction{Status: TxPending, CreatedAt: now.Add(-time.Minute)}
	assert.False(t, fresh.IsStale(now))

	onEdge := &Transaction{Status: TxPending, CreatedAt: now.Add(-PaymentPendingTTL)}
	assert.False(t, onEdge.IsStale(now))

	overdue := &Transaction{Status: TxPending, CreatedAt: now.Add(-PaymentPendingTTL - time.Second)}
	assert.True(t, overdue.IsStale(now))

	// A terminal transaction is never stale no matter how old
	old := &Transaction{Status: TxCompleted, CreatedAt: now.Add(-24 * time.Hour)}
	assert.False(t, old.IsStale(now))
}
