package settle_payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	slotRepository "github.com/m04kA/STC-ReservationService/internal/infra/storage/slot"
	txRepository "github.com/m04kA/STC-ReservationService/internal/infra/storage/transaction"
	"github.com/m04kA/STC-ReservationService/internal/integrations/notifyservice"
	"github.com/m04kA/STC-ReservationService/internal/integrations/payprovider"
)

// Фейки репозиториев и клиентов

type fakeTxRepo struct {
	tx *domain.Transaction

	completedBookingID *int64
	markedFrom         domain.TransactionStatus
	markedTo           domain.TransactionStatus
}

func (f *fakeTxRepo) GetByProviderPaymentID(_ context.Context, providerPaymentID string) (*domain.Transaction, error) {
	if f.tx == nil || f.tx.ProviderPaymentID == nil || *f.tx.ProviderPaymentID != providerPaymentID {
		return nil, txRepository.ErrTransactionNotFound
	}
	cp := *f.tx
	return &cp, nil
}

func (f *fakeTxRepo) MarkCompleted(_ context.Context, _ uuid.UUID, bookingID int64, _ string) error {
	f.completedBookingID = &bookingID
	return nil
}

func (f *fakeTxRepo) MarkStatus(_ context.Context, _ uuid.UUID, from, to domain.TransactionStatus, _ *string) error {
	f.markedFrom = from
	f.markedTo = to
	return nil
}

type fakeBookingRepo struct {
	nextID   int64
	created  *domain.Booking
	existing *domain.Booking

	cancelledID     int64
	cancelledReason string
}

func (f *fakeBookingRepo) Create(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	cp := *b
	cp.ID = f.nextID
	f.created = &cp
	return &cp, nil
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	if f.existing == nil || f.existing.ID != id {
		return nil, errors.New("booking not found")
	}
	cp := *f.existing
	return &cp, nil
}

func (f *fakeBookingRepo) Cancel(_ context.Context, id int64, reason string) error {
	f.cancelledID = id
	f.cancelledReason = reason
	return nil
}

type fakeSlotRepo struct {
	holdLost bool

	bookedID         int64
	bookedBy         *uuid.UUID
	releasedID       int64
	releasedIfHeldBy *uuid.UUID
}

func (f *fakeSlotRepo) MarkBooked(_ context.Context, id int64, txID uuid.UUID) error {
	if f.holdLost {
		return slotRepository.ErrSlotNotHeld
	}
	f.bookedID = id
	f.bookedBy = &txID
	return nil
}

func (f *fakeSlotRepo) Release(_ context.Context, id int64) error {
	f.releasedID = id
	return nil
}

func (f *fakeSlotRepo) ReleaseIfHeldBy(_ context.Context, _ int64, txID uuid.UUID) error {
	f.releasedIfHeldBy = &txID
	return nil
}

type fakeGroupRepo struct {
	decremented int
}

func (f *fakeGroupRepo) DecrementParticipants(_ context.Context, _ int64, count int) error {
	f.decremented += count
	return nil
}

type fakeNotifyClient struct {
	events []notifyservice.Event
}

func (f *fakeNotifyClient) SendEventBestEffort(_ context.Context, event notifyservice.Event) {
	f.events = append(f.events, event)
}

type passthroughTxManager struct{}

func (passthroughTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Хелперы

func pendingSlotTx() *domain.Transaction {
	slotID := int64(42)
	paymentID := "pay-1"
	return &domain.Transaction{
		ID:                uuid.New(),
		ClientID:          100,
		Amount:            1500,
		Status:            domain.TxPending,
		ProviderPaymentID: &paymentID,
		Intent: domain.BookingIntent{
			Version:           domain.IntentVersion,
			TargetType:        domain.IntentTargetSlot,
			SlotID:            &slotID,
			ParticipantsCount: 1,
			Price:             1500,
			Description:       "Training 2025-06-02 10:00-11:00",
		},
	}
}

func pendingGroupTx() *domain.Transaction {
	sessionID := int64(5)
	paymentID := "pay-2"
	return &domain.Transaction{
		ID:                uuid.New(),
		ClientID:          100,
		Amount:            1000,
		Status:            domain.TxPending,
		ProviderPaymentID: &paymentID,
		Intent: domain.BookingIntent{
			Version:           domain.IntentVersion,
			TargetType:        domain.IntentTargetGroup,
			GroupSessionID:    &sessionID,
			ParticipantsCount: 2,
			Price:             1000,
			Description:       "Morning yoga",
		},
	}
}

type fixture struct {
	txs     *fakeTxRepo
	books   *fakeBookingRepo
	slots   *fakeSlotRepo
	groups  *fakeGroupRepo
	notify  *fakeNotifyClient
	useCase *UseCase
}

func newFixture(tx *domain.Transaction) *fixture {
	f := &fixture{
		txs:    &fakeTxRepo{tx: tx},
		books:  &fakeBookingRepo{nextID: 77},
		slots:  &fakeSlotRepo{},
		groups: &fakeGroupRepo{},
		notify: &fakeNotifyClient{},
	}
	f.useCase = NewUseCase(f.txs, f.books, f.slots, f.groups, f.notify, passthroughTxManager{}, nopLogger{})
	return f
}

// Тесты

func TestExecute_PaidSlotCreatesBooking(t *testing.T) {
	tx := pendingSlotTx()
	f := newFixture(tx)

	resp, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-1",
		ProviderStatus:    payprovider.StatusPaid,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TxCompleted, resp.Status)
	assert.False(t, resp.Duplicate)
	require.NotNil(t, resp.BookingID)
	assert.Equal(t, int64(77), *resp.BookingID)

	// Бронирование материализовано из intent, слот переведен в booked
	require.NotNil(t, f.books.created)
	assert.Equal(t, domain.BookingConfirmed, f.books.created.Status)
	assert.Equal(t, tx.ClientID, f.books.created.ClientID)
	assert.Equal(t, int64(42), f.slots.bookedID)
	require.NotNil(t, f.slots.bookedBy)
	assert.Equal(t, tx.ID, *f.slots.bookedBy)
	require.NotNil(t, f.txs.completedBookingID)
	assert.Equal(t, int64(77), *f.txs.completedBookingID)

	// Уведомление ушло после коммита
	require.Len(t, f.notify.events, 1)
	assert.Equal(t, notifyservice.EventReservationConfirmed, f.notify.events[0].Type)
}

func TestExecute_PaidGroupDoesNotTouchCounter(t *testing.T) {
	f := newFixture(pendingGroupTx())

	resp, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-2",
		ProviderStatus:    payprovider.StatusPaid,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TxCompleted, resp.Status)
	// Места заняты еще при инициации - повторный инкремент запрещен
	assert.Zero(t, f.groups.decremented)
	assert.Zero(t, f.slots.bookedID)
	require.NotNil(t, f.books.created)
	assert.Equal(t, 2, f.books.created.ParticipantsCount)
}

func TestExecute_PaidDuplicateIsIdempotent(t *testing.T) {
	tx := pendingSlotTx()
	bookingID := int64(77)
	tx.Status = domain.TxCompleted
	tx.BookingID = &bookingID
	f := newFixture(tx)

	resp, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-1",
		ProviderStatus:    payprovider.StatusPaid,
	})
	require.NoError(t, err)

	assert.True(t, resp.Duplicate)
	require.NotNil(t, resp.BookingID)
	assert.Equal(t, bookingID, *resp.BookingID)

	// Side effects не применялись повторно
	assert.Nil(t, f.books.created)
	assert.Zero(t, f.slots.bookedID)
	assert.Empty(t, f.notify.events)
}

func TestExecute_PaidOnFailedTxConflicts(t *testing.T) {
	tx := pendingSlotTx()
	tx.Status = domain.TxFailed
	f := newFixture(tx)

	_, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-1",
		ProviderStatus:    payprovider.StatusPaid,
	})
	require.ErrorIs(t, err, ErrStateConflict)
	assert.Nil(t, f.books.created)
}

func TestExecute_PaidInvalidIntentFailsClosed(t *testing.T) {
	tx := pendingSlotTx()
	tx.Intent.SlotID = nil // intent не собирается в бронирование
	f := newFixture(tx)

	_, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-1",
		ProviderStatus:    payprovider.StatusPaid,
	})
	require.ErrorIs(t, err, ErrIntentValidation)

	// Транзакция осталась pending, ничего не материализовано
	assert.Nil(t, f.books.created)
	assert.Nil(t, f.txs.completedBookingID)
	assert.Zero(t, f.txs.markedTo)
	assert.Empty(t, f.notify.events)
}

func TestExecute_PaidLostHoldFailsClosed(t *testing.T) {
	// Hold протух, слот перехвачен другой транзакцией, затем пришла оплата
	tx := pendingSlotTx()
	f := newFixture(tx)
	f.slots.holdLost = true

	_, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-1",
		ProviderStatus:    payprovider.StatusPaid,
	})
	require.ErrorIs(t, err, ErrHoldLost)

	// Транзакция осталась pending, чужой hold не тронут
	assert.Zero(t, f.slots.bookedID)
	assert.Nil(t, f.txs.completedBookingID)
	assert.Zero(t, f.txs.markedTo)
	assert.Empty(t, f.notify.events)
}

func TestExecute_FailedReleasesSlotClaim(t *testing.T) {
	tx := pendingSlotTx()
	f := newFixture(tx)

	resp, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-1",
		ProviderStatus:    payprovider.StatusFailed,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TxFailed, resp.Status)
	require.NotNil(t, f.slots.releasedIfHeldBy)
	assert.Equal(t, tx.ID, *f.slots.releasedIfHeldBy)
	assert.Equal(t, domain.TxPending, f.txs.markedFrom)
	assert.Equal(t, domain.TxFailed, f.txs.markedTo)
}

func TestExecute_FailedReleasesGroupCapacity(t *testing.T) {
	f := newFixture(pendingGroupTx())

	resp, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-2",
		ProviderStatus:    payprovider.StatusFailed,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TxFailed, resp.Status)
	assert.Equal(t, 2, f.groups.decremented)
}

func TestExecute_RefundReversesBooking(t *testing.T) {
	tx := pendingSlotTx()
	bookingID := int64(77)
	slotID := int64(42)
	tx.Status = domain.TxCompleted
	tx.BookingID = &bookingID
	f := newFixture(tx)
	f.books.existing = &domain.Booking{
		ID:                77,
		ClientID:          100,
		SlotID:            &slotID,
		ParticipantsCount: 1,
		Status:            domain.BookingConfirmed,
		Description:       "Training 2025-06-02 10:00-11:00",
	}

	resp, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-1",
		ProviderStatus:    payprovider.StatusRefunded,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TxCancelled, resp.Status)
	assert.Equal(t, int64(77), f.books.cancelledID)
	assert.Equal(t, int64(42), f.slots.releasedID)
	assert.Equal(t, domain.TxCompleted, f.txs.markedFrom)
	assert.Equal(t, domain.TxCancelled, f.txs.markedTo)

	require.Len(t, f.notify.events, 1)
	assert.Equal(t, notifyservice.EventReservationCancelled, f.notify.events[0].Type)
}

func TestExecute_RefundOnPendingConflicts(t *testing.T) {
	f := newFixture(pendingSlotTx())

	_, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-1",
		ProviderStatus:    payprovider.StatusRefunded,
	})
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestExecute_UnknownTransaction(t *testing.T) {
	f := newFixture(pendingSlotTx())

	_, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "no-such-payment",
		ProviderStatus:    payprovider.StatusPaid,
	})
	require.ErrorIs(t, err, ErrUnknownTransaction)
}

func TestExecute_UnsupportedStatus(t *testing.T) {
	f := newFixture(pendingSlotTx())

	_, err := f.useCase.Execute(context.Background(), &Request{
		ProviderPaymentID: "pay-1",
		ProviderStatus:    "chargeback",
	})
	require.ErrorIs(t, err, ErrUnsupportedStatus)
	assert.Nil(t, f.books.created)
}

func TestExecute_MissingPaymentID(t *testing.T) {
	f := newFixture(pendingSlotTx())

	_, err := f.useCase.Execute(context.Background(), &Request{ProviderStatus: payprovider.StatusPaid})
	require.ErrorIs(t, err, ErrInvalidInput)
}
