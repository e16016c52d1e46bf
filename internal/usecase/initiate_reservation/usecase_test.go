package initiate_reservation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	slotRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/slot"
	"github.com/m04kA/STC-ReservationService/internal/integrations/payprovider"
	"github.com/m04kA/STC-ReservationService/pkg/types"
)

// Фейки репозиториев и клиентов

type fakeSlotRepo struct {
	slot *domain.Slot

	holdErr          error
	heldID           int64
	heldBy           uuid.UUID
	heldUntil        time.Time
	reclaimedID      int64
	releasedIfHeldBy *uuid.UUID
}

func (f *fakeSlotRepo) GetByIDForUpdate(_ context.Context, id int64) (*domain.Slot, error) {
	if f.slot == nil || f.slot.ID != id {
		return nil, slotRepo.ErrSlotNotFound
	}
	cp := *f.slot
	return &cp, nil
}

func (f *fakeSlotRepo) Hold(_ context.Context, id int64, txID uuid.UUID, deadline time.Time) error {
	if f.holdErr != nil {
		return f.holdErr
	}
	f.heldID = id
	f.heldBy = txID
	f.heldUntil = deadline
	return nil
}

func (f *fakeSlotRepo) ReleaseExpiredHold(_ context.Context, id int64, _ time.Time) error {
	f.reclaimedID = id
	return nil
}

func (f *fakeSlotRepo) ReleaseIfHeldBy(_ context.Context, _ int64, txID uuid.UUID) error {
	f.releasedIfHeldBy = &txID
	return nil
}

type fakeGroupRepo struct {
	session *domain.GroupSession

	incremented int
	decremented int
}

func (f *fakeGroupRepo) GetByIDForUpdate(_ context.Context, id int64) (*domain.GroupSession, error) {
	if f.session == nil || f.session.ID != id {
		return nil, errors.New("groupsession.repository: session not found")
	}
	cp := *f.session
	return &cp, nil
}

func (f *fakeGroupRepo) IncrementParticipants(_ context.Context, _ int64, count int) error {
	f.incremented += count
	return nil
}

func (f *fakeGroupRepo) DecrementParticipants(_ context.Context, _ int64, count int) error {
	f.decremented += count
	return nil
}

type fakeTxRepo struct {
	createErr error
	created   []*domain.Transaction

	boundPaymentID string
	markedTo       domain.TransactionStatus
}

func (f *fakeTxRepo) Create(_ context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, t)
	return t, nil
}

func (f *fakeTxRepo) SetProviderPaymentID(_ context.Context, _ uuid.UUID, providerPaymentID string) error {
	f.boundPaymentID = providerPaymentID
	return nil
}

func (f *fakeTxRepo) MarkStatus(_ context.Context, _ uuid.UUID, _, to domain.TransactionStatus, _ *string) error {
	f.markedTo = to
	return nil
}

type fakePayClient struct {
	invoice *payprovider.Invoice
	err     error

	calls int
}

func (f *fakePayClient) CreateInvoice(_ context.Context, _ payprovider.CreateInvoiceRequest) (*payprovider.Invoice, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.invoice, nil
}

type passthroughTxManager struct{}

func (passthroughTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTimeProvider struct{ now time.Time }

func (f fixedTimeProvider) Now() time.Time { return f.now }

// Хелперы

var testNow = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func availableSlot() *domain.Slot {
	start, _ := types.NewTimeStringFromString("10:00")
	end, _ := types.NewTimeStringFromString("11:00")
	return &domain.Slot{
		ID:           42,
		InstructorID: 7,
		SlotDate:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		StartTime:    start,
		EndTime:      end,
		Status:       domain.SlotAvailable,
	}
}

func newTestUseCase(slots *fakeSlotRepo, groups *fakeGroupRepo, txs *fakeTxRepo, pay *fakePayClient) *UseCase {
	uc := NewUseCase(slots, groups, txs, pay, passthroughTxManager{}, nopLogger{})
	uc.timeProvider = fixedTimeProvider{now: testNow}
	return uc
}

func slotRequest() *Request {
	slotID := int64(42)
	return &Request{
		ClientID:          100,
		TargetType:        domain.IntentTargetSlot,
		SlotID:            &slotID,
		ParticipantsCount: 1,
		Amount:            1500,
	}
}

// Тесты

func TestExecute_SlotSuccess(t *testing.T) {
	slots := &fakeSlotRepo{slot: availableSlot()}
	txs := &fakeTxRepo{}
	pay := &fakePayClient{invoice: &payprovider.Invoice{ProviderPaymentID: "pay-1", PaymentURL: "https://pay/1"}}

	uc := newTestUseCase(slots, &fakeGroupRepo{}, txs, pay)

	resp, err := uc.Execute(context.Background(), slotRequest())
	require.NoError(t, err)

	assert.Equal(t, "pay-1", resp.ProviderPaymentID)
	assert.Equal(t, "https://pay/1", resp.PaymentURL)
	assert.Equal(t, 1500.0, resp.Amount)
	require.NotNil(t, resp.HoldDeadline)
	assert.Equal(t, testNow.Add(domain.HoldTTL), *resp.HoldDeadline)
	assert.Equal(t, "Training 2025-06-02 10:00-11:00", resp.Description)

	// Hold и pending транзакция созданы одной парой
	assert.Equal(t, int64(42), slots.heldID)
	require.Len(t, txs.created, 1)
	created := txs.created[0]
	assert.Equal(t, slots.heldBy, created.ID)
	assert.Equal(t, domain.TxPending, created.Status)
	assert.NoError(t, created.Intent.Validate())
	assert.Equal(t, "pay-1", txs.boundPaymentID)
}

func TestExecute_SlotHeldByAnother(t *testing.T) {
	s := availableSlot()
	otherTx := uuid.New()
	deadline := testNow.Add(2 * time.Minute)
	s.Status = domain.SlotHeld
	s.HoldDeadline = &deadline
	s.HoldingTransactionID = &otherTx

	slots := &fakeSlotRepo{slot: s}
	txs := &fakeTxRepo{}

	uc := newTestUseCase(slots, &fakeGroupRepo{}, txs, &fakePayClient{})

	_, err := uc.Execute(context.Background(), slotRequest())
	require.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Empty(t, txs.created)
}

func TestExecute_SlotExpiredHoldReclaimed(t *testing.T) {
	s := availableSlot()
	staleTx := uuid.New()
	deadline := testNow.Add(-time.Minute)
	s.Status = domain.SlotHeld
	s.HoldDeadline = &deadline
	s.HoldingTransactionID = &staleTx

	slots := &fakeSlotRepo{slot: s}
	txs := &fakeTxRepo{}
	pay := &fakePayClient{invoice: &payprovider.Invoice{ProviderPaymentID: "pay-2", PaymentURL: "https://pay/2"}}

	uc := newTestUseCase(slots, &fakeGroupRepo{}, txs, pay)

	resp, err := uc.Execute(context.Background(), slotRequest())
	require.NoError(t, err)

	// Протухший hold переиспользован без участия sweeper'а
	assert.Equal(t, int64(42), slots.reclaimedID)
	assert.Equal(t, int64(42), slots.heldID)
	assert.NotEqual(t, staleTx, slots.heldBy)
	assert.Equal(t, "pay-2", resp.ProviderPaymentID)
}

func TestExecute_SlotNotFound(t *testing.T) {
	uc := newTestUseCase(&fakeSlotRepo{}, &fakeGroupRepo{}, &fakeTxRepo{}, &fakePayClient{})

	_, err := uc.Execute(context.Background(), slotRequest())
	require.ErrorIs(t, err, ErrSlotNotFound)
}

func TestExecute_GroupSuccess(t *testing.T) {
	groups := &fakeGroupRepo{session: &domain.GroupSession{
		ID:                  5,
		SlotID:              42,
		Title:               "Morning yoga",
		MaxParticipants:     10,
		CurrentParticipants: 7,
		Price:               500,
	}}
	txs := &fakeTxRepo{}
	pay := &fakePayClient{invoice: &payprovider.Invoice{ProviderPaymentID: "pay-3", PaymentURL: "https://pay/3"}}

	uc := newTestUseCase(&fakeSlotRepo{}, groups, txs, pay)

	sessionID := int64(5)
	resp, err := uc.Execute(context.Background(), &Request{
		ClientID:          100,
		TargetType:        domain.IntentTargetGroup,
		GroupSessionID:    &sessionID,
		ParticipantsCount: 3,
	})
	require.NoError(t, err)

	// Сумма считается от цены сессии, места заняты сразу
	assert.Equal(t, 1500.0, resp.Amount)
	assert.Nil(t, resp.HoldDeadline)
	assert.Equal(t, 3, groups.incremented)

	require.Len(t, txs.created, 1)
	intent := txs.created[0].Intent
	assert.Equal(t, domain.IntentTargetGroup, intent.TargetType)
	assert.Equal(t, 3, intent.ParticipantsCount)
	assert.NoError(t, intent.Validate())
}

func TestExecute_GroupCapacityExceeded(t *testing.T) {
	groups := &fakeGroupRepo{session: &domain.GroupSession{
		ID:                  5,
		MaxParticipants:     10,
		CurrentParticipants: 9,
		Price:               500,
	}}
	txs := &fakeTxRepo{}

	uc := newTestUseCase(&fakeSlotRepo{}, groups, txs, &fakePayClient{})

	sessionID := int64(5)
	_, err := uc.Execute(context.Background(), &Request{
		ClientID:          100,
		TargetType:        domain.IntentTargetGroup,
		GroupSessionID:    &sessionID,
		ParticipantsCount: 2,
	})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Zero(t, groups.incremented)
	assert.Empty(t, txs.created)
}

func TestExecute_LedgerInsertFailureAbortsClaim(t *testing.T) {
	slots := &fakeSlotRepo{slot: availableSlot()}
	txs := &fakeTxRepo{createErr: errors.New("transaction.repository: failed to execute query")}
	pay := &fakePayClient{invoice: &payprovider.Invoice{ProviderPaymentID: "pay-1", PaymentURL: "https://pay/1"}}

	uc := newTestUseCase(slots, &fakeGroupRepo{}, txs, pay)

	_, err := uc.Execute(context.Background(), slotRequest())
	require.ErrorIs(t, err, ErrInternal)

	// Ошибка выходит из замыкания DoSerializable - менеджер откатывает
	// транзакцию вместе с hold'ом. До счета дело не доходит
	assert.Empty(t, txs.created)
	assert.Zero(t, pay.calls)
	assert.Empty(t, txs.boundPaymentID)
}

func TestExecute_InvoiceFailureCompensates(t *testing.T) {
	slots := &fakeSlotRepo{slot: availableSlot()}
	txs := &fakeTxRepo{}
	pay := &fakePayClient{err: errors.New("provider is down")}

	uc := newTestUseCase(slots, &fakeGroupRepo{}, txs, pay)

	_, err := uc.Execute(context.Background(), slotRequest())
	require.ErrorIs(t, err, ErrPaymentInitFailed)

	// Hold снят guard'ом по ID своей транзакции, транзакция закрыта как failed
	require.Len(t, txs.created, 1)
	require.NotNil(t, slots.releasedIfHeldBy)
	assert.Equal(t, txs.created[0].ID, *slots.releasedIfHeldBy)
	assert.Equal(t, domain.TxFailed, txs.markedTo)
}

func TestExecute_Validation(t *testing.T) {
	uc := newTestUseCase(&fakeSlotRepo{}, &fakeGroupRepo{}, &fakeTxRepo{}, &fakePayClient{})

	tests := []struct {
		name string
		req  *Request
	}{
		{name: "unknown target", req: &Request{ClientID: 1, TargetType: "equipment"}},
		{name: "slot without id", req: &Request{ClientID: 1, TargetType: domain.IntentTargetSlot, ParticipantsCount: 1}},
		{name: "group without id", req: &Request{ClientID: 1, TargetType: domain.IntentTargetGroup, ParticipantsCount: 2}},
		{name: "non-positive client", req: slotRequest()},
	}
	tests[3].req.ClientID = 0

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestExecute_SlotParticipantsMustBeOne(t *testing.T) {
	uc := newTestUseCase(&fakeSlotRepo{slot: availableSlot()}, &fakeGroupRepo{}, &fakeTxRepo{}, &fakePayClient{})

	req := slotRequest()
	req.ParticipantsCount = 2

	_, err := uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidInput)
}
