package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	"github.com/m04kA/STC-ReservationService/internal/integrations/notifyservice"
)

var testNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

// Фейки репозиториев и клиентов

type fakeSlotRepo struct {
	expiredHolds []*domain.Slot
	failRelease  map[int64]error
	ops          *[]string

	releasedExpired  []int64
	releasedIfHeldBy map[int64]uuid.UUID
}

func (f *fakeSlotRepo) FindExpiredHolds(_ context.Context, _ time.Time, _ int) ([]*domain.Slot, error) {
	return f.expiredHolds, nil
}

func (f *fakeSlotRepo) ReleaseExpiredHold(_ context.Context, id int64, _ time.Time) error {
	if err, ok := f.failRelease[id]; ok {
		return err
	}
	f.releasedExpired = append(f.releasedExpired, id)
	return nil
}

func (f *fakeSlotRepo) ReleaseIfHeldBy(_ context.Context, id int64, txID uuid.UUID) error {
	if f.ops != nil {
		*f.ops = append(*f.ops, "slot.release")
	}
	if f.releasedIfHeldBy == nil {
		f.releasedIfHeldBy = make(map[int64]uuid.UUID)
	}
	f.releasedIfHeldBy[id] = txID
	return nil
}

type fakeTxRepo struct {
	stale []*domain.Transaction
	ops   *[]string

	marked []uuid.UUID
}

func (f *fakeTxRepo) FindStalePending(_ context.Context, _ time.Time, _ int) ([]*domain.Transaction, error) {
	return f.stale, nil
}

func (f *fakeTxRepo) MarkStatus(_ context.Context, id uuid.UUID, from, to domain.TransactionStatus, _ *string) error {
	if from != domain.TxPending || to != domain.TxExpired {
		return errors.New("unexpected status transition")
	}
	if f.ops != nil {
		*f.ops = append(*f.ops, "tx.mark")
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeGroupRepo struct {
	failSessionID int64

	decremented map[int64]int
}

func (f *fakeGroupRepo) DecrementParticipants(_ context.Context, id int64, count int) error {
	if f.failSessionID != 0 && f.failSessionID == id {
		return errors.New("session not found")
	}
	if f.decremented == nil {
		f.decremented = make(map[int64]int)
	}
	f.decremented[id] += count
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

type recordingMetrics struct {
	runs      map[string]int
	reclaimed map[string]int
}

func (m *recordingMetrics) ObserveSweeperRun(duty string, _ error) {
	if m.runs == nil {
		m.runs = make(map[string]int)
	}
	m.runs[duty]++
}

func (m *recordingMetrics) AddSweeperReclaimed(kind string, n int) {
	if m.reclaimed == nil {
		m.reclaimed = make(map[string]int)
	}
	m.reclaimed[kind] += n
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTimeProvider struct{}

func (fixedTimeProvider) Now() time.Time { return testNow }

// Хелперы

func heldSlot(id int64) *domain.Slot {
	txID := uuid.New()
	deadline := testNow.Add(-time.Minute)
	return &domain.Slot{
		ID:                   id,
		InstructorID:         7,
		Status:               domain.SlotHeld,
		HoldDeadline:         &deadline,
		HoldingTransactionID: &txID,
	}
}

func staleSlotTx(slotID int64) *domain.Transaction {
	return &domain.Transaction{
		ID:       uuid.New(),
		ClientID: 100,
		Amount:   1500,
		Status:   domain.TxPending,
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

func staleGroupTx(sessionID int64, participants int) *domain.Transaction {
	return &domain.Transaction{
		ID:       uuid.New(),
		ClientID: 101,
		Amount:   1000,
		Status:   domain.TxPending,
		Intent: domain.BookingIntent{
			Version:           domain.IntentVersion,
			TargetType:        domain.IntentTargetGroup,
			GroupSessionID:    &sessionID,
			ParticipantsCount: participants,
			Price:             1000,
			Description:       "Morning yoga",
		},
	}
}

type fixture struct {
	slots   *fakeSlotRepo
	txs     *fakeTxRepo
	groups  *fakeGroupRepo
	notify  *fakeNotifyClient
	metrics *recordingMetrics
	sweeper *Sweeper
}

func newFixture() *fixture {
	f := &fixture{
		slots:   &fakeSlotRepo{},
		txs:     &fakeTxRepo{},
		groups:  &fakeGroupRepo{},
		notify:  &fakeNotifyClient{},
		metrics: &recordingMetrics{},
	}
	f.sweeper = New(f.slots, f.txs, f.groups, f.notify, passthroughTxManager{}, f.metrics, nopLogger{}, Config{})
	f.sweeper.timeProvider = fixedTimeProvider{}
	return f
}

// Тесты

func TestNew_AppliesDefaults(t *testing.T) {
	s := New(&fakeSlotRepo{}, &fakeTxRepo{}, &fakeGroupRepo{}, &fakeNotifyClient{},
		passthroughTxManager{}, nil, nopLogger{}, Config{})

	assert.Equal(t, domain.DefaultSweepInterval, s.interval)
	assert.Equal(t, domain.DefaultSweepBatchSize, s.batchSize)
	assert.NotNil(t, s.metrics)
}

func TestReleaseExpiredHolds(t *testing.T) {
	f := newFixture()
	f.slots.expiredHolds = []*domain.Slot{heldSlot(1), heldSlot(2), heldSlot(3)}

	f.sweeper.releaseExpiredHolds(context.Background())

	assert.Equal(t, []int64{1, 2, 3}, f.slots.releasedExpired)
	assert.Equal(t, 3, f.metrics.reclaimed["slot_hold"])
	assert.Equal(t, 1, f.metrics.runs[dutyExpiredHolds])
}

func TestReleaseExpiredHolds_SkipsReclaimedSlot(t *testing.T) {
	f := newFixture()
	f.slots.expiredHolds = []*domain.Slot{heldSlot(1), heldSlot(2), heldSlot(3)}
	// Слот 2 успели захватить заново между выборкой и release
	f.slots.failRelease = map[int64]error{2: errors.New("hold no longer expired")}

	f.sweeper.releaseExpiredHolds(context.Background())

	assert.Equal(t, []int64{1, 3}, f.slots.releasedExpired)
	assert.Equal(t, 2, f.metrics.reclaimed["slot_hold"])
}

func TestExpireStaleTransactions_Slot(t *testing.T) {
	f := newFixture()
	tx := staleSlotTx(42)
	f.txs.stale = []*domain.Transaction{tx}

	f.sweeper.expireStaleTransactions(context.Background())

	assert.Equal(t, []uuid.UUID{tx.ID}, f.txs.marked)
	assert.Equal(t, tx.ID, f.slots.releasedIfHeldBy[42])
	assert.Equal(t, 1, f.metrics.reclaimed["transaction"])

	require.Len(t, f.notify.events, 1)
	assert.Equal(t, notifyservice.EventReservationExpired, f.notify.events[0].Type)
	assert.Equal(t, tx.ClientID, f.notify.events[0].ClientID)
}

func TestExpireOne_MarksLedgerBeforeReleasingSlot(t *testing.T) {
	// Строка журнала блокируется раньше слота - в том же порядке, что
	// и при settlement'е
	f := newFixture()
	var ops []string
	f.txs.ops = &ops
	f.slots.ops = &ops
	f.txs.stale = []*domain.Transaction{staleSlotTx(42)}

	f.sweeper.expireStaleTransactions(context.Background())

	assert.Equal(t, []string{"tx.mark", "slot.release"}, ops)
}

func TestExpireStaleTransactions_GroupReleasesCapacity(t *testing.T) {
	f := newFixture()
	tx := staleGroupTx(5, 3)
	f.txs.stale = []*domain.Transaction{tx}

	f.sweeper.expireStaleTransactions(context.Background())

	assert.Equal(t, []uuid.UUID{tx.ID}, f.txs.marked)
	assert.Equal(t, 3, f.groups.decremented[5])
}

func TestExpireStaleTransactions_OneFailureDoesNotStopPass(t *testing.T) {
	f := newFixture()
	good := staleSlotTx(42)
	bad := staleGroupTx(5, 2)
	also := staleGroupTx(6, 1)
	f.txs.stale = []*domain.Transaction{good, bad, also}
	f.groups.failSessionID = 5

	f.sweeper.expireStaleTransactions(context.Background())

	// Неуспешная запись пропущена (ее транзакция БД откатывается целиком),
	// остальные закрыты и оповещены
	assert.Equal(t, 2, f.metrics.reclaimed["transaction"])
	require.Len(t, f.notify.events, 2)
	assert.Equal(t, good.ClientID, f.notify.events[0].ClientID)
	assert.Equal(t, also.ClientID, f.notify.events[1].ClientID)
}

func TestSweep_RunsBothDuties(t *testing.T) {
	f := newFixture()
	f.slots.expiredHolds = []*domain.Slot{heldSlot(1)}
	f.txs.stale = []*domain.Transaction{staleSlotTx(42)}

	f.sweeper.sweep(context.Background())

	assert.Equal(t, 1, f.metrics.runs[dutyExpiredHolds])
	assert.Equal(t, 1, f.metrics.runs[dutyStalePending])
	assert.Equal(t, 1, f.metrics.reclaimed["slot_hold"])
	assert.Equal(t, 1, f.metrics.reclaimed["transaction"])
}
