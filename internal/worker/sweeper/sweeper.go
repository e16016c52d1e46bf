package sweeper

import (
	"context"
	"time"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	"github.com/m04kA/STC-ReservationService/internal/integrations/notifyservice"
)

// Duty labels для метрик
const (
	dutyExpiredHolds = "expired_holds"
	dutyStalePending = "stale_pending"
)

// Config настройки sweeper'а
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// Sweeper фоновый воркер реконсиляции
//
// Две обязанности, выполняемые каждый проход:
//  1. снятие протухших hold'ов со слотов (страховка поверх lazy reclamation);
//  2. перевод зависших pending транзакций в expired с освобождением захвата.
//
// Ошибка на одной записи не прерывает проход - каждая запись обрабатывается
// независимо, неудачная будет подобрана следующим проходом
type Sweeper struct {
	slotRepo     SlotRepository
	txRepo       TransactionRepository
	groupRepo    GroupSessionRepository
	notifyClient NotifyServiceClient
	txManager    TransactionManager
	metrics      Metrics
	timeProvider TimeProvider
	logger       Logger

	interval  time.Duration
	batchSize int
}

// New создает новый экземпляр sweeper'а
// Нулевые значения конфигурации заменяются дефолтами
func New(
	slotRepository SlotRepository,
	transactionRepository TransactionRepository,
	groupRepository GroupSessionRepository,
	notifyClient NotifyServiceClient,
	txManager TransactionManager,
	metrics Metrics,
	logger Logger,
	cfg Config,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = domain.DefaultSweepInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultSweepBatchSize
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Sweeper{
		slotRepo:     slotRepository,
		txRepo:       transactionRepository,
		groupRepo:    groupRepository,
		notifyClient: notifyClient,
		txManager:    txManager,
		metrics:      metrics,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		interval:     cfg.Interval,
		batchSize:    cfg.BatchSize,
	}
}

// Run запускает периодический цикл реконсиляции до отмены контекста
// Первый проход выполняется сразу, не дожидаясь первого тика
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Sweeper: started, interval=%s, batch_size=%d", s.interval, s.batchSize)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper: stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep выполняет один проход обеих обязанностей
func (s *Sweeper) sweep(ctx context.Context) {
	s.releaseExpiredHolds(ctx)
	s.expireStaleTransactions(ctx)
}

// releaseExpiredHolds снимает протухшие hold'ы со слотов
// Транзакции при этом не трогаются - их судьбу решает либо webhook,
// либо вторая обязанность по истечении payment timeout
func (s *Sweeper) releaseExpiredHolds(ctx context.Context) {
	now := s.timeProvider.Now()

	slots, err := s.slotRepo.FindExpiredHolds(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("Sweeper: failed to find expired holds: %v", err)
		s.metrics.ObserveSweeperRun(dutyExpiredHolds, err)
		return
	}

	released := 0
	for _, slot := range slots {
		if err := s.slotRepo.ReleaseExpiredHold(ctx, slot.ID, now); err != nil {
			// Слот успели захватить заново или освободить - пропускаем
			s.logger.Info("Sweeper: slot id=%d no longer holds an expired hold: %v", slot.ID, err)
			continue
		}
		released++
	}

	if released > 0 {
		s.logger.Info("Sweeper: released %d expired holds", released)
	}
	s.metrics.ObserveSweeperRun(dutyExpiredHolds, nil)
	s.metrics.AddSweeperReclaimed("slot_hold", released)
}

// expireStaleTransactions закрывает pending транзакции, по которым провайдер
// так и не прислал callback за PaymentPendingTTL
func (s *Sweeper) expireStaleTransactions(ctx context.Context) {
	now := s.timeProvider.Now()
	olderThan := now.Add(-domain.PaymentPendingTTL)

	stale, err := s.txRepo.FindStalePending(ctx, olderThan, s.batchSize)
	if err != nil {
		s.logger.Error("Sweeper: failed to find stale pending transactions: %v", err)
		s.metrics.ObserveSweeperRun(dutyStalePending, err)
		return
	}

	expired := 0
	for _, t := range stale {
		if err := s.expireOne(ctx, t); err != nil {
			s.logger.Error("Sweeper: failed to expire tx=%s: %v", t.ID, err)
			continue
		}
		expired++

		// Уведомление после коммита, неуспех не влияет на результат прохода
		s.notifyClient.SendEventBestEffort(ctx, notifyservice.Event{
			Type:        notifyservice.EventReservationExpired,
			ClientID:    t.ClientID,
			Description: t.Intent.Description,
			Amount:      t.Amount,
		})
	}

	if expired > 0 {
		s.logger.Info("Sweeper: expired %d stale pending transactions", expired)
	}
	s.metrics.ObserveSweeperRun(dutyStalePending, nil)
	s.metrics.AddSweeperReclaimed("transaction", expired)
}

// expireOne закрывает одну зависшую транзакцию в отдельной транзакции БД
// Строка журнала блокируется первой, затем освобождается захват - тот же
// порядок блокировок, что и у settlement'а, иначе конкурентный webhook
// и проход sweeper'а могут выстроить deadlock
func (s *Sweeper) expireOne(ctx context.Context, t *domain.Transaction) error {
	return s.txManager.Do(ctx, func(txCtx context.Context) error {
		// Guard pending -> expired: если webhook успел закрыть транзакцию
		// между выборкой и этой строкой, перехода не будет
		if err := s.txRepo.MarkStatus(txCtx, t.ID, domain.TxPending, domain.TxExpired, nil); err != nil {
			return err
		}

		switch t.Intent.TargetType {
		case domain.IntentTargetSlot:
			if t.Intent.SlotID != nil {
				// Guard на holding_transaction_id: hold мог быть снят первой
				// обязанностью и переиспользован новой транзакцией
				if err := s.slotRepo.ReleaseIfHeldBy(txCtx, *t.Intent.SlotID, t.ID); err != nil {
					s.logger.Info("Sweeper: slot id=%d no longer held by tx=%s", *t.Intent.SlotID, t.ID)
				}
			}
		case domain.IntentTargetGroup:
			if t.Intent.GroupSessionID != nil {
				if err := s.groupRepo.DecrementParticipants(txCtx, *t.Intent.GroupSessionID, t.Intent.ParticipantsCount); err != nil {
					return err
				}
			}
		}

		return nil
	})
}
