package initiate_reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	grpRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/groupsession"
	slotRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/slot"
	"github.com/m04kA/STC-ReservationService/internal/integrations/payprovider"
)

// UseCase use case инициации бронирования
//
// Захват слота/мест и вставка pending транзакции с booking intent выполняются
// в одной SERIALIZABLE транзакции БД: либо коммитятся обе записи, либо ни одной.
// Раздельные транзакции здесь запрещены - они оставляют hold без строки в журнале
type UseCase struct {
	slotRepo     SlotRepository
	groupRepo    GroupSessionRepository
	txRepo       TransactionRepository
	payClient    PayProviderClient
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	slotRepository SlotRepository,
	groupRepository GroupSessionRepository,
	txRepository TransactionRepository,
	payClient PayProviderClient,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		slotRepo:     slotRepository,
		groupRepo:    groupRepository,
		txRepo:       txRepository,
		payClient:    payClient,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет инициацию бронирования
// Возвращает pending транзакцию с URL оплаты для передачи клиенту
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("InitiateReservation: client=%d, target=%s, participants=%d",
		req.ClientID, req.TargetType, req.ParticipantsCount)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("InitiateReservation: validation failed: %v", err)
		return nil, err
	}

	now := uc.timeProvider.Now()

	var (
		tx           *domain.Transaction
		holdDeadline *time.Time
		description  string
	)

	// 2. Захват слота/мест + вставка pending транзакции в одной атомарной единице
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		switch req.TargetType {
		case domain.IntentTargetSlot:
			tx, holdDeadline, description, err = uc.claimSlot(txCtx, req, now)
		case domain.IntentTargetGroup:
			tx, description, err = uc.claimGroupCapacity(txCtx, req)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("InitiateReservation: created pending tx=%s, amount=%.2f", tx.ID, tx.Amount)

	// 3. Создаем инвойс у провайдера - строго вне транзакции БД
	invoice, err := uc.payClient.CreateInvoice(ctx, payprovider.CreateInvoiceRequest{
		TransactionID: tx.ID,
		ClientID:      req.ClientID,
		Amount:        tx.Amount,
		Description:   description,
	})
	if err != nil {
		// Инвойс не создан - компенсируем захват, чтобы не ждать sweeper
		uc.logger.Error("InitiateReservation: invoice creation failed for tx=%s: %v", tx.ID, err)
		uc.compensate(ctx, req, tx.ID)
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitFailed, err)
	}

	// 4. Привязываем ID платежа провайдера к транзакции
	if err := uc.txRepo.SetProviderPaymentID(ctx, tx.ID, invoice.ProviderPaymentID); err != nil {
		uc.logger.Error("InitiateReservation: failed to bind provider payment id for tx=%s: %v", tx.ID, err)
		return nil, fmt.Errorf("%w: failed to bind provider payment id: %v", ErrInternal, err)
	}

	uc.logger.Info("InitiateReservation: tx=%s awaiting payment, provider_payment_id=%s",
		tx.ID, invoice.ProviderPaymentID)

	return &Response{
		TransactionID:     tx.ID,
		ProviderPaymentID: invoice.ProviderPaymentID,
		PaymentURL:        invoice.PaymentURL,
		Amount:            tx.Amount,
		HoldDeadline:      holdDeadline,
		Description:       description,
	}, nil
}

// claimSlot захватывает индивидуальный слот под row-level lock'ом
// Протухший hold переиспользуется сразу (lazy reclamation) - клиенту не нужно
// ждать следующего прохода sweeper'а
func (uc *UseCase) claimSlot(ctx context.Context, req *Request, now time.Time) (*domain.Transaction, *time.Time, string, error) {
	s, err := uc.slotRepo.GetByIDForUpdate(ctx, *req.SlotID)
	if err != nil {
		if errors.Is(err, slotRepo.ErrSlotNotFound) {
			uc.logger.Warn("InitiateReservation: slot id=%d not found", *req.SlotID)
			return nil, nil, "", ErrSlotNotFound
		}
		uc.logger.Error("InitiateReservation: failed to get slot id=%d: %v", *req.SlotID, err)
		return nil, nil, "", fmt.Errorf("%w: failed to get slot: %v", ErrInternal, err)
	}

	if s.IsHoldExpired(now) {
		if err := uc.slotRepo.ReleaseExpiredHold(ctx, s.ID, now); err != nil {
			uc.logger.Error("InitiateReservation: failed to reclaim expired hold on slot id=%d: %v", s.ID, err)
			return nil, nil, "", fmt.Errorf("%w: failed to reclaim expired hold: %v", ErrInternal, err)
		}
		uc.logger.Info("InitiateReservation: reclaimed expired hold on slot id=%d (tx=%v)",
			s.ID, s.HoldingTransactionID)
		s.Status = domain.SlotAvailable
	}

	if s.Status != domain.SlotAvailable {
		uc.logger.Warn("InitiateReservation: slot id=%d not available, status=%s", s.ID, s.Status)
		return nil, nil, "", ErrSlotUnavailable
	}

	description := fmt.Sprintf("Training %s %s-%s",
		s.SlotDate.Format(domain.DateFormat), s.StartTime, s.EndTime)

	tx := &domain.Transaction{
		ID:       uuid.New(),
		ClientID: req.ClientID,
		Amount:   req.Amount,
		Status:   domain.TxPending,
		Intent: domain.BookingIntent{
			Version:           domain.IntentVersion,
			TargetType:        domain.IntentTargetSlot,
			SlotID:            &s.ID,
			ParticipantsCount: 1,
			Price:             req.Amount,
			Description:       description,
		},
	}

	deadline := now.Add(domain.HoldTTL)

	if err := uc.slotRepo.Hold(ctx, s.ID, tx.ID, deadline); err != nil {
		if errors.Is(err, slotRepo.ErrSlotNotAvailable) {
			return nil, nil, "", ErrSlotUnavailable
		}
		uc.logger.Error("InitiateReservation: failed to hold slot id=%d: %v", s.ID, err)
		return nil, nil, "", fmt.Errorf("%w: failed to hold slot: %v", ErrInternal, err)
	}

	if _, err := uc.txRepo.Create(ctx, tx); err != nil {
		uc.logger.Error("InitiateReservation: failed to create transaction for slot id=%d: %v", s.ID, err)
		return nil, nil, "", fmt.Errorf("%w: failed to create transaction: %v", ErrInternal, err)
	}

	uc.logger.Info("InitiateReservation: slot id=%d held until %s by tx=%s",
		s.ID, deadline.Format(time.RFC3339), tx.ID)

	return tx, &deadline, description, nil
}

// claimGroupCapacity занимает места в групповой сессии под row-level lock'ом
// Дальнейшая capacity-мутация при успешном settlement'е не выполняется -
// места уже заняты здесь
func (uc *UseCase) claimGroupCapacity(ctx context.Context, req *Request) (*domain.Transaction, string, error) {
	gs, err := uc.groupRepo.GetByIDForUpdate(ctx, *req.GroupSessionID)
	if err != nil {
		if errors.Is(err, grpRepo.ErrSessionNotFound) {
			uc.logger.Warn("InitiateReservation: group session id=%d not found", *req.GroupSessionID)
			return nil, "", ErrSessionNotFound
		}
		uc.logger.Error("InitiateReservation: failed to get group session id=%d: %v", *req.GroupSessionID, err)
		return nil, "", fmt.Errorf("%w: failed to get group session: %v", ErrInternal, err)
	}

	if !gs.HasCapacityFor(req.ParticipantsCount) {
		uc.logger.Warn("InitiateReservation: group session id=%d capacity exceeded, %d/%d taken, requested %d",
			gs.ID, gs.CurrentParticipants, gs.MaxParticipants, req.ParticipantsCount)
		return nil, "", ErrCapacityExceeded
	}

	if err := uc.groupRepo.IncrementParticipants(ctx, gs.ID, req.ParticipantsCount); err != nil {
		if errors.Is(err, grpRepo.ErrCapacityExceeded) {
			return nil, "", ErrCapacityExceeded
		}
		uc.logger.Error("InitiateReservation: failed to claim capacity in session id=%d: %v", gs.ID, err)
		return nil, "", fmt.Errorf("%w: failed to claim capacity: %v", ErrInternal, err)
	}

	amount := gs.Price * float64(req.ParticipantsCount)

	tx := &domain.Transaction{
		ID:       uuid.New(),
		ClientID: req.ClientID,
		Amount:   amount,
		Status:   domain.TxPending,
		Intent: domain.BookingIntent{
			Version:           domain.IntentVersion,
			TargetType:        domain.IntentTargetGroup,
			GroupSessionID:    &gs.ID,
			ParticipantsCount: req.ParticipantsCount,
			Price:             amount,
			Description:       gs.Title,
		},
	}

	if _, err := uc.txRepo.Create(ctx, tx); err != nil {
		uc.logger.Error("InitiateReservation: failed to create transaction for session id=%d: %v", gs.ID, err)
		return nil, "", fmt.Errorf("%w: failed to create transaction: %v", ErrInternal, err)
	}

	uc.logger.Info("InitiateReservation: claimed %d spots in session id=%d by tx=%s",
		req.ParticipantsCount, gs.ID, tx.ID)

	return tx, gs.Title, nil
}

// compensate откатывает захват после неудачного создания инвойса
// Ошибки компенсации только логируются: hold и pending транзакцию
// в худшем случае доберет sweeper
func (uc *UseCase) compensate(ctx context.Context, req *Request, txID uuid.UUID) {
	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		switch req.TargetType {
		case domain.IntentTargetSlot:
			if err := uc.slotRepo.ReleaseIfHeldBy(txCtx, *req.SlotID, txID); err != nil {
				return fmt.Errorf("release slot id=%d: %v", *req.SlotID, err)
			}
		case domain.IntentTargetGroup:
			if err := uc.groupRepo.DecrementParticipants(txCtx, *req.GroupSessionID, req.ParticipantsCount); err != nil {
				return fmt.Errorf("decrement session id=%d: %v", *req.GroupSessionID, err)
			}
		}
		return uc.txRepo.MarkStatus(txCtx, txID, domain.TxPending, domain.TxFailed, nil)
	})
	if err != nil {
		uc.logger.Error("InitiateReservation: compensation failed for tx=%s (sweeper will reclaim): %v", txID, err)
	}
}
