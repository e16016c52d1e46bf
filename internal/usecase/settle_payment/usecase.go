package settle_payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	slotStorage "github.com/m04kA/STC-ReservationService/internal/infra/storage/slot"
	txRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/transaction"
	"github.com/m04kA/STC-ReservationService/internal/integrations/notifyservice"
	"github.com/m04kA/STC-ReservationService/internal/integrations/payprovider"
	"github.com/m04kA/STC-ReservationService/pkg/ptr"
)

// cancelReasonRefund причина отмены бронирования при возврате платежа
const cancelReasonRefund = "payment refunded by provider"

// UseCase use case settlement'а платежа
//
// Идемпотентен: повторный webhook с тем же correlation id и тем же статусом
// возвращает существующий итог без повторного применения side effects.
// Конкурентные вызовы сериализуются на row-level lock'е строки транзакции.
//
// Материализация бронирования и обновление журнала выполняются одной короткой
// транзакцией БД без постороннего I/O внутри - уведомления уходят только
// после коммита
type UseCase struct {
	txRepo       TransactionRepository
	bookingRepo  BookingRepository
	slotRepo     SlotRepository
	groupRepo    GroupSessionRepository
	notifyClient NotifyServiceClient
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	txRepository TransactionRepository,
	bookingRepository BookingRepository,
	slotRepository SlotRepository,
	groupRepository GroupSessionRepository,
	notifyClient NotifyServiceClient,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		txRepo:       txRepository,
		bookingRepo:  bookingRepository,
		slotRepo:     slotRepository,
		groupRepo:    groupRepository,
		notifyClient: notifyClient,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute применяет финальный статус платежа от провайдера
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.ProviderPaymentID == "" {
		return nil, fmt.Errorf("%w: providerPaymentID is required", ErrInvalidInput)
	}

	uc.logger.Info("SettlePayment: provider_payment_id=%s, provider_status=%s",
		req.ProviderPaymentID, req.ProviderStatus)

	var (
		result *Response
		event  *notifyservice.Event
	)

	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		// Строка транзакции блокируется FOR UPDATE - дубликаты webhook'ов
		// выстраиваются в очередь и видят уже терминальный статус
		t, err := uc.txRepo.GetByProviderPaymentID(txCtx, req.ProviderPaymentID)
		if err != nil {
			if errors.Is(err, txRepo.ErrTransactionNotFound) {
				uc.logger.Warn("SettlePayment: no transaction for provider_payment_id=%s", req.ProviderPaymentID)
				return ErrUnknownTransaction
			}
			uc.logger.Error("SettlePayment: failed to get transaction: %v", err)
			return fmt.Errorf("%w: failed to get transaction: %v", ErrInternal, err)
		}

		switch req.ProviderStatus {
		case payprovider.StatusPaid:
			result, event, err = uc.settleSuccess(txCtx, t, req)
		case payprovider.StatusFailed:
			result, err = uc.settleFailure(txCtx, t, req)
		case payprovider.StatusRefunded:
			result, event, err = uc.settleRefund(txCtx, t, req)
		default:
			uc.logger.Warn("SettlePayment: unsupported provider status %q for tx=%s", req.ProviderStatus, t.ID)
			return fmt.Errorf("%w: %q", ErrUnsupportedStatus, req.ProviderStatus)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	// Уведомление уходит строго после коммита и не влияет на результат
	if event != nil {
		uc.notifyClient.SendEventBestEffort(ctx, *event)
	}

	return result, nil
}

// settleSuccess материализует бронирование из intent payload
func (uc *UseCase) settleSuccess(ctx context.Context, t *domain.Transaction, req *Request) (*Response, *notifyservice.Event, error) {
	if t.IsTerminal() {
		if t.Status == domain.TxCompleted {
			uc.logger.Info("SettlePayment: duplicate success webhook for tx=%s, booking_id=%v", t.ID, t.BookingID)
			return &Response{
				TransactionID: t.ID,
				Status:        t.Status,
				BookingID:     t.BookingID,
				Duplicate:     true,
			}, nil, nil
		}
		uc.logger.Warn("SettlePayment: success webhook for tx=%s in terminal status %s", t.ID, t.Status)
		return nil, nil, fmt.Errorf("%w: tx=%s is %s, requested completed", ErrStateConflict, t.ID, t.Status)
	}

	// Оплата прошла, но intent неполный: fail closed - транзакция остается
	// pending для ручного разбора, платеж не отбрасывается молча
	if err := t.Intent.Validate(); err != nil {
		uc.logger.Error("SettlePayment: intent validation failed for paid tx=%s: %v (raw=%s)",
			t.ID, err, string(req.RawPayload))
		return nil, nil, fmt.Errorf("%w: tx=%s: %v", ErrIntentValidation, t.ID, err)
	}

	b := &domain.Booking{
		ClientID:          t.ClientID,
		SlotID:            t.Intent.SlotID,
		GroupSessionID:    t.Intent.GroupSessionID,
		ParticipantsCount: t.Intent.ParticipantsCount,
		Price:             t.Intent.Price,
		Status:            domain.BookingConfirmed,
		Description:       t.Intent.Description,
	}

	created, err := uc.bookingRepo.Create(ctx, b)
	if err != nil {
		uc.logger.Error("SettlePayment: failed to create booking for tx=%s: %v", t.ID, err)
		return nil, nil, fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
	}

	// Индивидуальный слот переводится в booked; счетчик групповой сессии
	// не трогаем - места заняты еще при инициации
	if t.Intent.TargetType == domain.IntentTargetSlot {
		if err := uc.slotRepo.MarkBooked(ctx, *t.Intent.SlotID, t.ID); err != nil {
			// Hold протух и был переиспользован другой транзакцией: оплата
			// прошла, но слот уже не наш. Fail closed - транзакция остается
			// pending, чужой hold не перетирается
			if errors.Is(err, slotStorage.ErrSlotNotHeld) {
				uc.logger.Error("SettlePayment: slot id=%d no longer held by tx=%s, paid reservation needs manual repair",
					*t.Intent.SlotID, t.ID)
				return nil, nil, fmt.Errorf("%w: slot id=%d, tx=%s", ErrHoldLost, *t.Intent.SlotID, t.ID)
			}
			uc.logger.Error("SettlePayment: failed to book slot id=%d for tx=%s: %v", *t.Intent.SlotID, t.ID, err)
			return nil, nil, fmt.Errorf("%w: failed to book slot: %v", ErrInternal, err)
		}
	}

	if err := uc.txRepo.MarkCompleted(ctx, t.ID, created.ID, req.ProviderStatus); err != nil {
		uc.logger.Error("SettlePayment: failed to complete tx=%s: %v", t.ID, err)
		return nil, nil, fmt.Errorf("%w: failed to complete transaction: %v", ErrInternal, err)
	}

	uc.logger.Info("SettlePayment: tx=%s completed, booking_id=%d", t.ID, created.ID)

	return &Response{
			TransactionID: t.ID,
			Status:        domain.TxCompleted,
			BookingID:     &created.ID,
		}, &notifyservice.Event{
			Type:        notifyservice.EventReservationConfirmed,
			ClientID:    t.ClientID,
			Description: t.Intent.Description,
			Amount:      t.Amount,
		}, nil
}

// settleFailure освобождает захваченный слот/места после неуспешной оплаты
func (uc *UseCase) settleFailure(ctx context.Context, t *domain.Transaction, req *Request) (*Response, error) {
	if t.IsTerminal() {
		if t.Status == domain.TxFailed {
			uc.logger.Info("SettlePayment: duplicate failure webhook for tx=%s", t.ID)
			return &Response{TransactionID: t.ID, Status: t.Status, Duplicate: true}, nil
		}
		uc.logger.Warn("SettlePayment: failure webhook for tx=%s in terminal status %s", t.ID, t.Status)
		return nil, fmt.Errorf("%w: tx=%s is %s, requested failed", ErrStateConflict, t.ID, t.Status)
	}

	if err := uc.releaseClaim(ctx, t); err != nil {
		return nil, err
	}

	if err := uc.txRepo.MarkStatus(ctx, t.ID, domain.TxPending, domain.TxFailed, ptr.Ptr(req.ProviderStatus)); err != nil {
		uc.logger.Error("SettlePayment: failed to mark tx=%s failed: %v", t.ID, err)
		return nil, fmt.Errorf("%w: failed to mark transaction failed: %v", ErrInternal, err)
	}

	uc.logger.Info("SettlePayment: tx=%s failed, claim released", t.ID)
	return &Response{TransactionID: t.ID, Status: domain.TxFailed}, nil
}

// settleRefund реверсирует оплаченное бронирование после возврата платежа
func (uc *UseCase) settleRefund(ctx context.Context, t *domain.Transaction, req *Request) (*Response, *notifyservice.Event, error) {
	if t.Status == domain.TxCancelled {
		uc.logger.Info("SettlePayment: duplicate refund webhook for tx=%s", t.ID)
		return &Response{TransactionID: t.ID, Status: t.Status, BookingID: t.BookingID, Duplicate: true}, nil, nil
	}

	if t.Status != domain.TxCompleted || t.BookingID == nil {
		uc.logger.Warn("SettlePayment: refund webhook for tx=%s in status %s", t.ID, t.Status)
		return nil, nil, fmt.Errorf("%w: tx=%s is %s, requested cancelled", ErrStateConflict, t.ID, t.Status)
	}

	b, err := uc.bookingRepo.GetByID(ctx, *t.BookingID)
	if err != nil {
		uc.logger.Error("SettlePayment: failed to get booking id=%d for refund of tx=%s: %v", *t.BookingID, t.ID, err)
		return nil, nil, fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
	}

	if err := uc.bookingRepo.Cancel(ctx, b.ID, cancelReasonRefund); err != nil {
		uc.logger.Error("SettlePayment: failed to cancel booking id=%d: %v", b.ID, err)
		return nil, nil, fmt.Errorf("%w: failed to cancel booking: %v", ErrInternal, err)
	}

	// Освобождаем ресурс: booked-слот возвращается в available,
	// у групповой сессии освобождаются места
	switch {
	case b.SlotID != nil:
		if err := uc.slotRepo.Release(ctx, *b.SlotID); err != nil {
			uc.logger.Error("SettlePayment: failed to release slot id=%d: %v", *b.SlotID, err)
			return nil, nil, fmt.Errorf("%w: failed to release slot: %v", ErrInternal, err)
		}
	case b.GroupSessionID != nil:
		if err := uc.groupRepo.DecrementParticipants(ctx, *b.GroupSessionID, b.ParticipantsCount); err != nil {
			uc.logger.Error("SettlePayment: failed to release capacity in session id=%d: %v", *b.GroupSessionID, err)
			return nil, nil, fmt.Errorf("%w: failed to release capacity: %v", ErrInternal, err)
		}
	}

	if err := uc.txRepo.MarkStatus(ctx, t.ID, domain.TxCompleted, domain.TxCancelled, ptr.Ptr(req.ProviderStatus)); err != nil {
		uc.logger.Error("SettlePayment: failed to mark tx=%s cancelled: %v", t.ID, err)
		return nil, nil, fmt.Errorf("%w: failed to mark transaction cancelled: %v", ErrInternal, err)
	}

	uc.logger.Info("SettlePayment: tx=%s cancelled by refund, booking_id=%d reversed", t.ID, b.ID)

	return &Response{
			TransactionID: t.ID,
			Status:        domain.TxCancelled,
			BookingID:     t.BookingID,
		}, &notifyservice.Event{
			Type:        notifyservice.EventReservationCancelled,
			ClientID:    t.ClientID,
			Description: b.Description,
			Amount:      t.Amount,
		}, nil
}

// releaseClaim освобождает захват pending транзакции (слот или места)
// Для слота release выполняется только если hold все еще принадлежит этой
// транзакции - протухший hold мог быть переиспользован
func (uc *UseCase) releaseClaim(ctx context.Context, t *domain.Transaction) error {
	switch t.Intent.TargetType {
	case domain.IntentTargetSlot:
		if t.Intent.SlotID == nil {
			uc.logger.Warn("SettlePayment: tx=%s has no slotId in intent, nothing to release", t.ID)
			return nil
		}
		if err := uc.slotRepo.ReleaseIfHeldBy(ctx, *t.Intent.SlotID, t.ID); err != nil {
			// Hold уже истек и был переиспользован или снят sweeper'ом - это не ошибка
			uc.logger.Info("SettlePayment: slot id=%d no longer held by tx=%s: %v", *t.Intent.SlotID, t.ID, err)
		}
	case domain.IntentTargetGroup:
		if t.Intent.GroupSessionID == nil {
			uc.logger.Warn("SettlePayment: tx=%s has no groupSessionId in intent, nothing to release", t.ID)
			return nil
		}
		if err := uc.groupRepo.DecrementParticipants(ctx, *t.Intent.GroupSessionID, t.Intent.ParticipantsCount); err != nil {
			uc.logger.Error("SettlePayment: failed to release capacity in session id=%d for tx=%s: %v",
				*t.Intent.GroupSessionID, t.ID, err)
			return fmt.Errorf("%w: failed to release capacity: %v", ErrInternal, err)
		}
	}
	return nil
}
