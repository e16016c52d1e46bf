package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	slotRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/slot"
	"github.com/m04kA/STC-ReservationService/internal/service/schedule/models"
)

// Service сервис управления расписанием инструктора
//
// Все мутации выполняются от имени инструктора-владельца слота.
// Удаление слота защищено двойной проверкой ссылок: активные бронирования
// и незавершенные транзакции блокируют удаление
type Service struct {
	slotRepo  SlotRepository
	groupRepo GroupSessionRepository
	bookings  BookingRepository
	txJournal TransactionRepository
	txManager TransactionManager
	logger    Logger
}

// NewService создает новый экземпляр сервиса расписания
func NewService(
	slotRepository SlotRepository,
	groupRepository GroupSessionRepository,
	bookingRepository BookingRepository,
	transactionRepository TransactionRepository,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		slotRepo:  slotRepository,
		groupRepo: groupRepository,
		bookings:  bookingRepository,
		txJournal: transactionRepository,
		txManager: txManager,
		logger:    logger,
	}
}

// CreateSlots создает слоты инструктора на день
// Отклоняет слоты, пересекающиеся с уже существующими на эту дату
func (s *Service) CreateSlots(ctx context.Context, req *models.CreateSlotsRequest) (*models.SlotListResponse, error) {
	s.logger.Info("CreateSlots: creating %d slots for instructor=%d on %s", len(req.Slots), req.InstructorID, req.Date)

	if req.UserID != req.InstructorID {
		s.logger.Warn("CreateSlots: access denied for user=%d to instructor=%d schedule", req.UserID, req.InstructorID)
		return nil, ErrAccessDenied
	}
	if len(req.Slots) == 0 {
		return nil, fmt.Errorf("%w: slots list is empty", ErrInvalidInput)
	}

	newSlots, err := req.ToDomainSlots()
	if err != nil {
		s.logger.Warn("CreateSlots: invalid request for instructor=%d: %v", req.InstructorID, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	date := newSlots[0].SlotDate
	existing, err := s.slotRepo.ListByInstructor(ctx, domain.InstructorSlotsFilter{
		InstructorID: req.InstructorID,
		StartDate:    &date,
		EndDate:      &date,
	})
	if err != nil {
		s.logger.Error("CreateSlots: failed to list existing slots for instructor=%d: %v", req.InstructorID, err)
		return nil, fmt.Errorf("%w: CreateSlots - repository error: %v", ErrInternal, err)
	}

	if err := checkOverlaps(newSlots, existing); err != nil {
		s.logger.Warn("CreateSlots: overlap detected for instructor=%d on %s", req.InstructorID, req.Date)
		return nil, err
	}

	created := make([]*domain.Slot, 0, len(newSlots))
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		for _, slot := range newSlots {
			c, err := s.slotRepo.Create(txCtx, slot)
			if err != nil {
				return fmt.Errorf("%w: CreateSlots - failed to create slot: %v", ErrInternal, err)
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("CreateSlots: failed for instructor=%d: %v", req.InstructorID, err)
		return nil, err
	}

	s.logger.Info("CreateSlots: created %d slots for instructor=%d", len(created), req.InstructorID)
	return models.FromDomainSlotList(created), nil
}

// GetInstructorSlots возвращает расписание инструктора
// Публичная операция - детали hold'ов наружу не отдаются
func (s *Service) GetInstructorSlots(ctx context.Context, req *models.GetInstructorSlotsRequest) (*models.SlotListResponse, error) {
	s.logger.Info("GetInstructorSlots: fetching slots for instructor=%d", req.InstructorID)

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetInstructorSlots: invalid filter for instructor=%d: %v", req.InstructorID, err)
		return nil, fmt.Errorf("%w: invalid filter", ErrInvalidInput)
	}

	slots, err := s.slotRepo.ListByInstructor(ctx, filter)
	if err != nil {
		s.logger.Error("GetInstructorSlots: repository error for instructor=%d: %v", req.InstructorID, err)
		return nil, fmt.Errorf("%w: GetInstructorSlots - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetInstructorSlots: fetched %d slots for instructor=%d", len(slots), req.InstructorID)
	return models.FromDomainSlotList(slots), nil
}

// BlockSlot закрывает доступный слот от бронирования
func (s *Service) BlockSlot(ctx context.Context, slotID int64, userID int64) error {
	s.logger.Info("BlockSlot: blocking slot id=%d by user=%d", slotID, userID)

	slot, err := s.getOwnedSlot(ctx, slotID, userID)
	if err != nil {
		return err
	}

	if !slot.CanBeBlocked() {
		s.logger.Warn("BlockSlot: slot id=%d cannot be blocked, status=%s", slotID, slot.Status)
		return fmt.Errorf("%w: slot is %s", ErrStateConflict, slot.Status)
	}

	if err := s.slotRepo.UpdateStatus(ctx, slotID, domain.SlotAvailable, domain.SlotBlocked); err != nil {
		if errors.Is(err, slotRepo.ErrSlotNotFound) {
			// Статус успел измениться между чтением и переходом
			return fmt.Errorf("%w: slot is no longer available", ErrStateConflict)
		}
		s.logger.Error("BlockSlot: repository error for slot id=%d: %v", slotID, err)
		return fmt.Errorf("%w: BlockSlot - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("BlockSlot: successfully blocked slot id=%d", slotID)
	return nil
}

// UnblockSlot возвращает заблокированный слот в расписание
func (s *Service) UnblockSlot(ctx context.Context, slotID int64, userID int64) error {
	s.logger.Info("UnblockSlot: unblocking slot id=%d by user=%d", slotID, userID)

	slot, err := s.getOwnedSlot(ctx, slotID, userID)
	if err != nil {
		return err
	}

	if !slot.CanBeUnblocked() {
		s.logger.Warn("UnblockSlot: slot id=%d cannot be unblocked, status=%s", slotID, slot.Status)
		return fmt.Errorf("%w: slot is %s", ErrStateConflict, slot.Status)
	}

	if err := s.slotRepo.UpdateStatus(ctx, slotID, domain.SlotBlocked, domain.SlotAvailable); err != nil {
		if errors.Is(err, slotRepo.ErrSlotNotFound) {
			return fmt.Errorf("%w: slot is no longer blocked", ErrStateConflict)
		}
		s.logger.Error("UnblockSlot: repository error for slot id=%d: %v", slotID, err)
		return fmt.Errorf("%w: UnblockSlot - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("UnblockSlot: successfully unblocked slot id=%d", slotID)
	return nil
}

// DeleteSlot удаляет слот из расписания
// Отказывает, если на слот ссылается бронирование или незавершенная транзакция
func (s *Service) DeleteSlot(ctx context.Context, slotID int64, userID int64) error {
	s.logger.Info("DeleteSlot: deleting slot id=%d by user=%d", slotID, userID)

	slot, err := s.getOwnedSlot(ctx, slotID, userID)
	if err != nil {
		return err
	}

	if !slot.CanBeDeleted() {
		s.logger.Warn("DeleteSlot: slot id=%d cannot be deleted, status=%s", slotID, slot.Status)
		return fmt.Errorf("%w: slot is %s", ErrStateConflict, slot.Status)
	}

	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		activeBookings, err := s.bookings.CountActiveBySlotID(txCtx, slotID)
		if err != nil {
			return fmt.Errorf("%w: DeleteSlot - failed to count bookings: %v", ErrInternal, err)
		}
		if activeBookings > 0 {
			s.logger.Warn("DeleteSlot: slot id=%d has %d active bookings", slotID, activeBookings)
			return ErrSlotReferenced
		}

		pendingTxs, err := s.txJournal.CountNonTerminalBySlotID(txCtx, slotID)
		if err != nil {
			return fmt.Errorf("%w: DeleteSlot - failed to count transactions: %v", ErrInternal, err)
		}
		if pendingTxs > 0 {
			s.logger.Warn("DeleteSlot: slot id=%d has %d non-terminal transactions", slotID, pendingTxs)
			return ErrSlotReferenced
		}

		if err := s.slotRepo.Delete(txCtx, slotID); err != nil {
			if errors.Is(err, slotRepo.ErrSlotNotFound) {
				// Слот существует (прочитан выше), но guard по статусу не
				// сработал: его успели захватить между проверкой и удалением
				return fmt.Errorf("%w: slot is no longer deletable", ErrStateConflict)
			}
			if errors.Is(err, slotRepo.ErrSlotReferenced) {
				return ErrSlotReferenced
			}
			return fmt.Errorf("%w: DeleteSlot - repository error: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("DeleteSlot: failed for slot id=%d: %v", slotID, err)
		return err
	}

	s.logger.Info("DeleteSlot: successfully deleted slot id=%d", slotID)
	return nil
}

// CreateGroupSession создает групповую сессию на базе доступного слота
// Слот переводится в статус group, места отслеживаются счетчиком сессии
func (s *Service) CreateGroupSession(ctx context.Context, req *models.CreateGroupSessionRequest) (*models.GroupSessionResponse, error) {
	s.logger.Info("CreateGroupSession: creating session on slot id=%d by user=%d", req.SlotID, req.UserID)

	if err := validateGroupSessionRequest(req); err != nil {
		s.logger.Warn("CreateGroupSession: invalid request for slot id=%d: %v", req.SlotID, err)
		return nil, err
	}

	slot, err := s.getOwnedSlot(ctx, req.SlotID, req.UserID)
	if err != nil {
		return nil, err
	}

	if slot.Status != domain.SlotAvailable {
		s.logger.Warn("CreateGroupSession: slot id=%d is not available, status=%s", req.SlotID, slot.Status)
		return nil, fmt.Errorf("%w: slot is %s", ErrStateConflict, slot.Status)
	}

	var created *domain.GroupSession
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		// Переход available -> group с guard'ом на статус: конкурентная
		// инициация или блокировка проиграет этот переход
		if err := s.slotRepo.UpdateStatus(txCtx, req.SlotID, domain.SlotAvailable, domain.SlotGroup); err != nil {
			if errors.Is(err, slotRepo.ErrSlotNotFound) {
				return fmt.Errorf("%w: slot is no longer available", ErrStateConflict)
			}
			return fmt.Errorf("%w: CreateGroupSession - failed to mark slot: %v", ErrInternal, err)
		}

		created, err = s.groupRepo.Create(txCtx, &domain.GroupSession{
			SlotID:          req.SlotID,
			Title:           req.Title,
			MinParticipants: req.MinParticipants,
			MaxParticipants: req.MaxParticipants,
			Price:           req.Price,
		})
		if err != nil {
			return fmt.Errorf("%w: CreateGroupSession - failed to create session: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("CreateGroupSession: failed for slot id=%d: %v", req.SlotID, err)
		return nil, err
	}

	s.logger.Info("CreateGroupSession: created session id=%d on slot id=%d", created.ID, req.SlotID)
	return models.FromDomainGroupSession(created), nil
}

// Вспомогательные методы

// getOwnedSlot получает слот и проверяет, что им владеет userID
func (s *Service) getOwnedSlot(ctx context.Context, slotID int64, userID int64) (*domain.Slot, error) {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, slotRepo.ErrSlotNotFound) {
			s.logger.Warn("getOwnedSlot: slot id=%d not found", slotID)
			return nil, ErrSlotNotFound
		}
		s.logger.Error("getOwnedSlot: repository error for slot id=%d: %v", slotID, err)
		return nil, fmt.Errorf("%w: getOwnedSlot - repository error: %v", ErrInternal, err)
	}

	if slot.InstructorID != userID {
		s.logger.Warn("getOwnedSlot: user=%d does not own slot id=%d", userID, slotID)
		return nil, ErrAccessDenied
	}

	return slot, nil
}

// checkOverlaps проверяет пересечения новых слотов между собой и с существующими
func checkOverlaps(newSlots, existing []*domain.Slot) error {
	all := make([]*domain.Slot, 0, len(existing)+len(newSlots))
	all = append(all, existing...)

	for _, candidate := range newSlots {
		for _, other := range all {
			if candidate.StartTime.IsBefore(other.EndTime) && other.StartTime.IsBefore(candidate.EndTime) {
				return fmt.Errorf("%w: %s-%s overlaps %s-%s",
					ErrSlotConflict,
					candidate.StartTime, candidate.EndTime,
					other.StartTime, other.EndTime)
			}
		}
		all = append(all, candidate)
	}

	return nil
}

// validateGroupSessionRequest проверяет параметры групповой сессии
func validateGroupSessionRequest(req *models.CreateGroupSessionRequest) error {
	if req.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if req.MaxParticipants <= 0 {
		return fmt.Errorf("%w: maxParticipants must be positive", ErrInvalidInput)
	}
	if req.MinParticipants < 0 || req.MinParticipants > req.MaxParticipants {
		return fmt.Errorf("%w: minParticipants must be between 0 and maxParticipants", ErrInvalidInput)
	}
	if req.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return nil
}
