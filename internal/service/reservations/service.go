package reservations

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	bookingRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/booking"
	groupRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/groupsession"
	slotRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/slot"
	"github.com/m04kA/STC-ReservationService/internal/service/reservations/models"
)

// Service read-only сервис просмотра бронирований
type Service struct {
	bookingRepo BookingRepository
	slotRepo    SlotRepository
	groupRepo   GroupSessionRepository
	txManager   TransactionManager
	logger      Logger
}

// NewService создает новый экземпляр сервиса просмотра бронирований
func NewService(
	bookingRepository BookingRepository,
	slotRepository SlotRepository,
	groupRepository GroupSessionRepository,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo: bookingRepository,
		slotRepo:    slotRepository,
		groupRepo:   groupRepository,
		txManager:   txManager,
		logger:      logger,
	}
}

// GetByID получает бронирование по ID
// Проверяет права доступа - бронирование видят только клиент-владелец
// и инструктор, которому принадлежит слот
func (s *Service) GetByID(ctx context.Context, id int64, userID int64) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d for user=%d", id, userID)

	// Бронирование, сессия и слот читаются одним read-only снапшотом,
	// чтобы проверка доступа не смешивала состояния разных моментов времени
	var booking *domain.Booking
	err := s.txManager.DoReadOnly(ctx, func(txCtx context.Context) error {
		var err error
		booking, err = s.bookingRepo.GetByID(txCtx, id)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				s.logger.Warn("GetByID: booking id=%d not found", id)
				return ErrBookingNotFound
			}
			s.logger.Error("GetByID: repository error for booking id=%d: %v", id, err)
			return fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
		}

		if err := s.checkUserAccess(txCtx, booking, userID); err != nil {
			s.logger.Warn("GetByID: access denied for user=%d to booking id=%d", userID, id)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("GetByID: successfully fetched booking id=%d", id)
	return models.FromDomainBooking(booking), nil
}

// GetClientBookings получает историю бронирований клиента
// Опционально фильтрует по статусу. Клиент видит только свою историю
func (s *Service) GetClientBookings(ctx context.Context, req *models.GetClientBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetClientBookings: fetching bookings for client=%d, status=%v", req.ClientID, req.Status)

	if req.UserID != req.ClientID {
		s.logger.Warn("GetClientBookings: access denied for user=%d to client=%d history", req.UserID, req.ClientID)
		return nil, ErrAccessDenied
	}

	var domainStatus *domain.BookingStatus
	if req.Status != nil {
		status, err := models.ToDomainBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetClientBookings: invalid status=%s for client=%d", *req.Status, req.ClientID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		domainStatus = &status
	}

	bookings, err := s.bookingRepo.GetByClientID(ctx, req.ClientID, domainStatus)
	if err != nil {
		s.logger.Error("GetClientBookings: repository error for client=%d: %v", req.ClientID, err)
		return nil, fmt.Errorf("%w: GetClientBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetClientBookings: successfully fetched %d bookings for client=%d", len(bookings), req.ClientID)
	return models.FromDomainBookingList(bookings), nil
}

// GetInstructorBookings получает бронирования инструктора с гибкой фильтрацией
// Поддерживает фильтрацию по периоду, статусу и включению отменённых бронирований
// Доступно только самому инструктору
func (s *Service) GetInstructorBookings(ctx context.Context, req *models.GetInstructorBookingsRequest) (*models.BookingListResponse, error) {
	logMsg := fmt.Sprintf("GetInstructorBookings: fetching bookings for instructor=%d, user=%d", req.InstructorID, req.UserID)
	if req.StartDate != nil && req.EndDate != nil {
		logMsg += fmt.Sprintf(", period=%s to %s", req.StartDate.Format(domain.DateFormat), req.EndDate.Format(domain.DateFormat))
	}
	if req.Status != nil {
		logMsg += fmt.Sprintf(", status=%s", *req.Status)
	}
	if req.IncludeInactive {
		logMsg += ", includeInactive=true"
	}
	s.logger.Info(logMsg)

	if req.UserID != req.InstructorID {
		s.logger.Warn("GetInstructorBookings: access denied for user=%d to instructor=%d bookings", req.UserID, req.InstructorID)
		return nil, ErrAccessDenied
	}

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetInstructorBookings: invalid filter for instructor=%d: %v", req.InstructorID, err)
		return nil, fmt.Errorf("%w: invalid filter", ErrInvalidInput)
	}

	bookings, err := s.bookingRepo.GetByInstructorWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("GetInstructorBookings: repository error for instructor=%d: %v", req.InstructorID, err)
		return nil, fmt.Errorf("%w: GetInstructorBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetInstructorBookings: successfully fetched %d bookings for instructor=%d", len(bookings), req.InstructorID)
	return models.FromDomainBookingList(bookings), nil
}

// Вспомогательные методы

// checkUserAccess проверяет, что пользователь имеет доступ к бронированию
// Доступ есть у клиента-владельца и у инструктора, которому принадлежит слот
func (s *Service) checkUserAccess(ctx context.Context, booking *domain.Booking, userID int64) error {
	if booking.ClientID == userID {
		return nil
	}

	instructorID, err := s.resolveInstructor(ctx, booking)
	if err != nil {
		return err
	}
	if instructorID == userID {
		return nil
	}

	return ErrAccessDenied
}

// resolveInstructor находит инструктора бронирования через слот
// Для групповых бронирований слот берется из групповой сессии
func (s *Service) resolveInstructor(ctx context.Context, booking *domain.Booking) (int64, error) {
	slotID := booking.SlotID

	if booking.IsGroup() {
		session, err := s.groupRepo.GetByID(ctx, *booking.GroupSessionID)
		if err != nil {
			if errors.Is(err, groupRepo.ErrSessionNotFound) {
				s.logger.Warn("resolveInstructor: group session id=%d not found for booking id=%d",
					*booking.GroupSessionID, booking.ID)
				return 0, ErrAccessDenied
			}
			s.logger.Error("resolveInstructor: failed to get group session id=%d: %v", *booking.GroupSessionID, err)
			return 0, fmt.Errorf("%w: resolveInstructor - failed to get group session: %v", ErrInternal, err)
		}
		slotID = &session.SlotID
	}

	if slotID == nil {
		s.logger.Warn("resolveInstructor: booking id=%d has no slot reference", booking.ID)
		return 0, ErrAccessDenied
	}

	slot, err := s.slotRepo.GetByID(ctx, *slotID)
	if err != nil {
		if errors.Is(err, slotRepo.ErrSlotNotFound) {
			s.logger.Warn("resolveInstructor: slot id=%d not found for booking id=%d", *slotID, booking.ID)
			return 0, ErrAccessDenied
		}
		s.logger.Error("resolveInstructor: failed to get slot id=%d: %v", *slotID, err)
		return 0, fmt.Errorf("%w: resolveInstructor - failed to get slot: %v", ErrInternal, err)
	}

	return slot.InstructorID, nil
}
