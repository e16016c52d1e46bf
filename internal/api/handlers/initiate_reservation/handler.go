package initiate_reservation

import (
	"errors"
	"net/http"

	"github.com/m04kA/STC-ReservationService/internal/api/handlers"
	"github.com/m04kA/STC-ReservationService/internal/api/middleware"
	initiateReservation "github.com/m04kA/STC-ReservationService/internal/usecase/initiate_reservation"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgSlotNotFound       = "слот не найден"
	msgSessionNotFound    = "групповая сессия не найдена"
	msgSlotUnavailable    = "слот уже занят"
	msgCapacityExceeded   = "в групповой сессии не хватает мест"
	msgPaymentInitFailed  = "не удалось создать платеж, попробуйте позже"
)

type Handler struct {
	useCase InitiateReservationUseCase
	logger  Logger
}

func NewHandler(useCase InitiateReservationUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req InitiateReservationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /reservations - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Получаем userID из контекста (через middleware Auth)
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /reservations - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	resp, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(userID))
	if err != nil {
		switch {
		case errors.Is(err, initiateReservation.ErrInvalidInput):
			h.logger.Warn("POST /reservations - Invalid input: user_id=%d, error=%v", userID, err)
			handlers.RespondBadRequest(w, err.Error())

		case errors.Is(err, initiateReservation.ErrSlotNotFound):
			h.logger.Warn("POST /reservations - Slot not found: user_id=%d", userID)
			handlers.RespondNotFound(w, msgSlotNotFound)

		case errors.Is(err, initiateReservation.ErrSessionNotFound):
			h.logger.Warn("POST /reservations - Group session not found: user_id=%d", userID)
			handlers.RespondNotFound(w, msgSessionNotFound)

		case errors.Is(err, initiateReservation.ErrSlotUnavailable):
			h.logger.Warn("POST /reservations - Slot unavailable: user_id=%d", userID)
			handlers.RespondError(w, http.StatusConflict, msgSlotUnavailable)

		case errors.Is(err, initiateReservation.ErrCapacityExceeded):
			h.logger.Warn("POST /reservations - Capacity exceeded: user_id=%d", userID)
			handlers.RespondError(w, http.StatusConflict, msgCapacityExceeded)

		case errors.Is(err, initiateReservation.ErrPaymentInitFailed):
			h.logger.Error("POST /reservations - Payment init failed: user_id=%d, error=%v", userID, err)
			handlers.RespondError(w, http.StatusBadGateway, msgPaymentInitFailed)

		default:
			h.logger.Error("POST /reservations - Failed to initiate reservation: user_id=%d, error=%v", userID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /reservations - Reservation initiated: user_id=%d, transaction_id=%s",
		userID, resp.TransactionID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(resp))
}
