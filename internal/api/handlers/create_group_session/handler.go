package create_group_session

import (
	"errors"
	"net/http"

	"github.com/m04kA/STC-ReservationService/internal/api/handlers"
	"github.com/m04kA/STC-ReservationService/internal/api/middleware"
	"github.com/m04kA/STC-ReservationService/internal/service/schedule"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgNotFound           = "слот не найден"
	msgForbidden          = "доступ запрещен"
	msgStateConflict      = "слот недоступен для групповой сессии"
)

type Handler struct {
	service ScheduleService
	logger  Logger
}

func NewHandler(service ScheduleService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/group-sessions
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupSessionRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /group-sessions - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Получаем userID из контекста (через middleware Auth)
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /group-sessions - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	session, err := h.service.CreateGroupSession(r.Context(), req.ToServiceRequest(userID))
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrSlotNotFound):
			h.logger.Warn("POST /group-sessions - Slot not found: slot_id=%d", req.SlotID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, schedule.ErrAccessDenied):
			h.logger.Warn("POST /group-sessions - Access denied: slot_id=%d, user_id=%d", req.SlotID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, schedule.ErrStateConflict):
			h.logger.Warn("POST /group-sessions - State conflict: slot_id=%d", req.SlotID)
			handlers.RespondError(w, http.StatusConflict, msgStateConflict)

		case errors.Is(err, schedule.ErrInvalidInput):
			h.logger.Warn("POST /group-sessions - Invalid input: slot_id=%d, error=%v", req.SlotID, err)
			handlers.RespondBadRequest(w, msgInvalidRequestBody)

		default:
			h.logger.Error("POST /group-sessions - Failed to create group session: slot_id=%d, error=%v",
				req.SlotID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /group-sessions - Group session created: session_id=%d, slot_id=%d, user_id=%d",
		session.ID, req.SlotID, userID)
	handlers.RespondJSON(w, http.StatusCreated, session)
}
