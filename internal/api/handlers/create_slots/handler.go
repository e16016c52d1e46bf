package create_slots

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/STC-ReservationService/internal/api/handlers"
	"github.com/m04kA/STC-ReservationService/internal/api/middleware"
	"github.com/m04kA/STC-ReservationService/internal/service/schedule"
)

const (
	msgInvalidInstructorID = "некорректный ID инструктора"
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgMissingUserID       = "отсутствует ID пользователя"
	msgForbidden           = "доступ запрещен"
	msgSlotConflict        = "слот пересекается с существующим"
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

// Handle POST /api/v1/instructors/{instructorId}/slots
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	instructorIDStr := vars["instructorId"]

	instructorID, err := strconv.ParseInt(instructorIDStr, 10, 64)
	if err != nil {
		h.logger.Warn("POST /instructors/{id}/slots - Invalid instructor ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidInstructorID)
		return
	}

	var req CreateSlotsRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /instructors/{id}/slots - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Получаем userID из контекста (через middleware Auth)
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /instructors/{id}/slots - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	result, err := h.service.CreateSlots(r.Context(), req.ToServiceRequest(instructorID, userID))
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrAccessDenied):
			h.logger.Warn("POST /instructors/{id}/slots - Access denied: instructor_id=%d, user_id=%d",
				instructorID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, schedule.ErrSlotConflict):
			h.logger.Warn("POST /instructors/{id}/slots - Slot conflict: instructor_id=%d", instructorID)
			handlers.RespondError(w, http.StatusConflict, msgSlotConflict)

		case errors.Is(err, schedule.ErrInvalidInput):
			h.logger.Warn("POST /instructors/{id}/slots - Invalid input: instructor_id=%d, error=%v",
				instructorID, err)
			handlers.RespondBadRequest(w, msgInvalidRequestBody)

		default:
			h.logger.Error("POST /instructors/{id}/slots - Failed to create slots: instructor_id=%d, error=%v",
				instructorID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /instructors/{id}/slots - Slots created successfully: instructor_id=%d, count=%d",
		instructorID, result.Total)
	handlers.RespondJSON(w, http.StatusCreated, result)
}
