package delete_slot

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
	msgInvalidSlotID  = "некорректный ID слота"
	msgMissingUserID  = "отсутствует ID пользователя"
	msgNotFound       = "слот не найден"
	msgForbidden      = "доступ запрещен"
	msgStateConflict  = "слот нельзя удалить в текущем статусе"
	msgSlotReferenced = "на слот ссылается бронирование или незавершенный платеж"
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

// Handle DELETE /api/v1/slots/{slotId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slotIDStr := vars["slotId"]

	slotID, err := strconv.ParseInt(slotIDStr, 10, 64)
	if err != nil {
		h.logger.Warn("DELETE /slots/{id} - Invalid slot ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSlotID)
		return
	}

	// Получаем userID из контекста (через middleware Auth)
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("DELETE /slots/{id} - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	if err := h.service.DeleteSlot(r.Context(), slotID, userID); err != nil {
		switch {
		case errors.Is(err, schedule.ErrSlotNotFound):
			h.logger.Warn("DELETE /slots/{id} - Slot not found: slot_id=%d", slotID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, schedule.ErrAccessDenied):
			h.logger.Warn("DELETE /slots/{id} - Access denied: slot_id=%d, user_id=%d", slotID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, schedule.ErrSlotReferenced):
			h.logger.Warn("DELETE /slots/{id} - Slot referenced: slot_id=%d", slotID)
			handlers.RespondError(w, http.StatusConflict, msgSlotReferenced)

		case errors.Is(err, schedule.ErrStateConflict):
			h.logger.Warn("DELETE /slots/{id} - State conflict: slot_id=%d", slotID)
			handlers.RespondError(w, http.StatusConflict, msgStateConflict)

		default:
			h.logger.Error("DELETE /slots/{id} - Failed to delete slot: slot_id=%d, error=%v", slotID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("DELETE /slots/{id} - Slot deleted successfully: slot_id=%d, user_id=%d", slotID, userID)
	handlers.RespondJSON(w, http.StatusNoContent, nil)
}
