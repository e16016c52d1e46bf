package get_instructor_slots

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/STC-ReservationService/internal/api/handlers"
	"github.com/m04kA/STC-ReservationService/internal/domain"
	"github.com/m04kA/STC-ReservationService/internal/service/schedule"
	"github.com/m04kA/STC-ReservationService/internal/service/schedule/models"
)

const (
	msgInvalidInstructorID = "некорректный ID инструктора"
	msgInvalidParams       = "некорректные параметры запроса"
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

// Handle GET /api/v1/instructors/{instructorId}/slots
// Query params: status, startDate, endDate (опционально)
// Публичный endpoint - расписание видно всем
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	instructorIDStr := vars["instructorId"]

	instructorID, err := strconv.ParseInt(instructorIDStr, 10, 64)
	if err != nil {
		h.logger.Warn("GET /instructors/{id}/slots - Invalid instructor ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidInstructorID)
		return
	}

	req := &models.GetInstructorSlotsRequest{InstructorID: instructorID}

	query := r.URL.Query()
	if status := query.Get("status"); status != "" {
		req.Status = &status
	}
	if startDateStr := query.Get("startDate"); startDateStr != "" {
		startDate, err := time.Parse(domain.DateFormat, startDateStr)
		if err != nil {
			h.logger.Warn("GET /instructors/{id}/slots - Invalid startDate: %v", err)
			handlers.RespondBadRequest(w, msgInvalidParams)
			return
		}
		req.StartDate = &startDate
	}
	if endDateStr := query.Get("endDate"); endDateStr != "" {
		endDate, err := time.Parse(domain.DateFormat, endDateStr)
		if err != nil {
			h.logger.Warn("GET /instructors/{id}/slots - Invalid endDate: %v", err)
			handlers.RespondBadRequest(w, msgInvalidParams)
			return
		}
		req.EndDate = &endDate
	}

	result, err := h.service.GetInstructorSlots(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrInvalidInput):
			h.logger.Warn("GET /instructors/{id}/slots - Invalid parameters: instructor_id=%d", instructorID)
			handlers.RespondBadRequest(w, msgInvalidParams)

		default:
			h.logger.Error("GET /instructors/{id}/slots - Failed to get slots: instructor_id=%d, error=%v",
				instructorID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /instructors/{id}/slots - Slots retrieved successfully: instructor_id=%d, count=%d",
		instructorID, result.Total)
	handlers.RespondJSON(w, http.StatusOK, result)
}
