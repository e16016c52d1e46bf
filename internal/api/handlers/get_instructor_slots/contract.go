package get_instructor_slots

import (
	"context"

	"github.com/m04kA/STC-ReservationService/internal/service/schedule/models"
)

type ScheduleService interface {
	GetInstructorSlots(ctx context.Context, req *models.GetInstructorSlotsRequest) (*models.SlotListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
