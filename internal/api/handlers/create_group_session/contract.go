package create_group_session

import (
	"context"

	"github.com/m04kA/STC-ReservationService/internal/service/schedule/models"
)

type ScheduleService interface {
	CreateGroupSession(ctx context.Context, req *models.CreateGroupSessionRequest) (*models.GroupSessionResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
