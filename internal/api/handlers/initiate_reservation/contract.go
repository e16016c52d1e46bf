package initiate_reservation

import (
	"context"

	initiateReservation "github.com/m04kA/STC-ReservationService/internal/usecase/initiate_reservation"
)

type InitiateReservationUseCase interface {
	Execute(ctx context.Context, req *initiateReservation.Request) (*initiateReservation.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
