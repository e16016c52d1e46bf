package get_user_bookings

import (
	"context"

	"github.com/m04kA/STC-ReservationService/internal/service/reservations/models"
)

type ReservationService interface {
	GetClientBookings(ctx context.Context, req *models.GetClientBookingsRequest) (*models.BookingListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
