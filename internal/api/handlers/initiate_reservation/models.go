package initiate_reservation

import (
	"time"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	initiateReservation "github.com/m04kA/STC-ReservationService/internal/usecase/initiate_reservation"
)

// InitiateReservationRequest запрос на инициацию бронирования
type InitiateReservationRequest struct {
	TargetType        string  `json:"targetType"` // slot | group_session
	SlotID            *int64  `json:"slotId,omitempty"`
	GroupSessionID    *int64  `json:"groupSessionId,omitempty"`
	ParticipantsCount int     `json:"participantsCount,omitempty"`
	Amount            float64 `json:"amount,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель usecase
func (r *InitiateReservationRequest) ToUseCaseRequest(userID int64) *initiateReservation.Request {
	participants := r.ParticipantsCount
	if participants == 0 {
		participants = 1
	}

	return &initiateReservation.Request{
		ClientID:          userID,
		TargetType:        domain.IntentTargetType(r.TargetType),
		SlotID:            r.SlotID,
		GroupSessionID:    r.GroupSessionID,
		ParticipantsCount: participants,
		Amount:            r.Amount,
	}
}

// InitiateReservationResponse ответ с данными для оплаты
type InitiateReservationResponse struct {
	TransactionID     string     `json:"transactionId"`
	ProviderPaymentID string     `json:"providerPaymentId"`
	PaymentURL        string     `json:"paymentUrl"`
	Amount            float64    `json:"amount"`
	HoldDeadline      *time.Time `json:"holdDeadline,omitempty"`
	Description       string     `json:"description"`
}

// FromUseCaseResponse конвертирует модель usecase в HTTP ответ
func FromUseCaseResponse(resp *initiateReservation.Response) *InitiateReservationResponse {
	return &InitiateReservationResponse{
		TransactionID:     resp.TransactionID.String(),
		ProviderPaymentID: resp.ProviderPaymentID,
		PaymentURL:        resp.PaymentURL,
		Amount:            resp.Amount,
		HoldDeadline:      resp.HoldDeadline,
		Description:       resp.Description,
	}
}
