package initiate_reservation

import (
	"fmt"

	"github.com/m04kA/STC-ReservationService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ClientID <= 0 {
		return fmt.Errorf("%w: clientID must be positive", ErrInvalidInput)
	}

	switch req.TargetType {
	case domain.IntentTargetSlot:
		if req.SlotID == nil || *req.SlotID <= 0 {
			return fmt.Errorf("%w: slotID is required for slot target", ErrInvalidInput)
		}
		if req.ParticipantsCount != 1 {
			return fmt.Errorf("%w: slot target requires participantsCount = 1", ErrInvalidInput)
		}
		if req.Amount < 0 {
			return fmt.Errorf("%w: amount must be non-negative", ErrInvalidInput)
		}
	case domain.IntentTargetGroup:
		if req.GroupSessionID == nil || *req.GroupSessionID <= 0 {
			return fmt.Errorf("%w: groupSessionID is required for group target", ErrInvalidInput)
		}
		if req.ParticipantsCount < 1 || req.ParticipantsCount > domain.MaxParticipantsPerIntent {
			return fmt.Errorf("%w: participantsCount must be between 1 and %d",
				ErrInvalidInput, domain.MaxParticipantsPerIntent)
		}
	default:
		return fmt.Errorf("%w: unknown target type %q", ErrInvalidInput, req.TargetType)
	}

	return nil
}
