package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// IntentTargetType тип цели бронирования в intent payload
type IntentTargetType string

const (
	IntentTargetSlot  IntentTargetType = "slot"
	IntentTargetGroup IntentTargetType = "group_session"
)

// IntentVersion текущая версия формата booking intent
const IntentVersion = 1

var (
	// ErrInvalidIntent возвращается, когда intent payload не проходит валидацию
	// Settle() в этом случае обязан оставить транзакцию в pending (fail closed)
	ErrInvalidIntent = errors.New("domain: invalid booking intent")
)

// BookingIntent is the typed, versioned payload stored in a Transaction at
// initiation time. It carries everything needed to materialize a Booking once
// the payment succeeds. The payload is validated on read at settlement time
// rather than trusted blindly.
type BookingIntent struct {
	Version           int              `json:"version"`
	TargetType        IntentTargetType `json:"targetType"`
	SlotID            *int64           `json:"slotId,omitempty"`
	GroupSessionID    *int64           `json:"groupSessionId,omitempty"`
	ParticipantsCount int              `json:"participantsCount"`
	Price             float64          `json:"price"`
	// Description денормализованное описание слота/сессии для уведомлений и истории
	Description string `json:"description"`
}

// Validate проверяет полноту intent payload
// Вызывается и при создании транзакции, и повторно при settlement
func (i *BookingIntent) Validate() error {
	if i.Version != IntentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidIntent, i.Version)
	}

	switch i.TargetType {
	case IntentTargetSlot:
		if i.SlotID == nil || *i.SlotID <= 0 {
			return fmt.Errorf("%w: slot target requires slotId", ErrInvalidIntent)
		}
		if i.ParticipantsCount != 1 {
			return fmt.Errorf("%w: slot target requires participantsCount = 1", ErrInvalidIntent)
		}
	case IntentTargetGroup:
		if i.GroupSessionID == nil || *i.GroupSessionID <= 0 {
			return fmt.Errorf("%w: group target requires groupSessionId", ErrInvalidIntent)
		}
		if i.ParticipantsCount <= 0 {
			return fmt.Errorf("%w: group target requires positive participantsCount", ErrInvalidIntent)
		}
	default:
		return fmt.Errorf("%w: unknown target type %q", ErrInvalidIntent, i.TargetType)
	}

	if i.Price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidIntent)
	}

	return nil
}

// MarshalIntent сериализует intent в JSON для хранения в transactions.intent_payload
func MarshalIntent(i BookingIntent) ([]byte, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal failed: %v", ErrInvalidIntent, err)
	}
	return data, nil
}

// UnmarshalIntent десериализует intent из JSON без валидации
// Валидация выполняется отдельно, чтобы отличить битый JSON от неполных данных
func UnmarshalIntent(data []byte) (BookingIntent, error) {
	var intent BookingIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return BookingIntent{}, fmt.Errorf("%w: unmarshal failed: %v", ErrInvalidIntent, err)
	}
	return intent, nil
}
