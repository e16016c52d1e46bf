package notifyservice

// EventType тип события для сервиса уведомлений
type EventType string

const (
	EventReservationConfirmed EventType = "reservation_confirmed"
	EventReservationExpired   EventType = "reservation_expired"
	EventReservationCancelled EventType = "reservation_cancelled"
)

// Event post-commit событие движка бронирования
// Содержит денормализованные данные, достаточные для рендеринга сообщения
// без обратных запросов к движку
type Event struct {
	Type        EventType `json:"type"`
	ClientID    int64     `json:"clientId"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
}
