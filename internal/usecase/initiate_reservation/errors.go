package initiate_reservation

import "errors"

var (
	// ErrSlotNotFound возвращается, когда слот не найден
	ErrSlotNotFound = errors.New("initiate_reservation: slot not found")

	// ErrSlotUnavailable возвращается, когда слот занят другим клиентом
	// Не ошибка движка - клиенту следует выбрать другой слот
	ErrSlotUnavailable = errors.New("initiate_reservation: slot is not available")

	// ErrSessionNotFound возвращается, когда групповая сессия не найдена
	ErrSessionNotFound = errors.New("initiate_reservation: group session not found")

	// ErrCapacityExceeded возвращается, когда в групповой сессии не хватает мест
	ErrCapacityExceeded = errors.New("initiate_reservation: group session capacity exceeded")

	// ErrPaymentInitFailed возвращается, когда провайдер не смог создать инвойс
	// Захваченный слот/места к этому моменту уже освобождены компенсацией
	ErrPaymentInitFailed = errors.New("initiate_reservation: failed to init payment")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("initiate_reservation: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("initiate_reservation: internal error")
)
