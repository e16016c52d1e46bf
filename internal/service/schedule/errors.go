package schedule

import "errors"

var (
	// ErrSlotNotFound возвращается, когда слот не найден
	ErrSlotNotFound = errors.New("slot not found")

	// ErrAccessDenied возвращается, когда у пользователя нет прав доступа
	ErrAccessDenied = errors.New("access denied")

	// ErrSlotConflict возвращается, когда слот пересекается с существующим
	ErrSlotConflict = errors.New("slot overlaps an existing slot")

	// ErrStateConflict возвращается, когда операция недопустима для текущего статуса слота
	ErrStateConflict = errors.New("slot is not in a valid state for this operation")

	// ErrSlotReferenced возвращается при попытке удалить слот, на который
	// ссылается бронирование или незавершенная транзакция
	ErrSlotReferenced = errors.New("slot is referenced by a booking or pending transaction")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)
