package slot

import "errors"

var (
	// ErrSlotNotFound возвращается, когда слот не найден
	ErrSlotNotFound = errors.New("slot.repository: slot not found")

	// ErrSlotNotAvailable возвращается, когда слот нельзя захватить
	// (уже held с действующим дедлайном, booked, blocked или group)
	ErrSlotNotAvailable = errors.New("slot.repository: slot not available")

	// ErrSlotNotHeld возвращается при попытке перевести в booked слот, который не held
	ErrSlotNotHeld = errors.New("slot.repository: slot is not held")

	// ErrSlotReferenced возвращается при попытке удалить слот,
	// на который ссылается бронирование или незавершенная транзакция
	ErrSlotReferenced = errors.New("slot.repository: slot is referenced")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("slot.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("slot.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("slot.repository: failed to scan row")
)
