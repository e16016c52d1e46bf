package groupsession

import "errors"

var (
	// ErrSessionNotFound возвращается, когда групповая сессия не найдена
	ErrSessionNotFound = errors.New("groupsession.repository: session not found")

	// ErrCapacityExceeded возвращается, когда запрошенное количество мест не помещается
	ErrCapacityExceeded = errors.New("groupsession.repository: capacity exceeded")

	// ErrCounterUnderflow возвращается, когда декремент увел бы счетчик в минус
	// Означает нарушение дисциплины claim/release - каждый декремент обязан
	// ровно отменять сделанный ранее инкремент
	ErrCounterUnderflow = errors.New("groupsession.repository: participants counter underflow")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("groupsession.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("groupsession.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("groupsession.repository: failed to scan row")
)
