package settle_payment

import "errors"

var (
	// ErrUnknownTransaction возвращается, когда по correlation id провайдера
	// не найдена транзакция. Битый или устаревший webhook - логируется,
	// подтверждается провайдеру и отбрасывается
	ErrUnknownTransaction = errors.New("settle_payment: unknown transaction")

	// ErrStateConflict возвращается на дубликат или out-of-order webhook:
	// транзакция уже в терминальном статусе, не совпадающем с запрошенным.
	// Side effects не применяются, провайдер все равно получает подтверждение
	ErrStateConflict = errors.New("settle_payment: transaction state conflict")

	// ErrUnsupportedStatus возвращается на статус провайдера, на который
	// движок не реагирует. Логируется и подтверждается
	ErrUnsupportedStatus = errors.New("settle_payment: unsupported provider status")

	// ErrIntentValidation возвращается, когда оплата прошла, но intent payload
	// не проходит валидацию. Fail closed: транзакция остается pending для
	// ручного разбора, платеж не теряется
	ErrIntentValidation = errors.New("settle_payment: booking intent validation failed")

	// ErrHoldLost возвращается, когда оплата прошла, но hold слота уже
	// принадлежит другой транзакции (протух и был переиспользован).
	// Fail closed: транзакция остается pending для ручного разбора,
	// чужой hold не затрагивается
	ErrHoldLost = errors.New("settle_payment: slot hold lost to another transaction")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("settle_payment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("settle_payment: internal error")
)
