package payprovider

import "errors"

var (
	// ErrInvoiceRejected возвращается, когда провайдер отклонил создание инвойса
	ErrInvoiceRejected = errors.New("payprovider client: invoice rejected")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("payprovider client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от провайдера
	ErrInvalidResponse = errors.New("payprovider client: invalid response")
)
