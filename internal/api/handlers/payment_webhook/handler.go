package payment_webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m04kA/STC-ReservationService/internal/api/handlers"
	settlePayment "github.com/m04kA/STC-ReservationService/internal/usecase/settle_payment"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"

	// maxWebhookBodySize максимальный размер тела webhook'а
	maxWebhookBodySize = 1 << 20
)

type Handler struct {
	useCase SettlePaymentUseCase
	logger  Logger
}

func NewHandler(useCase SettlePaymentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/payments/webhook
//
// Контракт с провайдером: 200 означает "callback принят, повтор не нужен".
// Неизвестная транзакция, дубликат и неподдерживаемый статус подтверждаются,
// повтор ничего не изменит. 500 возвращается только когда повтор имеет смысл
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Warn("POST /payments/webhook - Failed to read body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Warn("POST /payments/webhook - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	resp, err := h.useCase.Execute(r.Context(), &settlePayment.Request{
		ProviderPaymentID: req.PaymentID,
		ProviderStatus:    req.Status,
		RawPayload:        body,
	})
	if err != nil {
		switch {
		case errors.Is(err, settlePayment.ErrInvalidInput):
			h.logger.Warn("POST /payments/webhook - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidRequestBody)

		case errors.Is(err, settlePayment.ErrUnknownTransaction):
			h.logger.Warn("POST /payments/webhook - Unknown transaction: payment_id=%s", req.PaymentID)
			handlers.RespondJSON(w, http.StatusOK, WebhookResponse{Acknowledged: true})

		case errors.Is(err, settlePayment.ErrStateConflict):
			h.logger.Warn("POST /payments/webhook - State conflict: payment_id=%s, status=%s", req.PaymentID, req.Status)
			handlers.RespondJSON(w, http.StatusOK, WebhookResponse{Acknowledged: true, Duplicate: true})

		case errors.Is(err, settlePayment.ErrUnsupportedStatus):
			h.logger.Warn("POST /payments/webhook - Unsupported status: payment_id=%s, status=%s", req.PaymentID, req.Status)
			handlers.RespondJSON(w, http.StatusOK, WebhookResponse{Acknowledged: true})

		case errors.Is(err, settlePayment.ErrIntentValidation):
			// Оплата прошла, но intent не собрался в бронирование.
			// Транзакция осталась pending, провайдер будет повторять
			h.logger.Error("POST /payments/webhook - Intent validation failed: payment_id=%s, error=%v",
				req.PaymentID, err)
			handlers.RespondInternalError(w)

		case errors.Is(err, settlePayment.ErrHoldLost):
			// Оплаченный слот уже перехвачен другой транзакцией.
			// Транзакция осталась pending и ждет ручного разбора
			h.logger.Error("POST /payments/webhook - Slot hold lost: payment_id=%s, error=%v",
				req.PaymentID, err)
			handlers.RespondInternalError(w)

		default:
			h.logger.Error("POST /payments/webhook - Failed to settle payment: payment_id=%s, error=%v",
				req.PaymentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /payments/webhook - Payment settled: payment_id=%s, transaction_id=%s, status=%s, duplicate=%t",
		req.PaymentID, resp.TransactionID, resp.Status, resp.Duplicate)
	handlers.RespondJSON(w, http.StatusOK, WebhookResponse{
		Acknowledged:  true,
		TransactionID: resp.TransactionID.String(),
		Status:        string(resp.Status),
		BookingID:     resp.BookingID,
		Duplicate:     resp.Duplicate,
	})
}
