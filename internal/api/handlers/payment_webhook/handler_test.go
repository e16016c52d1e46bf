package payment_webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	settlePayment "github.com/m04kA/STC-ReservationService/internal/usecase/settle_payment"
)

type fakeUseCase struct {
	resp *settlePayment.Response
	err  error

	gotReq *settlePayment.Request
}

func (f *fakeUseCase) Execute(_ context.Context, req *settlePayment.Request) (*settlePayment.Response, error) {
	f.gotReq = req
	return f.resp, f.err
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func doWebhook(t *testing.T, uc *fakeUseCase, body string) (*httptest.ResponseRecorder, WebhookResponse) {
	t.Helper()

	h := NewHandler(uc, nopLogger{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	var resp WebhookResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHandle_Settled(t *testing.T) {
	bookingID := int64(77)
	txID := uuid.New()
	uc := &fakeUseCase{resp: &settlePayment.Response{
		TransactionID: txID,
		Status:        domain.TxCompleted,
		BookingID:     &bookingID,
	}}

	rec, resp := doWebhook(t, uc, `{"paymentId":"pay-1","status":"paid"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Acknowledged)
	assert.Equal(t, txID.String(), resp.TransactionID)
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.BookingID)
	assert.Equal(t, bookingID, *resp.BookingID)

	// Сырое тело callback'а передается дальше для диагностики
	require.NotNil(t, uc.gotReq)
	assert.Equal(t, "pay-1", uc.gotReq.ProviderPaymentID)
	assert.JSONEq(t, `{"paymentId":"pay-1","status":"paid"}`, string(uc.gotReq.RawPayload))
}

func TestHandle_UnknownTransactionIsAcked(t *testing.T) {
	uc := &fakeUseCase{err: settlePayment.ErrUnknownTransaction}

	rec, resp := doWebhook(t, uc, `{"paymentId":"pay-x","status":"paid"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Acknowledged)
}

func TestHandle_StateConflictIsAckedAsDuplicate(t *testing.T) {
	uc := &fakeUseCase{err: settlePayment.ErrStateConflict}

	rec, resp := doWebhook(t, uc, `{"paymentId":"pay-1","status":"failed"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Acknowledged)
	assert.True(t, resp.Duplicate)
}

func TestHandle_UnsupportedStatusIsAcked(t *testing.T) {
	uc := &fakeUseCase{err: settlePayment.ErrUnsupportedStatus}

	rec, resp := doWebhook(t, uc, `{"paymentId":"pay-1","status":"chargeback"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Acknowledged)
}

func TestHandle_IntentValidationKeepsRetrying(t *testing.T) {
	// 500 сигнализирует провайдеру повторить callback - транзакция
	// осталась pending и ждет ручного разбора
	uc := &fakeUseCase{err: fmt.Errorf("%w: tx is broken", settlePayment.ErrIntentValidation)}

	rec, _ := doWebhook(t, uc, `{"paymentId":"pay-1","status":"paid"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandle_LostHoldKeepsRetrying(t *testing.T) {
	uc := &fakeUseCase{err: fmt.Errorf("%w: slot id=42", settlePayment.ErrHoldLost)}

	rec, _ := doWebhook(t, uc, `{"paymentId":"pay-1","status":"paid"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandle_InvalidBody(t *testing.T) {
	uc := &fakeUseCase{}

	rec, _ := doWebhook(t, uc, `{"paymentId":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, uc.gotReq)
}
