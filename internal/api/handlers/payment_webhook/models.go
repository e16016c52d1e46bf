package payment_webhook

// WebhookRequest тело callback'а платежного провайдера
type WebhookRequest struct {
	PaymentID string `json:"paymentId"` // Correlation id платежа у провайдера
	Status    string `json:"status"`    // paid | failed | refunded
}

// WebhookResponse подтверждение обработки callback'а
type WebhookResponse struct {
	Acknowledged  bool   `json:"acknowledged"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status,omitempty"`
	BookingID     *int64 `json:"bookingId,omitempty"`
	Duplicate     bool   `json:"duplicate,omitempty"`
}
