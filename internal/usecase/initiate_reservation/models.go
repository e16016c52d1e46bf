package initiate_reservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/STC-ReservationService/internal/domain"
)

// Request модель запроса на инициацию бронирования
type Request struct {
	ClientID   int64                   // ID клиента (Telegram ID)
	TargetType domain.IntentTargetType // slot или group_session

	SlotID         *int64 // ID слота (для индивидуального бронирования)
	GroupSessionID *int64 // ID групповой сессии

	ParticipantsCount int // Количество мест (для слота всегда 1)

	// Amount стоимость индивидуального слота, вычисляется прайс-сервисом
	// выше по стеку. Для групповой сессии игнорируется - цена берется
	// из самой сессии
	Amount float64
}

// Response модель ответа с созданной pending транзакцией
// Транзакция передается клиенту для оплаты по PaymentURL
type Response struct {
	TransactionID     uuid.UUID  // ID транзакции в журнале платежей
	ProviderPaymentID string     // ID платежа на стороне провайдера
	PaymentURL        string     // URL для оплаты
	Amount            float64    // Итоговая сумма
	HoldDeadline      *time.Time // Дедлайн hold'а (для индивидуального слота)
	Description       string     // Человекочитаемое описание брони
}
