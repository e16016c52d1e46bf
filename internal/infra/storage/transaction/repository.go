package transaction

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	"github.com/m04kA/STC-ReservationService/pkg/dbmetrics"
	"github.com/m04kA/STC-ReservationService/pkg/psqlbuilder"
)

// txColumns колонки таблицы transactions в порядке сканирования
var txColumns = []string{
	"id",
	"client_id",
	"amount",
	"status",
	"provider_payment_id",
	"provider_status",
	"intent_payload",
	"booking_id",
	"created_at",
	"updated_at",
}

// Repository репозиторий платежного журнала
// intent_payload после вставки не изменяется ни одним запросом
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория транзакций
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает pending транзакцию с booking intent
// Вызывается в одной транзакции БД с захватом слота/мест - либо коммитятся
// обе записи, либо ни одной
func (r *Repository) Create(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	intentPayload, err := domain.MarshalIntent(t.Intent)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - marshal intent: %v", ErrBuildQuery, err)
	}

	query, args, err := psqlbuilder.Insert("transactions").
		Columns(
			"id",
			"client_id",
			"amount",
			"status",
			"provider_payment_id",
			"provider_status",
			"intent_payload",
		).
		Values(
			t.ID,
			t.ClientID,
			t.Amount,
			t.Status,
			t.ProviderPaymentID,
			t.ProviderStatus,
			intentPayload,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time

	return t, nil
}

// GetByID получает транзакцию по ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, false)
}

// GetByProviderPaymentID получает транзакцию по идентификатору платежа провайдера
// Внутри транзакции БД строка блокируется (FOR UPDATE) - конкурентные webhook'и
// с одним correlation id сериализуются на этом lock'е
func (r *Repository) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*domain.Transaction, error) {
	return r.getOne(ctx, squirrel.Eq{"provider_payment_id": providerPaymentID}, true)
}

func (r *Repository) getOne(ctx context.Context, where squirrel.Eq, lockInTx bool) (*domain.Transaction, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(txColumns...).
		From("transactions").
		Where(where)

	if lockInTx && dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: getOne - build select query: %v", ErrBuildQuery, err)
	}

	t, err := scanTransaction(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getOne - scan transaction: %v", ErrScanRow, err)
	}

	return t, nil
}

// SetProviderPaymentID привязывает идентификатор платежа провайдера
// Вызывается после создания инвойса у провайдера
func (r *Repository) SetProviderPaymentID(ctx context.Context, id uuid.UUID, providerPaymentID string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("transactions").
		Set("provider_payment_id", providerPaymentID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": domain.TxPending}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: SetProviderPaymentID - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: SetProviderPaymentID - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: SetProviderPaymentID - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrNotInExpectedStatus
	}

	return nil
}

// MarkCompleted переводит pending транзакцию в completed и привязывает бронирование
// Выполняется в одной транзакции БД с созданием бронирования и переходом слота
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, bookingID int64, providerStatus string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("transactions").
		Set("status", domain.TxCompleted).
		Set("booking_id", bookingID).
		Set("provider_status", providerStatus).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": domain.TxPending}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkCompleted - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: MarkCompleted - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: MarkCompleted - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrNotInExpectedStatus
	}

	return nil
}

// MarkStatus переводит транзакцию из статуса from в статус to
// Guard по from гарантирует, что терминальный статус не будет перезаписан
func (r *Repository) MarkStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, providerStatus *string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	updateBuilder := psqlbuilder.Update("transactions").
		Set("status", to).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": from})

	if providerStatus != nil {
		updateBuilder = updateBuilder.Set("provider_status", *providerStatus)
	}

	query, args, err := updateBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: MarkStatus - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: MarkStatus - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: MarkStatus - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrNotInExpectedStatus
	}

	return nil
}

// FindStalePending находит pending транзакции старше olderThan
// Используется sweeper'ом для payment timeout
func (r *Repository) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Transaction, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(txColumns...).
		From("transactions").
		Where(squirrel.Eq{"status": domain.TxPending}).
		Where(squirrel.Lt{"created_at": olderThan}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: FindStalePending - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FindStalePending - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetByClientID получает транзакции клиента (read-only проекция для дашбордов)
func (r *Repository) GetByClientID(ctx context.Context, clientID int64, status *domain.TransactionStatus) ([]*domain.Transaction, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(txColumns...).
		From("transactions").
		Where(squirrel.Eq{"client_id": clientID}).
		OrderBy("created_at DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *status})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByClientID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByClientID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// CountNonTerminalBySlotID считает незавершенные транзакции, ссылающиеся на слот
// через intent payload. Используется как guard при удалении слота
func (r *Repository) CountNonTerminalBySlotID(ctx context.Context, slotID int64) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COUNT(*)").
		From("transactions").
		Where(squirrel.Eq{"status": domain.TxPending}).
		Where(squirrel.Expr("(intent_payload->>'slotId')::bigint = ?", slotID)).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: CountNonTerminalBySlotID - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountNonTerminalBySlotID - scan count: %v", ErrScanRow, err)
	}

	return count, nil
}

// rowScanner общий интерфейс для *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTransaction сканирует одну строку в доменную модель транзакции
// Битый intent payload не прерывает сканирование - валидация intent'а
// выполняется на стороне settlement'а (fail closed)
func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var createdAt, updatedAt sql.NullTime
	var providerPaymentID, providerStatus sql.NullString
	var bookingID sql.NullInt64
	var intentPayload []byte

	err := row.Scan(
		&t.ID,
		&t.ClientID,
		&t.Amount,
		&t.Status,
		&providerPaymentID,
		&providerStatus,
		&intentPayload,
		&bookingID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if providerPaymentID.Valid {
		t.ProviderPaymentID = &providerPaymentID.String
	}
	if providerStatus.Valid {
		t.ProviderStatus = &providerStatus.String
	}
	if bookingID.Valid {
		t.BookingID = &bookingID.Int64
	}

	if len(intentPayload) > 0 {
		if intent, err := domain.UnmarshalIntent(intentPayload); err == nil {
			t.Intent = intent
		}
	}

	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time

	return &t, nil
}

// scanTransactions сканирует результаты запроса в слайс транзакций
func scanTransactions(rows *sql.Rows) ([]*domain.Transaction, error) {
	transactions := make([]*domain.Transaction, 0)

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanTransactions - scan row: %v", ErrScanRow, err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanTransactions - rows error: %v", ErrScanRow, err)
	}

	return transactions, nil
}
