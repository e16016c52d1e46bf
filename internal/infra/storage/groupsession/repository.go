package groupsession

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/STC-ReservationService/internal/domain"
	"github.com/m04kA/STC-ReservationService/pkg/dbmetrics"
	"github.com/m04kA/STC-ReservationService/pkg/psqlbuilder"
)

// sessionColumns колонки таблицы group_sessions в порядке сканирования
var sessionColumns = []string{
	"id",
	"slot_id",
	"title",
	"min_participants",
	"max_participants",
	"current_participants",
	"price",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с групповыми сессиями
// current_participants меняется только через Increment/Decrement
// под row-level lock'ом - значение никогда не кешируется в памяти процесса
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория групповых сессий
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новую групповую сессию поверх слота со статусом group
func (r *Repository) Create(ctx context.Context, gs *domain.GroupSession) (*domain.GroupSession, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("group_sessions").
		Columns(
			"slot_id",
			"title",
			"min_participants",
			"max_participants",
			"current_participants",
			"price",
		).
		Values(
			gs.SlotID,
			gs.Title,
			gs.MinParticipants,
			gs.MaxParticipants,
			gs.CurrentParticipants,
			gs.Price,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&gs.ID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	gs.CreatedAt = createdAt.Time
	gs.UpdatedAt = updatedAt.Time

	return gs, nil
}

// GetByID получает групповую сессию по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.GroupSession, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate получает групповую сессию с блокировкой строки (FOR UPDATE)
// Все изменения счетчика мест выполняются после чтения под этим lock'ом
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.GroupSession, error) {
	return r.getByID(ctx, id, true)
}

func (r *Repository) getByID(ctx context.Context, id int64, forUpdate bool) (*domain.GroupSession, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(sessionColumns...).
		From("group_sessions").
		Where(squirrel.Eq{"id": id})

	if forUpdate && dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var gs domain.GroupSession
	var createdAt, updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&gs.ID,
		&gs.SlotID,
		&gs.Title,
		&gs.MinParticipants,
		&gs.MaxParticipants,
		&gs.CurrentParticipants,
		&gs.Price,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan session: %v", ErrScanRow, err)
	}

	gs.CreatedAt = createdAt.Time
	gs.UpdatedAt = updatedAt.Time

	return &gs, nil
}

// GetBySlotID получает групповую сессию по ID подлежащего слота
func (r *Repository) GetBySlotID(ctx context.Context, slotID int64) (*domain.GroupSession, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(sessionColumns...).
		From("group_sessions").
		Where(squirrel.Eq{"slot_id": slotID}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetBySlotID - build select query: %v", ErrBuildQuery, err)
	}

	var gs domain.GroupSession
	var createdAt, updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&gs.ID,
		&gs.SlotID,
		&gs.Title,
		&gs.MinParticipants,
		&gs.MaxParticipants,
		&gs.CurrentParticipants,
		&gs.Price,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetBySlotID - scan session: %v", ErrScanRow, err)
	}

	gs.CreatedAt = createdAt.Time
	gs.UpdatedAt = updatedAt.Time

	return &gs, nil
}

// IncrementParticipants атомарно занимает count мест
// Guard в WHERE не дает счетчику превысить max_participants:
// при нехватке мест rowsAffected = 0 и возвращается ErrCapacityExceeded
func (r *Repository) IncrementParticipants(ctx context.Context, id int64, count int) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("group_sessions").
		Set("current_participants", squirrel.Expr("current_participants + ?", count)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Expr("current_participants + ? <= max_participants", count)).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: IncrementParticipants - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: IncrementParticipants - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: IncrementParticipants - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrCapacityExceeded
	}

	return nil
}

// DecrementParticipants атомарно освобождает count мест
// Guard в WHERE не дает счетчику уйти в минус
func (r *Repository) DecrementParticipants(ctx context.Context, id int64, count int) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("group_sessions").
		Set("current_participants", squirrel.Expr("current_participants - ?", count)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Expr("current_participants - ? >= 0", count)).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: DecrementParticipants - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: DecrementParticipants - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: DecrementParticipants - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrCounterUnderflow
	}

	return nil
}
