package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/kanban"
)

const (
	kanbansTable            = "kanbans"
	kanbanLinksTable        = "kanban_links"
	productValidationsTable = "product_validations"
	transferLogsTable       = "transfer_logs"
)

var kanbanColumns = []string{"id", "name", "type", "default_location_id", "is_active", "created_at"}

// KanbanRepo implements kanban.Repository.
type KanbanRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *TxManager
}

// NewKanbanRepo creates a kanban repository.
func NewKanbanRepo(txManager *TxManager) *KanbanRepo {
	return &KanbanRepo{
		builder:   Builder(),
		txManager: txManager,
	}
}

var _ kanban.Repository = (*KanbanRepo)(nil)

// GetKanban fetches one board.
func (r *KanbanRepo) GetKanban(ctx context.Context, kanbanID id.ID) (*kanban.Kanban, error) {
	q := r.builder.Select(kanbanColumns...).
		From(kanbansTable).
		Where(squirrel.Eq{"id": kanbanID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var k kanban.Kanban
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &k, sql, args...); err != nil {
		return nil, TranslateNotFound(err, "kanban", kanbanID.String())
	}
	return &k, nil
}

// GetLinkedReceive returns the receiving board linked to an order board.
func (r *KanbanRepo) GetLinkedReceive(ctx context.Context, orderKanbanID id.ID) (*kanban.Kanban, error) {
	q := r.builder.Select(
		"k.id", "k.name", "k.type", "k.default_location_id", "k.is_active", "k.created_at",
	).
		From(kanbansTable+" k").
		Join(kanbanLinksTable+" l ON l.receive_kanban_id = k.id").
		Where(squirrel.Eq{"l.order_kanban_id": orderKanbanID, "k.is_active": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var k kanban.Kanban
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &k, sql, args...); err != nil {
		return nil, TranslateNotFound(err, "kanban link", orderKanbanID.String())
	}
	return &k, nil
}

// HasLink reports whether a link pairs the order board with the
// receiving board.
func (r *KanbanRepo) HasLink(ctx context.Context, orderKanbanID, receiveKanbanID id.ID) (bool, error) {
	q := r.builder.Select("1").
		From(kanbanLinksTable).
		Where(squirrel.Eq{"order_kanban_id": orderKanbanID, "receive_kanban_id": receiveKanbanID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check kanban link: %w", err)
	}
	return true, nil
}

// HasValidation reports whether a validation record exists for the
// product on the board.
func (r *KanbanRepo) HasValidation(ctx context.Context, productID, kanbanID id.ID) (bool, error) {
	q := r.builder.Select("1").
		From(productValidationsTable).
		Where(squirrel.Eq{"product_id": productID, "kanban_id": kanbanID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check validation: %w", err)
	}
	return true, nil
}

// CreateValidation inserts a validation record.
func (r *KanbanRepo) CreateValidation(ctx context.Context, v *kanban.Validation) error {
	q := r.builder.Insert(productValidationsTable).
		Columns("id", "product_id", "kanban_id", "validated_by", "validated_at").
		Values(v.ID, v.ProductID, v.KanbanID, v.ValidatedBy, v.ValidatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert validation: %w", err)
	}
	return nil
}

// CreateTransferLog inserts a board transfer record.
func (r *KanbanRepo) CreateTransferLog(ctx context.Context, t *kanban.TransferLog) error {
	q := r.builder.Insert(transferLogsTable).
		Columns("id", "product_id", "from_kanban_id", "to_kanban_id",
			"from_column", "to_column", "transfer_type", "transferred_by", "created_at").
		Values(t.ID, t.ProductID, t.FromKanbanID, t.ToKanbanID,
			t.FromColumn, t.ToColumn, t.TransferType, t.TransferredBy, t.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transfer log: %w", err)
	}
	return nil
}

// ListTransferLogs returns the board transfers of a product, newest first.
func (r *KanbanRepo) ListTransferLogs(ctx context.Context, productID id.ID) ([]kanban.TransferLog, error) {
	q := r.builder.Select("id", "product_id", "from_kanban_id", "to_kanban_id",
		"from_column", "to_column", "transfer_type", "transferred_by", "created_at").
		From(transferLogsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var logs []kanban.TransferLog
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &logs, sql, args...); err != nil {
		return nil, fmt.Errorf("list transfer logs: %w", err)
	}
	return logs, nil
}
