package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"woodstore/pkg/domain/model"
)

type checkoutRow struct {
	Token     string         `db:"token"`
	Mode      string         `db:"mode"`
	Stage     string         `db:"stage"`
	OrderID   sql.NullString `db:"order_id"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func NewCheckoutRepository(db *sqlx.DB) model.CheckoutRepository {
	return &checkoutRepository{db: db}
}

type checkoutRepository struct {
	db *sqlx.DB
}

func (r *checkoutRepository) Find(ctx context.Context, token string) (*model.Checkout, error) {
	var row checkoutRow
	err := r.db.GetContext(ctx, &row, `SELECT token, mode, stage, order_id, updated_at FROM checkouts WHERE token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCheckoutNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select checkout")
	}

	mode, err := model.ParseCheckoutMode(row.Mode)
	if err != nil {
		return nil, err
	}
	stage, err := model.ParseCheckoutStage(row.Stage)
	if err != nil {
		return nil, err
	}
	checkout := &model.Checkout{
		Token:     row.Token,
		Mode:      mode,
		Stage:     stage,
		UpdatedAt: row.UpdatedAt,
	}
	if row.OrderID.Valid {
		checkout.OrderID, err = uuid.Parse(row.OrderID.String)
		if err != nil {
			return nil, errors.Wrapf(err, "parse order id of checkout %s", token)
		}
	}
	return checkout, nil
}

func (r *checkoutRepository) Store(ctx context.Context, checkout *model.Checkout) error {
	var orderID sql.NullString
	if checkout.OrderID != uuid.Nil {
		orderID = sql.NullString{String: checkout.OrderID.String(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkouts (token, mode, stage, order_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			mode = VALUES(mode),
			stage = VALUES(stage),
			order_id = VALUES(order_id),
			updated_at = VALUES(updated_at)`,
		checkout.Token, checkout.Mode.String(), checkout.Stage.String(), orderID, checkout.UpdatedAt)
	return errors.Wrap(err, "store checkout")
}
