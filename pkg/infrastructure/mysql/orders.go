package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"woodstore/pkg/domain/model"
)

const orderColumns = `
	id, user_id, customer_name, customer_phone, customer_address,
	COALESCE(city, '') AS city, COALESCE(pincode, '') AS pincode,
	items, total, payment_method, payment_status,
	COALESCE(transaction_id, '') AS transaction_id,
	COALESCE(payment_screenshot_url, '') AS payment_screenshot_url,
	version, created_at, updated_at`

type orderRow struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	CustomerName    string          `db:"customer_name"`
	CustomerPhone   string          `db:"customer_phone"`
	CustomerAddress string          `db:"customer_address"`
	City            string          `db:"city"`
	Pincode         string          `db:"pincode"`
	Items           []byte          `db:"items"`
	Total           decimal.Decimal `db:"total"`
	PaymentMethod   string          `db:"payment_method"`
	PaymentStatus   string          `db:"payment_status"`
	TransactionID   string          `db:"transaction_id"`
	ScreenshotURL   string          `db:"payment_screenshot_url"`
	Version         int             `db:"version"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r orderRow) toModel() (model.Order, error) {
	var items []model.OrderItem
	if err := json.Unmarshal(r.Items, &items); err != nil {
		return model.Order{}, errors.Wrapf(err, "decode items of order %s", r.ID)
	}
	method, err := model.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return model.Order{}, err
	}
	status, err := model.ParsePaymentStatus(r.PaymentStatus)
	if err != nil {
		return model.Order{}, err
	}
	return model.Order{
		ID:              r.ID,
		UserID:          r.UserID,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		CustomerAddress: r.CustomerAddress,
		City:            r.City,
		Pincode:         r.Pincode,
		Items:           items,
		Total:           r.Total,
		PaymentMethod:   method,
		PaymentStatus:   status,
		TransactionID:   r.TransactionID,
		ScreenshotURL:   r.ScreenshotURL,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

func NewOrderRepository(db *sqlx.DB) model.OrderRepository {
	return &orderRepository{db: db}
}

type orderRepository struct {
	db *sqlx.DB
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return errors.Wrap(err, "encode order items")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, customer_name, customer_phone, customer_address, city, pincode,
		                    items, total, payment_method, payment_status, transaction_id,
		                    payment_screenshot_url, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.CustomerName, order.CustomerPhone, order.CustomerAddress,
		nullString(order.City), nullString(order.Pincode), items, order.Total,
		order.PaymentMethod.String(), order.PaymentStatus.String(), nullString(order.TransactionID),
		nullString(order.ScreenshotURL), order.Version, order.CreatedAt, order.UpdatedAt)
	return errors.Wrap(err, "insert order")
}

func (r *orderRepository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select order %s", id)
	}
	order, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return errors.Wrap(err, "encode order items")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET customer_name = ?, customer_phone = ?, customer_address = ?, city = ?, pincode = ?,
		    items = ?, total = ?, payment_method = ?, payment_status = ?, transaction_id = ?,
		    payment_screenshot_url = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		order.CustomerName, order.CustomerPhone, order.CustomerAddress, nullString(order.City),
		nullString(order.Pincode), items, order.Total, order.PaymentMethod.String(),
		order.PaymentStatus.String(), nullString(order.TransactionID), nullString(order.ScreenshotURL),
		order.Version, order.UpdatedAt, order.ID, order.Version-1)
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n > 0 {
		return nil
	}

	// Nothing changed: either the order is gone or someone else bumped the version.
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = ?)`, order.ID); err != nil {
		return errors.Wrap(err, "check order")
	}
	if !exists {
		return model.ErrOrderNotFound
	}
	return model.ErrOptimisticLock
}

func (r *orderRepository) ListNewestFirst(ctx context.Context) ([]model.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		order, err := row.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
