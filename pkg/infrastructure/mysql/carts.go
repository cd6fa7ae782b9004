package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"woodstore/pkg/domain/model"
)

func NewCartStorage(db *sqlx.DB) model.CartStorage {
	return &cartStorage{db: db}
}

type cartStorage struct {
	db *sqlx.DB
}

func (s *cartStorage) Load(ctx context.Context, token string) ([]byte, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT items FROM carts WHERE token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCartNotFound
	}
	return payload, errors.Wrap(err, "select cart")
}

func (s *cartStorage) Save(ctx context.Context, token string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carts (token, items, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE items = VALUES(items), updated_at = VALUES(updated_at)`,
		token, payload, time.Now().UTC())
	return errors.Wrap(err, "save cart")
}
