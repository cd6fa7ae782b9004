package mysql

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"woodstore/pkg/domain/model"
)

func NewSessionRepository(db *sqlx.DB) model.SessionRepository {
	return &sessionRepository{db: db}
}

type sessionRepository struct {
	db *sqlx.DB
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)`,
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt)
	return errors.Wrap(err, "insert session")
}

func (r *sessionRepository) Find(ctx context.Context, token string) (*model.Session, error) {
	var session model.Session
	err := r.db.QueryRowxContext(ctx, `
		SELECT token, user_id, created_at, expires_at
		FROM sessions
		WHERE token = ?`, token).
		Scan(&session.Token, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select session")
	}
	return &session, nil
}

func (r *sessionRepository) Delete(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return errors.Wrap(err, "delete session")
	}
	return expectAffected(res, model.ErrSessionNotFound)
}
