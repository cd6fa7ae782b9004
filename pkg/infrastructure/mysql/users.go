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

const roleAdmin = "admin"

const userColumns = `
	u.id, u.email, u.hashed_password, u.display_name, u.status,
	COALESCE(u.verification_token, '') AS verification_token,
	u.created_at, u.updated_at,
	EXISTS(SELECT 1 FROM user_roles r WHERE r.user_id = u.id AND r.role = 'admin') AS is_admin`

type userRow struct {
	ID                uuid.UUID `db:"id"`
	Email             string    `db:"email"`
	HashedPassword    string    `db:"hashed_password"`
	DisplayName       string    `db:"display_name"`
	Status            int       `db:"status"`
	VerificationToken string    `db:"verification_token"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
	IsAdmin           bool      `db:"is_admin"`
}

func (r userRow) toModel() *model.User {
	return &model.User{
		ID:                r.ID,
		Email:             r.Email,
		HashedPassword:    r.HashedPassword,
		DisplayName:       r.DisplayName,
		Status:            model.UserStatus(r.Status),
		IsAdmin:           r.IsAdmin,
		VerificationToken: r.VerificationToken,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func NewUserRepository(db *sqlx.DB) model.UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *sqlx.DB
}

func (r *userRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, hashed_password, display_name, status, verification_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.HashedPassword, user.DisplayName, int(user.Status),
		nullString(user.VerificationToken), user.CreatedAt, user.UpdatedAt)
	if isDuplicateKey(err) {
		return model.ErrEmailTaken
	}
	return errors.Wrap(err, "insert user")
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, hashed_password = ?, display_name = ?, status = ?, verification_token = ?, updated_at = ?
		WHERE id = ?`,
		user.Email, user.HashedPassword, user.DisplayName, int(user.Status),
		nullString(user.VerificationToken), user.UpdatedAt, user.ID)
	if isDuplicateKey(err) {
		return model.ErrEmailTaken
	}
	if err != nil {
		return errors.Wrap(err, "update user")
	}
	return expectAffected(res, model.ErrUserNotFound)
}

func (r *userRepository) Find(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findBy(ctx, "u.id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(ctx, "u.email = ?", email)
}

func (r *userRepository) FindByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	return r.findBy(ctx, "u.verification_token = ?", token)
}

func (r *userRepository) SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	var err error
	if admin {
		_, err = r.db.ExecContext(ctx, `INSERT IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`, id, roleAdmin)
	} else {
		_, err = r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ? AND role = ?`, id, roleAdmin)
	}
	return errors.Wrapf(err, "set admin role of user %s", id)
}

func (r *userRepository) findBy(ctx context.Context, condition string, arg interface{}) (*model.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users u WHERE `+condition, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user")
	}
	return row.toModel(), nil
}
