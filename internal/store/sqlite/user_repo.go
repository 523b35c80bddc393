package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"gochat/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `id, username, name, email, profile_picture, is_active, is_online, connection_handle, created_at, last_seen`

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, name, email, profile_picture, is_active, is_online, created_at, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	res, err := r.db.ExecContext(ctx, query, u.Username, u.Name, u.Email, u.ProfilePicture, true, false)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(ctx, query, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.scanUser(ctx, query, username)
}

func (r *UserRepo) ListOnline(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_active = 1 AND is_online = 1
		ORDER BY last_seen DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := scanUserRow(rows, u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) SetOnline(ctx context.Context, id int64, handle string) error {
	query := `
		UPDATE users
		SET is_online = 1, connection_handle = ?, last_seen = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, handle, id); err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	return nil
}

func (r *UserRepo) SetOffline(ctx context.Context, id int64, handle string) error {
	// The handle guard keeps a late disconnect of a replaced connection from
	// flipping a newer registration offline.
	query := `
		UPDATE users
		SET is_online = 0, connection_handle = NULL, last_seen = CURRENT_TIMESTAMP
		WHERE id = ? AND connection_handle = ?
	`
	if _, err := r.db.ExecContext(ctx, query, id, handle); err != nil {
		return fmt.Errorf("set offline: %w", err)
	}
	return nil
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Name,
		&u.Email,
		&u.ProfilePicture,
		&u.IsActive,
		&u.IsOnline,
		&u.ConnectionHandle,
		&u.CreatedAt,
		&u.LastSeen,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func scanUserRow(rows *sql.Rows, u *domain.User) error {
	if err := rows.Scan(
		&u.ID,
		&u.Username,
		&u.Name,
		&u.Email,
		&u.ProfilePicture,
		&u.IsActive,
		&u.IsOnline,
		&u.ConnectionHandle,
		&u.CreatedAt,
		&u.LastSeen,
	); err != nil {
		return fmt.Errorf("scan user: %w", err)
	}
	return nil
}
