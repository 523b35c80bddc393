package postgres

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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, name, email, profile_picture, is_active, is_online, created_at, last_seen)
		VALUES ($1, $2, $3, $4, TRUE, FALSE, NOW(), NOW())
		RETURNING id, created_at, last_seen
	`, u.Username, u.Name, u.Email, u.ProfilePicture).Scan(&u.ID, &u.CreatedAt, &u.LastSeen)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.scanUser(ctx, query, username)
}

func (r *UserRepo) ListOnline(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE is_active = TRUE AND is_online = TRUE
		ORDER BY last_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
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
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) SetOnline(ctx context.Context, id int64, handle string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET is_online = TRUE, connection_handle = $1, last_seen = NOW()
		WHERE id = $2
	`, handle, id)
	if err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	return nil
}

func (r *UserRepo) SetOffline(ctx context.Context, id int64, handle string) error {
	// Guarded by handle so a stale disconnect cannot flip a newer
	// registration offline.
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET is_online = FALSE, connection_handle = NULL, last_seen = NOW()
		WHERE id = $1 AND connection_handle = $2
	`, id, handle)
	if err != nil {
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
