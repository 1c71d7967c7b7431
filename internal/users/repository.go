package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inkroom/inkroom/internal/platform/db"
)

// Repository provides PostgreSQL backed access to the user directory.
type Repository struct {
	db db.Querier
}

// NewRepository constructs a repository. Pass a *pgxpool.Pool.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// GetUserName returns the display name of the user, or ErrNotFound.
func (r *Repository) GetUserName(ctx context.Context, userID string) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT user_name FROM "user" WHERE id = $1`, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("users: get user name: %w", err)
	}
	return name, nil
}

// ListUsers returns all users ordered by display name.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_name, email FROM "user" ORDER BY user_name, id`)
	if err != nil {
		return nil, fmt.Errorf("users: list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.UserName, &user.Email); err != nil {
			return nil, fmt.Errorf("users: scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: iterate users: %w", err)
	}
	return users, nil
}
