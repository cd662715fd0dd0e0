package repository

import (
	"context"

	"community_messaging_service/internal/directory/domain"
	errprocess "community_messaging_service/pkg/err"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// UserRepository definition get User info
type UserRepository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.User, error)
	ListByRole(ctx context.Context, role string) ([]domain.User, error)
}

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository create a UserRepository
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByUserID(ctx context.Context, userID string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		"SELECT id, user_id, name, email, role, status FROM users WHERE user_id = $1",
		userID,
	)
	var user domain.User
	err := row.Scan(&user.ID, &user.UserID, &user.Name, &user.Email, &user.Role, &user.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errprocess.NotFound("user " + userID)
		}
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, user_id, name, email, role, status FROM users WHERE role = $1 ORDER BY name",
		role,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.UserID, &user.Name, &user.Email, &user.Role, &user.Status); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
