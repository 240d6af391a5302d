package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
)

const userColumns = `id, email, name, rewards_balance, created_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, rewards_balance, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.Name, user.RewardsBalance, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	)
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.RewardsBalance, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &u, nil
}

// IncrementRewards adds points atomically on the user row; rewards have no
// version column because the increment is a single statement.
func (r *UserRepository) IncrementRewards(ctx context.Context, id uuid.UUID, points int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET rewards_balance = rewards_balance + $1 WHERE id = $2`,
		points, id,
	)
	if err != nil {
		return fmt.Errorf("IncrementRewards: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("IncrementRewards: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("IncrementRewards: %w", domain.ErrNotFound)
	}
	return nil
}
