package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"skinny-studio-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, plan, credits_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	user.ID = uuid.New()
	if user.Plan == "" {
		user.Plan = "free"
	}
	user.IsActive = true

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.Plan, user.CreditsCents,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, full_name, is_active, plan, credits_cents, created_at, last_login_at
		FROM users WHERE email = $1`

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.IsActive, &user.Plan, &user.CreditsCents, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, full_name, is_active, plan, credits_cents, created_at, last_login_at
		FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.IsActive, &user.Plan, &user.CreditsCents, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

// DeductCredits atomically charges the user if the balance covers the
// amount. Returns the remaining balance and whether the charge happened;
// when it did not, the returned balance is the unchanged current one.
func (r *UserRepo) DeductCredits(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, bool, error) {
	var remaining int64
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET credits_cents = credits_cents - $2
		WHERE id = $1 AND credits_cents >= $2
		RETURNING credits_cents
	`, userID, amountCents).Scan(&remaining)
	if err == nil {
		return remaining, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, err
	}

	var available int64
	if balErr := r.pool.QueryRow(ctx, "SELECT credits_cents FROM users WHERE id = $1", userID).Scan(&available); balErr != nil {
		return 0, false, balErr
	}
	return available, false, nil
}

func (r *UserRepo) AddCredits(ctx context.Context, userID uuid.UUID, amountCents int64) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET credits_cents = credits_cents + $2 WHERE id = $1", userID, amountCents)
	return err
}
