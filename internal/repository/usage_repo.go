package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"skinny-studio-backend/internal/models"
)

type UsageRepo struct {
	pool *pgxpool.Pool
}

func NewUsageRepo(pool *pgxpool.Pool) *UsageRepo {
	return &UsageRepo{pool: pool}
}

func (r *UsageRepo) Insert(ctx context.Context, rec *models.UsageRecord) error {
	rec.ID = uuid.New()
	query := `INSERT INTO usage_records (id, user_id, model, prompt_tokens, response_tokens, total_tokens, estimated_cost_cents, is_platform_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		rec.ID, rec.UserID, rec.Model, rec.PromptTokens, rec.ResponseTokens,
		rec.TotalTokens, rec.EstimatedCostCents, rec.IsPlatformKey,
	).Scan(&rec.CreatedAt)
}
