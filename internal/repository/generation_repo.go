package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"skinny-studio-backend/internal/models"
)

type GenerationRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationRepo(pool *pgxpool.Pool) *GenerationRepo {
	return &GenerationRepo{pool: pool}
}

func (r *GenerationRepo) Create(ctx context.Context, g *models.Generation) error {
	g.ID = uuid.New()
	query := `INSERT INTO generations (id, user_id, model, prompt, status, provider_id, output_urls, cost_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		g.ID, g.UserID, g.Model, g.Prompt, g.Status, g.ProviderID, g.OutputURLs, g.CostCents,
	).Scan(&g.CreatedAt)
}

func (r *GenerationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Generation, error) {
	g := &models.Generation{}
	query := `SELECT id, user_id, model, prompt, status, provider_id, output_urls, error_message, cost_cents, created_at, completed_at
		FROM generations WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.UserID, &g.Model, &g.Prompt, &g.Status, &g.ProviderID,
		&g.OutputURLs, &g.ErrorMessage, &g.CostCents, &g.CreatedAt, &g.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GenerationRepo) MarkSucceeded(ctx context.Context, id uuid.UUID, outputURLs []string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE generations SET status = $2, output_urls = $3, completed_at = $4
		WHERE id = $1`,
		id, models.GenerationSucceeded, outputURLs, time.Now(),
	)
	return err
}

func (r *GenerationRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE generations SET status = $2, error_message = $3, completed_at = $4
		WHERE id = $1`,
		id, models.GenerationFailed, errMsg, time.Now(),
	)
	return err
}

func (r *GenerationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Generation, error) {
	query := `SELECT id, user_id, model, prompt, status, provider_id, output_urls, error_message, cost_cents, created_at, completed_at
		FROM generations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gens := make([]*models.Generation, 0)
	for rows.Next() {
		g := &models.Generation{}
		if err := rows.Scan(
			&g.ID, &g.UserID, &g.Model, &g.Prompt, &g.Status, &g.ProviderID,
			&g.OutputURLs, &g.ErrorMessage, &g.CostCents, &g.CreatedAt, &g.CompletedAt,
		); err != nil {
			return nil, err
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}
