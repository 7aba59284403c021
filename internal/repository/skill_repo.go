package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"skinny-studio-backend/internal/models"
)

type SkillRepo struct {
	pool *pgxpool.Pool
}

func NewSkillRepo(pool *pgxpool.Pool) *SkillRepo {
	return &SkillRepo{pool: pool}
}

func (r *SkillRepo) Create(ctx context.Context, s *models.Skill) error {
	s.ID = uuid.New()
	query := `INSERT INTO skills (id, user_id, name, shortcut, description, category, icon, content, tags, examples)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.Name, s.Shortcut, s.Description, s.Category, s.Icon, s.Content, s.Tags, s.Examples,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *SkillRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Skill, error) {
	s := &models.Skill{}
	query := `SELECT id, user_id, name, shortcut, description, category, icon, content, tags, examples, created_at, updated_at
		FROM skills WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.Name, &s.Shortcut, &s.Description, &s.Category,
		&s.Icon, &s.Content, &s.Tags, &s.Examples, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SkillRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Skill, error) {
	query := `SELECT id, user_id, name, shortcut, description, category, icon, content, tags, examples, created_at, updated_at
		FROM skills WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skills := make([]*models.Skill, 0)
	for rows.Next() {
		s := &models.Skill{}
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Name, &s.Shortcut, &s.Description, &s.Category,
			&s.Icon, &s.Content, &s.Tags, &s.Examples, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

// GetByShortcuts resolves /shortcut references from chat into full skills,
// scoped to the owning user.
func (r *SkillRepo) GetByShortcuts(ctx context.Context, userID uuid.UUID, shortcuts []string) ([]*models.Skill, error) {
	if len(shortcuts) == 0 {
		return nil, nil
	}
	query := `SELECT id, user_id, name, shortcut, description, category, icon, content, tags, examples, created_at, updated_at
		FROM skills WHERE user_id = $1 AND shortcut = ANY($2)`

	rows, err := r.pool.Query(ctx, query, userID, shortcuts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skills := make([]*models.Skill, 0, len(shortcuts))
	for rows.Next() {
		s := &models.Skill{}
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Name, &s.Shortcut, &s.Description, &s.Category,
			&s.Icon, &s.Content, &s.Tags, &s.Examples, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

func (r *SkillRepo) Update(ctx context.Context, s *models.Skill) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE skills SET name = $1, shortcut = $2, description = $3, category = $4,
			icon = $5, content = $6, tags = $7, examples = $8, updated_at = NOW()
		WHERE id = $9`,
		s.Name, s.Shortcut, s.Description, s.Category, s.Icon, s.Content, s.Tags, s.Examples, s.ID,
	)
	return err
}

func (r *SkillRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM skills WHERE id = $1", id)
	return err
}
