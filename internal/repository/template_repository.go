package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliphub/support-service/internal/domain"
)

// TemplateRepository encapsulates canned response persistence.
type TemplateRepository interface {
	// Upsert creates or replaces a template by id.
	Upsert(ctx context.Context, tpl *domain.ResponseTemplate) error
	GetByID(ctx context.Context, id string) (*domain.ResponseTemplate, error)
	List(ctx context.Context) ([]domain.ResponseTemplate, error)
	Delete(ctx context.Context, id string) error
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository instantiates repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

func (r *templateRepository) Upsert(ctx context.Context, tpl *domain.ResponseTemplate) error {
	const query = `
        INSERT INTO response_templates (id, name, body, category, shortcuts, variables)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET
            name=EXCLUDED.name, body=EXCLUDED.body, category=EXCLUDED.category,
            shortcuts=EXCLUDED.shortcuts, variables=EXCLUDED.variables, updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		tpl.ID,
		tpl.Name,
		tpl.Body,
		tpl.Category,
		tpl.Shortcuts,
		tpl.Variables,
	).Scan(&tpl.CreatedAt, &tpl.UpdatedAt)
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.ResponseTemplate, error) {
	const query = `
        SELECT id, name, body, category, shortcuts, variables, created_at, updated_at
        FROM response_templates WHERE id=$1`
	var tpl domain.ResponseTemplate
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Body,
		&tpl.Category,
		&tpl.Shortcuts,
		&tpl.Variables,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepository) List(ctx context.Context) ([]domain.ResponseTemplate, error) {
	const query = `
        SELECT id, name, body, category, shortcuts, variables, created_at, updated_at
        FROM response_templates ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ResponseTemplate
	for rows.Next() {
		var tpl domain.ResponseTemplate
		if err := rows.Scan(
			&tpl.ID,
			&tpl.Name,
			&tpl.Body,
			&tpl.Category,
			&tpl.Shortcuts,
			&tpl.Variables,
			&tpl.CreatedAt,
			&tpl.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM response_templates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
