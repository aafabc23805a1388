package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/outreach-tracker/internal/domain"
)

const templateColumns = `id, owner_id, name, content, category, is_default, created_at`

// TemplateRepo reads owner-scoped content templates.
type TemplateRepo struct{ db *sql.DB }

// NewTemplateRepo creates a Postgres-backed template repository.
func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

func scanTemplate(s rowScanner) (*domain.Template, error) {
	var t domain.Template
	var category string
	if err := s.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Content, &category, &t.IsDefault, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Category = domain.Stage(category)
	return &t, nil
}

func (r *TemplateRepo) GetTemplate(ctx context.Context, ownerID, id int64) (*domain.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM outreach_templates WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) DefaultTemplate(ctx context.Context, ownerID int64, category domain.Stage) (*domain.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM outreach_templates
		WHERE owner_id = $1 AND category = $2 AND is_default
		ORDER BY id LIMIT 1`, ownerID, string(category)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get default template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) ListTemplates(ctx context.Context, ownerID int64) ([]domain.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM outreach_templates WHERE owner_id = $1 ORDER BY category, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("list templates: scan: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
