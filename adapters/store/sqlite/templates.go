package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/layer-3/nocode/core"
)

const templateColumns = `id, name, category, version, schema, audited, created_at`

func scanTemplate(row rowScanner) (*core.Template, error) {
	var (
		t         core.Template
		schema    string
		createdAt int64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Category, &t.Version, &schema, &t.Audited, &createdAt); err != nil {
		return nil, err
	}
	t.Schema = json.RawMessage(schema)
	t.CreatedAt = fromMillis(createdAt)
	return &t, nil
}

// CreateTemplate adds a template to the catalogue
func (s *Store) CreateTemplate(ctx context.Context, t *core.Template) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	schema := string(t.Schema)
	if schema == "" {
		schema = "{}"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Category, t.Version, schema, t.Audited, toMillis(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// ListTemplates returns the whole catalogue ordered by name
func (s *Store) ListTemplates(ctx context.Context) ([]core.Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	templates := []core.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}
