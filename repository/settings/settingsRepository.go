package settingsrepo

import (
	"context"
	"database/sql"
)

type Repo interface {
	// LoadActive returns every active key/value pair. Inactive rows are
	// invisible to the core.
	LoadActive(ctx context.Context) (map[string]string, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) LoadActive(ctx context.Context) (map[string]string, error) {
	const q = `SELECT key, value FROM settings WHERE active`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
