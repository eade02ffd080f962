package artifact

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// PostgresStore keeps documents next to the kv table when the workspace
// runs on postgres.
type PostgresStore struct {
	db *sql.DB

	schemaMu    sync.Mutex
	schemaReady bool
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS nexus_documents (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL,
    kind TEXT NOT NULL,
    report_name TEXT NOT NULL,
    content TEXT NOT NULL,
    params JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_nexus_documents_slug ON nexus_documents(slug);
`); err != nil {
		return fmt.Errorf("artifact: create schema: %w", err)
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, doc Document) (Document, error) {
	doc, err := assignID(doc)
	if err != nil {
		return Document{}, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return Document{}, err
	}
	var params any
	if doc.Params != nil {
		b, err := json.Marshal(doc.Params)
		if err != nil {
			return Document{}, err
		}
		params = string(b)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO nexus_documents (id, slug, kind, report_name, content, params, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id)
DO UPDATE SET content=EXCLUDED.content, params=EXCLUDED.params`,
		doc.ID, Slug(doc.ReportName), string(doc.Kind), doc.ReportName, doc.Content, params, doc.CreatedAt)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc    Document
		kind   string
		params []byte
	)
	if err := row.Scan(&doc.ID, &kind, &doc.ReportName, &doc.Content, &params, &doc.CreatedAt); err != nil {
		return Document{}, err
	}
	doc.Kind = Kind(kind)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &doc.Params); err != nil {
			return Document{}, fmt.Errorf("decode params for %s: %w", doc.ID, err)
		}
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	return doc, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Document, error) {
	id, err := checkID(id)
	if err != nil {
		return Document{}, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return Document{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, report_name, content, params, created_at
FROM nexus_documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) List(ctx context.Context, reportName string) ([]Document, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, report_name, content, params, created_at
FROM nexus_documents WHERE slug = $1 ORDER BY created_at DESC, id`, Slug(reportName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
