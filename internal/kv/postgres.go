package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const cacheSize = 256

// Postgres keeps values in a single nexus_kv table with a read-through
// cache in front of it.
type Postgres struct {
	db    *sql.DB
	cache *lru.Cache[string, []byte]

	// schemaMu guards schemaReady. A failed schema step is retried on the
	// next call.
	schemaMu    sync.Mutex
	schemaReady bool
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := OpenPostgres(dsn)
	if err != nil {
		return nil, err
	}
	return NewPostgresDB(db)
}

// OpenPostgres opens and pings a pgx-backed database handle.
func OpenPostgres(dsn string) (*sql.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("kv: postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("kv: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresDB uses an already opened handle. Close closes it.
func NewPostgresDB(db *sql.DB) (*Postgres, error) {
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db, cache: cache}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) ensureSchema(ctx context.Context) error {
	p.schemaMu.Lock()
	defer p.schemaMu.Unlock()
	if p.schemaReady {
		return nil
	}
	if _, err := p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS nexus_kv (
  key TEXT PRIMARY KEY,
  value JSONB NOT NULL,
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`); err != nil {
		return fmt.Errorf("kv: create schema: %w", err)
	}
	p.schemaReady = true
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k, err := checkKey(key)
	if err != nil {
		return nil, false, err
	}
	if v, ok := p.cache.Get(k); ok {
		return clone(v), true, nil
	}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, false, err
	}
	var v []byte
	err = p.db.QueryRowContext(ctx, `SELECT value FROM nexus_kv WHERE key = $1`, k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	p.cache.Add(k, clone(v))
	return v, true, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	k, err := checkKey(key)
	if err != nil {
		return err
	}
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
INSERT INTO nexus_kv (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key)
DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at`, k, string(value))
	if err != nil {
		p.cache.Remove(k)
		return err
	}
	p.cache.Add(k, clone(value))
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	k, err := checkKey(key)
	if err != nil {
		return err
	}
	p.cache.Remove(k)
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `DELETE FROM nexus_kv WHERE key = $1`, k)
	return err
}
