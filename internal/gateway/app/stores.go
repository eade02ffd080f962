package app

import (
	"database/sql"
	"fmt"
	"log"

	"nexus/internal/artifact"
	"nexus/internal/config"
	"nexus/internal/kv"
)

// Stores are the operator-side persistence backends: the kv workspace
// behind autosave and saved blueprints, and the document archive.
type Stores struct {
	KV      kv.Store
	Archive artifact.Store
	db      *sql.DB
}

// OpenStores builds the backends named by cfg. A postgres kv store and a
// postgres archive share one handle.
func OpenStores(cfg *config.Config, logger *log.Logger) (*Stores, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &Stores{}
	postgres := func() (*sql.DB, error) {
		if s.db != nil {
			return s.db, nil
		}
		db, err := kv.OpenPostgres(cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		s.db = db
		return db, nil
	}

	switch cfg.Store.Backend {
	case "memory":
		s.KV = kv.NewMemory()
	case "file":
		f, err := kv.NewFile(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		s.KV = f
	case "postgres":
		db, err := postgres()
		if err != nil {
			return nil, err
		}
		pg, err := kv.NewPostgresDB(db)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.KV = pg
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	logger.Printf("workspace store: %s", cfg.Store.Backend)

	switch cfg.Artifact.Backend {
	case "none":
	case "memory":
		s.Archive = artifact.NewMemoryStore()
	case "s3":
		s3, err := artifact.NewS3Store(cfg.Artifact.S3)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
		}
		logger.Printf("artifact store: s3 bucket=%s endpoint=%s", cfg.Artifact.S3.Bucket, cfg.Artifact.S3.Endpoint)
		s.Archive = s3
	case "postgres":
		db, err := postgres()
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Archive = artifact.NewPostgresStore(db)
	default:
		_ = s.Close()
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Artifact.Backend)
	}
	return s, nil
}

func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
