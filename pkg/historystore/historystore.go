// Package historystore records past compilations (source path,
// outcome, diagnostic count, duration) so `vync history` can list
// them. The backend is selected by a DSN: empty for a local SQLite
// file, or postgres://, mysql:// or mongodb:// to point at a shared
// store.
package historystore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vyn-lang/vync/pkg/database"
	"github.com/vyn-lang/vync/pkg/mongodb"
)

// Entry is one recorded compilation.
type Entry struct {
	ID          int64
	Path        string
	Succeeded   bool
	Diagnostics int
	Duration    time.Duration
	CompiledAt  time.Time
}

// Store records and lists compilation history.
type Store interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Open selects a backend from dsn. An empty dsn opens (and creates, if
// needed) a SQLite file at path.
func Open(ctx context.Context, dsn string, path string) (Store, error) {
	switch {
	case dsn == "":
		return openSQLite(ctx, path)
	case strings.HasPrefix(dsn, "mongodb://") || strings.HasPrefix(dsn, "mongodb+srv://"):
		return openMongo(dsn)
	default:
		return openSQL(ctx, dsn)
	}
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS compile_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	succeeded INTEGER NOT NULL,
	diagnostics INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	compiled_at TIMESTAMP NOT NULL
)`

type sqlStore struct {
	db database.Database
}

func openSQLite(ctx context.Context, path string) (Store, error) {
	db := database.NewSQLiteDB(&database.Config{Driver: "sqlite", Database: path})
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	if _, err := db.Exec(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history table: %w", err)
	}
	return &sqlStore{db: db}, nil
}

func openSQL(ctx context.Context, dsn string) (Store, error) {
	cfg, err := database.ParseConnectionString(dsn)
	if err != nil {
		return nil, err
	}

	var db database.Database
	switch cfg.Driver {
	case "postgres", "postgresql":
		db = database.NewPostgresDB(cfg)
	case "mysql":
		db = database.NewMySQLDB(cfg)
	default:
		return nil, fmt.Errorf("unsupported history store driver: %s", cfg.Driver)
	}

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	if _, err := db.Exec(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history table: %w", err)
	}
	return &sqlStore{db: db}, nil
}

func (s *sqlStore) Record(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO compile_history (path, succeeded, diagnostics, duration_ms, compiled_at) VALUES (?, ?, ?, ?, ?)`,
		e.Path, boolToInt(e.Succeeded), e.Diagnostics, e.Duration.Milliseconds(), e.CompiledAt,
	)
	return err
}

func (s *sqlStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, path, succeeded, diagnostics, duration_ms, compiled_at FROM compile_history ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var succeeded int
		var durationMs int64
		if err := rows.Scan(&e.ID, &e.Path, &succeeded, &e.Diagnostics, &durationMs, &e.CompiledAt); err != nil {
			return nil, err
		}
		e.Succeeded = succeeded != 0
		e.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqlStore) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type mongoStore struct {
	handler *mongodb.Handler
}

func openMongo(dsn string) (Store, error) {
	h, err := mongodb.NewHandlerFromURI(dsn, "vync")
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return &mongoStore{handler: h}, nil
}

func (m *mongoStore) Record(_ context.Context, e Entry) error {
	_, err := m.handler.Collection("compile_history").InsertOne(map[string]interface{}{
		"path":        e.Path,
		"succeeded":   e.Succeeded,
		"diagnostics": e.Diagnostics,
		"duration_ms": e.Duration.Milliseconds(),
		"compiled_at": e.CompiledAt,
	})
	return err
}

func (m *mongoStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	docs, err := m.handler.Collection("compile_history").Find(map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		e := Entry{}
		if v, ok := d["path"].(string); ok {
			e.Path = v
		}
		if v, ok := d["succeeded"].(bool); ok {
			e.Succeeded = v
		}
		if v, ok := d["diagnostics"].(int32); ok {
			e.Diagnostics = int(v)
		}
		if v, ok := d["duration_ms"].(int64); ok {
			e.Duration = time.Duration(v) * time.Millisecond
		}
		if v, ok := d["compiled_at"].(time.Time); ok {
			e.CompiledAt = v
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mongoStore) Close() error { return m.handler.Close() }
