package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is the local store backed by a single database file.
type SQLite struct {
	db   *sql.DB
	path string
}

var (
	_ KV      = (*SQLite)(nil)
	_ History = (*SQLite)(nil)
)

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("SQLite store ready")
	return &SQLite{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// --- Migrations ---

type migration struct {
	version int
	name    string
	upSQL   string
}

func loadMigrations() ([]migration, error) {
	files, err := fs.ReadDir(migrationsFS, "sql")
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := migrationsFS.ReadFile("sql/" + f.Name())
		if err != nil {
			return nil, err
		}
		var v int
		if _, err := fmt.Sscanf(f.Name(), "%d_", &v); err != nil {
			return nil, fmt.Errorf("invalid migration filename %s: %w", f.Name(), err)
		}
		out = append(out, migration{version: v, name: f.Name(), upSQL: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// migrate applies embedded migrations in order inside one transaction.
func migrate(db *sql.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL);`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	err = tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema_version: %w", err)
		}
		current = 0
	} else if err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := tx.Exec(m.upSQL); err != nil {
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`UPDATE schema_version SET version = ?`, m.version); err != nil {
			return fmt.Errorf("bump schema_version to %d: %w", m.version, err)
		}
		log.Debug().Str("migration", m.name).Msg("Applied migration")
	}
	return tx.Commit()
}

// --- KV ---

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// --- History ---

func (s *SQLite) AddReceipt(ctx context.Context, r *Receipt) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var humanAge sql.NullFloat64
	if r.HumanAge != nil {
		humanAge = sql.NullFloat64{Float64: *r.HumanAge, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO receipts(session, created_at, variant, species, breed, sex, age, name,
		   coat_color, message, transformed_image_url, prompt, human_age)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Session, createdAt.UTC().Format(timeLayout), r.Variant, r.Species, r.Breed, r.Sex, r.Age,
		r.Name, r.CoatColor, r.Message, r.TransformedImageURL, r.Prompt, humanAge)
	if err != nil {
		return fmt.Errorf("insert receipt %s: %w", r.Session, err)
	}
	return nil
}

func (s *SQLite) ListReceipts(ctx context.Context, limit int) ([]*Receipt, error) {
	query := `SELECT session, created_at, variant, species, breed, sex, age, name,
	            coat_color, message, transformed_image_url, prompt, human_age
	          FROM receipts ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var out []*Receipt
	for rows.Next() {
		var (
			r         Receipt
			createdAt string
			humanAge  sql.NullFloat64
		)
		if err := rows.Scan(&r.Session, &createdAt, &r.Variant, &r.Species, &r.Breed, &r.Sex, &r.Age,
			&r.Name, &r.CoatColor, &r.Message, &r.TransformedImageURL, &r.Prompt, &humanAge); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse receipt time %q: %w", createdAt, err)
		}
		if humanAge.Valid {
			v := humanAge.Float64
			r.HumanAge = &v
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
