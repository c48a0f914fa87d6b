package session

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"riffle/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; an old database then reports ErrSchemaMismatch.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages resume persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is the remembered position for one archive.
type Entry struct {
	ArchivePath string
	PageIndex   int
	PageName    string
	Manga       bool
	Upscaling   bool
	Fit         string
	DisplayMode string
	UpdatedAt   time.Time
}

// Open initializes or connects to the resume database at cfg.Session.Path.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Session.Path
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Save upserts the remembered position for an archive. The update timestamp
// is set here; any UpdatedAt on the entry is ignored.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	if entry.ArchivePath == "" {
		return errors.New("archive path is empty")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO archive_positions (
            archive_path, page_index, page_name, manga, upscaling, fit, display_mode, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(archive_path) DO UPDATE SET
            page_index = excluded.page_index,
            page_name = excluded.page_name,
            manga = excluded.manga,
            upscaling = excluded.upscaling,
            fit = excluded.fit,
            display_mode = excluded.display_mode,
            updated_at = excluded.updated_at`,
		entry.ArchivePath,
		entry.PageIndex,
		entry.PageName,
		boolToInt(entry.Manga),
		boolToInt(entry.Upscaling),
		entry.Fit,
		entry.DisplayMode,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// Lookup returns the remembered position for an archive, nil when none
// exists.
func (s *Store) Lookup(ctx context.Context, archivePath string) (*Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM archive_positions WHERE archive_path = ?`,
		archivePath,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup position: %w", err)
	}
	return entry, nil
}

// Forget removes the remembered position for an archive.
func (s *Store) Forget(ctx context.Context, archivePath string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM archive_positions WHERE archive_path = ?`, archivePath)
	if err != nil {
		return false, fmt.Errorf("forget position: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Prune removes positions not touched since the cutoff and returns how many
// rows were dropped.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM archive_positions WHERE updated_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune positions: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of remembered positions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM archive_positions`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count positions: %w", err)
	}
	return count, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

const entryColumns = "archive_path, page_index, page_name, manga, upscaling, fit, display_mode, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		archivePath string
		pageIndex   int
		pageName    sql.NullString
		manga       sql.NullInt64
		upscaling   sql.NullInt64
		fit         sql.NullString
		displayMode sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&archivePath,
		&pageIndex,
		&pageName,
		&manga,
		&upscaling,
		&fit,
		&displayMode,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ArchivePath: archivePath,
		PageIndex:   pageIndex,
		PageName:    pageName.String,
		Manga:       manga.Int64 != 0,
		Upscaling:   upscaling.Int64 != 0,
		Fit:         fit.String,
		DisplayMode: displayMode.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
