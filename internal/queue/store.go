package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mirrorsync/internal/config"
)

// timeLayout fixes the fractional second at nine digits so the TEXT
// created_at column sorts chronologically. RFC3339Nano trims trailing zeros,
// which breaks lexicographic ordering within a second ("0.5Z" sorts after
// "0.512Z").
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages upload queue persistence backed by SQLite. One long-lived
// Store is owned by the daemon; operations never open per-call connections.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the upload database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.QueueDatabasePath()
	// Pragmas ride the DSN so every pooled connection applies them; a
	// plain Exec would configure only the one connection serving that call,
	// leaving the rest without a busy timeout.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open sqlite db", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, storageErr("apply migrations", err)
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

// Enqueue persists a new pending upload with a fresh id, the current UTC
// timestamp, and a zero retry count. Storage failures are returned to the
// caller as ErrStorageUnavailable; the payload is never dropped silently.
func (s *Store) Enqueue(ctx context.Context, payload Payload) (*Upload, error) {
	if strings.TrimSpace(payload.UserID) == "" {
		return nil, errors.New("payload user id is required")
	}
	if len(payload.Content) == 0 {
		return nil, errors.New("payload content is empty")
	}

	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO uploads (
            id, user_id, challenge_id, file_name, title, note,
            location_lat, location_lng, content, created_at, retry_count
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		id,
		payload.UserID,
		payload.ChallengeID,
		payload.FileName,
		payload.Title,
		nullableString(payload.Note),
		nullableFloat(payload.Latitude),
		nullableFloat(payload.Longitude),
		payload.Content,
		now.Format(timeLayout),
	)
	if err != nil {
		return nil, storageErr("insert upload", err)
	}

	return &Upload{ID: id, Payload: payload, CreatedAt: now, RetryCount: 0}, nil
}

// ListPending returns all queued uploads ordered oldest first, so retries
// preserve submission order. Each call re-reads current state.
func (s *Store) ListPending(ctx context.Context) ([]*Upload, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+uploadColumns+` FROM uploads ORDER BY created_at, id`)
	if err != nil {
		return nil, storageErr("list pending uploads", err)
	}
	defer rows.Close()

	var uploads []*Upload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, storageErr("scan upload", err)
		}
		uploads = append(uploads, upload)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate uploads", err)
	}
	return uploads, nil
}

// GetByID fetches one upload; returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Upload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = ?`, id)
	upload, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get upload", err)
	}
	return upload, nil
}

// Remove deletes one upload. Removing an absent id is a no-op, not an error,
// so delivery and eviction deletes can be retried safely.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("delete upload", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("rows affected", err)
	}
	return affected > 0, nil
}

// IncrementRetry persists a failed delivery attempt and returns the new retry
// count. The count only ever grows until the record is removed.
func (s *Store) IncrementRetry(ctx context.Context, id string) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE uploads SET retry_count = retry_count + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, storageErr("increment retry", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("rows affected", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("upload %s not found", id)
	}

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT retry_count FROM uploads WHERE id = ?`, id)
	if err := row.Scan(&count); err != nil {
		return 0, storageErr("read retry count", err)
	}
	return count, nil
}

// Clear removes all uploads from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM uploads`)
	if err != nil {
		return 0, storageErr("clear uploads", err)
	}
	return res.RowsAffected()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var health HealthSummary
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(retry_count > 0), 0), COALESCE(MIN(created_at), '') FROM uploads`)
	var oldest string
	if err := row.Scan(&health.Pending, &health.Retrying, &oldest); err != nil {
		return HealthSummary{}, storageErr("queue health", err)
	}
	if oldest != "" {
		if created, err := time.Parse(timeLayout, oldest); err == nil {
			health.OldestWait = time.Since(created)
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("queue database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'uploads'")
	if err := row.Scan(&tableName); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM uploads")
		if err := row.Scan(&health.TotalUploads); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count uploads: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

const uploadColumns = "id, user_id, challenge_id, file_name, title, note, location_lat, location_lng, content, created_at, retry_count"

func scanUpload(scanner interface{ Scan(dest ...any) error }) (*Upload, error) {
	var (
		id          string
		userID      string
		challengeID int64
		fileName    string
		title       string
		note        sql.NullString
		lat         sql.NullFloat64
		lng         sql.NullFloat64
		content     []byte
		createdRaw  string
		retryCount  int
	)

	if err := scanner.Scan(
		&id,
		&userID,
		&challengeID,
		&fileName,
		&title,
		&note,
		&lat,
		&lng,
		&content,
		&createdRaw,
		&retryCount,
	); err != nil {
		return nil, err
	}

	upload := &Upload{
		ID: id,
		Payload: Payload{
			UserID:      userID,
			ChallengeID: challengeID,
			FileName:    fileName,
			Title:       title,
			Note:        note.String,
			Content:     content,
		},
		RetryCount: retryCount,
	}
	if lat.Valid {
		v := lat.Float64
		upload.Payload.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		upload.Payload.Longitude = &v
	}
	created, err := time.Parse(timeLayout, createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdRaw, err)
	}
	upload.CreatedAt = created
	return upload, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
