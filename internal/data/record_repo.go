// Package data implements the durable record store on an embedded SQLite
// database. The store survives process restarts and supports lookup by id
// plus an indexed scan by status.
package data

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/fieldsync/fieldsync/internal/domain/model"
)

//go:embed schema.sql
var schemaSQL string

// RepoConfig holds tunables for the record repository.
type RepoConfig struct {
	// QuotaBytes caps the database file size. Zero means no quota; usage
	// estimates then report a zero quota.
	QuotaBytes int64
}

// RecordRepo provides durable storage for records. Writes are single-statement
// upserts, so a concurrent reader never observes a partially written record.
type RecordRepo struct {
	db  *sql.DB
	cfg RepoConfig
}

// Open creates or opens the record database at the given path.
//
// The database is configured with WAL mode for concurrent reads during
// writes, NORMAL synchronous mode, a 5-second busy timeout, and a single
// writer connection to avoid SQLITE_BUSY errors. Safe to call on an existing
// database; the schema is applied idempotently.
func Open(path string, cfg RepoConfig) (*RecordRepo, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &RecordRepo{db: db, cfg: cfg}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (r *RecordRepo) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Put upserts a record keyed by id. The write is a single statement and is
// atomic with respect to crash and restart. Returns a QuotaExceededError when
// a configured quota would be exceeded, a StorageError otherwise on failure.
func (r *RecordRepo) Put(ctx context.Context, rec *model.Record) error {
	if rec == nil {
		return &model.StorageError{Op: "put", Err: errors.New("record is required")}
	}
	if err := rec.Validate(); err != nil {
		return &model.StorageError{Op: "put", Err: err}
	}

	attachments, err := encodeAttachments(rec.Attachments)
	if err != nil {
		return &model.StorageError{Op: "put", Err: err}
	}

	if err := r.checkQuota(ctx, int64(len(rec.Payload)+len(attachments))); err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (id, payload, attachments, status, created_at, last_modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			attachments = excluded.attachments,
			status = excluded.status,
			last_modified = excluded.last_modified`,
		rec.ID, string(rec.Payload), attachments, string(rec.Status),
		rec.CreatedAt.UTC(), rec.LastModified.UTC(),
	)
	if err != nil {
		return classifyWriteError("put", err)
	}
	return nil
}

// Get returns the record with the given id, or model.ErrRecordNotFound.
func (r *RecordRepo) Get(ctx context.Context, id string) (*model.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, payload, attachments, status, created_at, last_modified
		FROM records WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRecordNotFound
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get", Err: err}
	}
	return rec, nil
}

// ListByStatus returns all records currently in the given status. Order is
// not guaranteed.
func (r *RecordRepo) ListByStatus(ctx context.Context, status model.RecordStatus) ([]*model.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payload, attachments, status, created_at, last_modified
		FROM records WHERE status = ?`, string(status))
	if err != nil {
		return nil, &model.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, &model.StorageError{Op: "list", Err: scanErr}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "list", Err: err}
	}
	return records, nil
}

// Delete removes the record with the given id. Deleting a missing record is
// not an error.
func (r *RecordRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return &model.StorageError{Op: "delete", Err: err}
	}
	return nil
}

// DeleteDeliveredBefore removes delivered records last modified before the
// cutoff, up to batch rows. Returns the number of rows removed.
func (r *RecordRepo) DeleteDeliveredBefore(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	if batch <= 0 {
		batch = 100
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM records WHERE id IN (
			SELECT id FROM records
			WHERE status = ? AND last_modified < ?
			LIMIT ?
		)`, string(model.StatusDelivered), cutoff.UTC(), batch)
	if err != nil {
		return 0, &model.StorageError{Op: "delete delivered", Err: err}
	}
	return res.RowsAffected()
}

// EstimateUsage reports best-effort storage consumption from SQLite page
// accounting. QuotaBytes echoes the configured quota, zero when unset.
func (r *RecordRepo) EstimateUsage(ctx context.Context) (model.StoreUsage, error) {
	var pageCount, pageSize int64
	if err := r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return model.StoreUsage{}, &model.StorageError{Op: "estimate usage", Err: err}
	}
	if err := r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return model.StoreUsage{}, &model.StorageError{Op: "estimate usage", Err: err}
	}
	return model.StoreUsage{
		UsedBytes:  pageCount * pageSize,
		QuotaBytes: r.cfg.QuotaBytes,
	}, nil
}

func (r *RecordRepo) checkQuota(ctx context.Context, incoming int64) error {
	if r.cfg.QuotaBytes <= 0 {
		return nil
	}
	usage, err := r.EstimateUsage(ctx)
	if err != nil {
		return err
	}
	if usage.UsedBytes+incoming > r.cfg.QuotaBytes {
		return &model.QuotaExceededError{UsedBytes: usage.UsedBytes, QuotaBytes: r.cfg.QuotaBytes}
	}
	return nil
}

func classifyWriteError(op string, err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrFull {
		return &model.QuotaExceededError{}
	}
	return &model.StorageError{Op: op, Err: err}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.Record, error) {
	var (
		rec         model.Record
		payload     string
		attachments string
		status      string
	)
	if err := row.Scan(&rec.ID, &payload, &attachments, &status, &rec.CreatedAt, &rec.LastModified); err != nil {
		return nil, err
	}

	if payload != "" {
		rec.Payload = json.RawMessage(payload)
	}
	rec.Status = model.RecordStatus(status)

	decoded, err := decodeAttachments(attachments)
	if err != nil {
		return nil, err
	}
	rec.Attachments = decoded
	return &rec, nil
}
