package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mjoubert/viproster/internal/domain/model"
	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VipStore = (*VipRepo)(nil)

// VipRepo is the SQLite implementation of the VipStore port interface.
type VipRepo struct {
	db *DB
}

// NewVipRepo creates a new VipRepo backed by the given DB.
func NewVipRepo(db *DB) *VipRepo {
	return &VipRepo{db: db}
}

// Get retrieves a single record by holder ID. Returns nil, nil if no record exists.
func (r *VipRepo) Get(ctx context.Context, holderID string) (*model.VipRecord, error) {
	const query = `
		SELECT holder_id, permanent, expires_at, note, alerts, updated_at
		FROM vip_records
		WHERE holder_id = ?
	`

	rec, err := scanVipRecord(r.db.Reader.QueryRowContext(ctx, query, holderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vip record %q: %w", holderID, err)
	}

	return rec, nil
}

// Upsert inserts or fully replaces a record. The alerts column is always
// written from the record's value, never merged, so callers can reset flags
// by storing zero.
func (r *VipRepo) Upsert(ctx context.Context, rec model.VipRecord) error {
	const query = `
		INSERT INTO vip_records (holder_id, permanent, expires_at, note, alerts, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(holder_id) DO UPDATE SET
			permanent = excluded.permanent,
			expires_at = excluded.expires_at,
			note = excluded.note,
			alerts = excluded.alerts,
			updated_at = excluded.updated_at
	`

	permanent := 0
	if rec.Permanent {
		permanent = 1
	}

	var expiresAt any
	if rec.ExpiresAt != nil {
		expiresAt = rec.ExpiresAt.UTC().Format(time.RFC3339)
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.HolderID, permanent, expiresAt, rec.Note, int(rec.Alerts),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert vip record %q: %w", rec.HolderID, err)
	}

	return nil
}

// Delete removes a record by holder ID. Returns an error wrapping
// driven.ErrRecordNotFound if the record does not exist.
func (r *VipRepo) Delete(ctx context.Context, holderID string) error {
	const query = `DELETE FROM vip_records WHERE holder_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, holderID)
	if err != nil {
		return fmt.Errorf("delete vip record %q: %w", holderID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete vip record %q: %w", holderID, driven.ErrRecordNotFound)
	}

	return nil
}

// ListAll returns every record, ordered by holder ID. Rows that fail to
// scan or parse are logged and skipped.
func (r *VipRepo) ListAll(ctx context.Context) ([]model.VipRecord, error) {
	const query = `
		SELECT holder_id, permanent, expires_at, note, alerts, updated_at
		FROM vip_records
		ORDER BY holder_id
	`

	return r.queryRecords(ctx, query)
}

// ListExpiring returns all non-permanent records with an expiry set, ordered
// by expiry ascending. Rows that fail to scan or parse are logged and skipped.
func (r *VipRepo) ListExpiring(ctx context.Context) ([]model.VipRecord, error) {
	const query = `
		SELECT holder_id, permanent, expires_at, note, alerts, updated_at
		FROM vip_records
		WHERE permanent = 0 AND expires_at IS NOT NULL
		ORDER BY expires_at
	`

	return r.queryRecords(ctx, query)
}

func (r *VipRepo) queryRecords(ctx context.Context, query string, args ...any) ([]model.VipRecord, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vip records: %w", err)
	}
	defer rows.Close()

	var records []model.VipRecord
	for rows.Next() {
		rec, err := scanVipRecord(rows)
		if err != nil {
			// A corrupt row must not take the rest of the batch down with
			// it: the expiry pass over the healthy records continues.
			slog.Error("skipping malformed vip record", "error", err)
			continue
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vip records: %w", err)
	}

	return records, nil
}

func scanVipRecord(s scanner) (*model.VipRecord, error) {
	var rec model.VipRecord
	var permanent int
	var alerts int
	var expiresAt sql.NullString
	var updatedAt string

	err := s.Scan(&rec.HolderID, &permanent, &expiresAt, &rec.Note, &alerts, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Permanent = permanent != 0
	rec.Alerts = model.AlertFlags(alerts)

	if expiresAt.Valid {
		t, err := parseTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("record %q: parse expires_at: %w", rec.HolderID, err)
		}
		rec.ExpiresAt = &t
	}

	rec.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("record %q: parse updated_at: %w", rec.HolderID, err)
	}

	return &rec, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
