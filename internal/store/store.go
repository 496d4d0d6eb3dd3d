// Package store persists canonical table snapshots in PostgreSQL so a restart
// can serve the last good table before the first refresh completes.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/tbrates/internal/surveillance"
)

// ErrNoSnapshot is returned by LoadLatest when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// SnapshotMeta describes one saved table.
type SnapshotMeta struct {
	Version  uuid.UUID
	Source   string
	LoadedAt time.Time
	Rows     int
}

// Store saves and loads snapshots.
type Store struct {
	db   DB
	keep int
}

// New returns a Store that retains the newest keep snapshots (minimum 1).
func New(db DB, keep int) *Store {
	if keep < 1 {
		keep = 1
	}
	return &Store{db: db, keep: keep}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tb_snapshot (
	version    uuid PRIMARY KEY,
	source     text NOT NULL,
	loaded_at  timestamptz NOT NULL,
	row_count  integer NOT NULL
);
CREATE TABLE IF NOT EXISTS tb_snapshot_record (
	version               uuid NOT NULL REFERENCES tb_snapshot(version) ON DELETE CASCADE,
	country               text NOT NULL,
	year                  integer NOT NULL,
	population            double precision NOT NULL,
	tb_incidence_count    double precision NOT NULL,
	tb_mortality_count    double precision NOT NULL,
	tbhiv_incidence_count double precision NOT NULL,
	tbhiv_mortality_count double precision NOT NULL,
	PRIMARY KEY (version, country, year)
);`

// copyColumns lists tb_snapshot_record columns in copyRow order.
var copyColumns = []string{
	"version", "country", "year", "population",
	"tb_incidence_count", "tb_mortality_count", "tbhiv_incidence_count", "tbhiv_mortality_count",
}

// EnsureSchema creates the snapshot tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveSnapshot writes a table atomically and prunes snapshots beyond the
// retention count. Either the whole snapshot lands or none of it does.
func (s *Store) SaveSnapshot(ctx context.Context, meta SnapshotMeta, records []surveillance.Record) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	version := toPgUUID(meta.Version)
	if _, err := tx.Exec(ctx,
		`INSERT INTO tb_snapshot (version, source, loaded_at, row_count) VALUES ($1, $2, $3, $4)`,
		version, meta.Source, meta.LoadedAt, len(records),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"tb_snapshot_record"},
		copyColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return copyRow(version, records[i]), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy records: %w", err)
	}
	if int(copied) != len(records) {
		return fmt.Errorf("copy records: wrote %d of %d rows", copied, len(records))
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM tb_snapshot WHERE version NOT IN (
			SELECT version FROM tb_snapshot ORDER BY loaded_at DESC LIMIT $1
		)`, s.keep,
	); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadLatest returns the newest snapshot and its records.
func (s *Store) LoadLatest(ctx context.Context) (SnapshotMeta, []surveillance.Record, error) {
	var (
		meta    SnapshotMeta
		version pgtype.UUID
	)
	err := s.db.QueryRow(ctx,
		`SELECT version, source, loaded_at, row_count FROM tb_snapshot ORDER BY loaded_at DESC LIMIT 1`,
	).Scan(&version, &meta.Source, &meta.LoadedAt, &meta.Rows)
	if errors.Is(err, pgx.ErrNoRows) {
		return SnapshotMeta{}, nil, ErrNoSnapshot
	}
	if err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("load snapshot: %w", err)
	}
	meta.Version = uuid.UUID(version.Bytes)

	rows, err := s.db.Query(ctx,
		`SELECT country, year, population, tb_incidence_count, tb_mortality_count,
		        tbhiv_incidence_count, tbhiv_mortality_count
		   FROM tb_snapshot_record WHERE version = $1`, version)
	if err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("load records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (surveillance.Record, error) {
		var r surveillance.Record
		err := row.Scan(&r.Country, &r.Year, &r.Population,
			&r.TBIncidence, &r.TBMortality, &r.TBHIVIncidence, &r.TBHIVMortality)
		return r, err
	})
	if err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("scan records: %w", err)
	}
	if len(records) != meta.Rows {
		return SnapshotMeta{}, nil, fmt.Errorf("snapshot %s: found %d records, expected %d", meta.Version, len(records), meta.Rows)
	}
	return meta, records, nil
}

// copyRow converts a record to COPY values in copyColumns order.
func copyRow(version pgtype.UUID, r surveillance.Record) []any {
	return []any{
		version, r.Country, int32(r.Year), r.Population,
		r.TBIncidence, r.TBMortality, r.TBHIVIncidence, r.TBHIVMortality,
	}
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}
