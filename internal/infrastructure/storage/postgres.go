package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"WeeklyTop/internal/domain"
	"WeeklyTop/internal/ports"
)

const (
	snapshotTable = "weekly_snapshots"
	currentSlot   = "current"
)

// Schema creates the single-row snapshot table.
const Schema = `CREATE TABLE IF NOT EXISTS weekly_snapshots (
    slot       TEXT PRIMARY KEY,
    week_id    TEXT NOT NULL,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps the current snapshot as one JSONB row keyed "current".
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.SnapshotStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// OpenPostgres connects with lib/pq and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return NewPostgresStore(db), nil
}

// Save upserts the current row.
func (s *PostgresStore) Save(ctx context.Context, snapshot domain.WeeklySnapshot) error {
	if s.db == nil {
		return fmt.Errorf("postgres store: no database")
	}
	query, args, err := s.saveQuery(snapshot)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Current reads the current row. A payload that no longer decodes is treated as absent.
func (s *PostgresStore) Current(ctx context.Context) (domain.WeeklySnapshot, bool, error) {
	if s.db == nil {
		return domain.WeeklySnapshot{}, false, fmt.Errorf("postgres store: no database")
	}
	query, args, err := s.currentQuery()
	if err != nil {
		return domain.WeeklySnapshot{}, false, err
	}

	var payload []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WeeklySnapshot{}, false, nil
	}
	if err != nil {
		return domain.WeeklySnapshot{}, false, fmt.Errorf("select snapshot: %w", err)
	}

	snap, ok := decode(payload)
	return snap, ok, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) saveQuery(snapshot domain.WeeklySnapshot) (string, []any, error) {
	payload, err := encode(snapshot)
	if err != nil {
		return "", nil, err
	}
	query, args, err := s.builder.
		Insert(snapshotTable).
		Columns("slot", "week_id", "payload").
		Values(currentSlot, snapshot.WeekID, string(payload)).
		Suffix("ON CONFLICT (slot) DO UPDATE SET week_id = EXCLUDED.week_id, payload = EXCLUDED.payload, updated_at = NOW()").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build upsert: %w", err)
	}
	return query, args, nil
}

func (s *PostgresStore) currentQuery() (string, []any, error) {
	query, args, err := s.builder.
		Select("payload").
		From(snapshotTable).
		Where(sq.Eq{"slot": currentSlot}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build select: %w", err)
	}
	return query, args, nil
}

func encode(snapshot domain.WeeklySnapshot) ([]byte, error) {
	if snapshot.Items == nil {
		snapshot.Items = []domain.WeeklyItem{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return payload, nil
}

func decode(payload []byte) (domain.WeeklySnapshot, bool) {
	var snap domain.WeeklySnapshot
	if err := json.Unmarshal(payload, &snap); err != nil || snap.WeekID == "" {
		return domain.WeeklySnapshot{}, false
	}
	if snap.Items == nil {
		snap.Items = []domain.WeeklyItem{}
	}
	return snap, true
}
