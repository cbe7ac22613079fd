package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pricespy/backend/internal/domain"
)

// SQLiteStore persists price history using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS price_history (
	id              TEXT PRIMARY KEY,
	tracked_item_id INTEGER NOT NULL,
	price           REAL NOT NULL,
	currency        TEXT NOT NULL DEFAULT '',
	is_available    INTEGER NOT NULL DEFAULT 1,
	record          TEXT NOT NULL,
	captured_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_history_item_captured
	ON price_history(tracked_item_id, captured_at DESC);

CREATE TABLE IF NOT EXISTS extraction_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	tracked_item_id INTEGER NOT NULL,
	status          TEXT NOT NULL,
	model_used      TEXT NOT NULL DEFAULT '',
	price           REAL,
	currency        TEXT NOT NULL DEFAULT '',
	error_kind      TEXT NOT NULL DEFAULT '',
	error_field     TEXT NOT NULL DEFAULT '',
	error_value     TEXT NOT NULL DEFAULT '',
	error_message   TEXT NOT NULL DEFAULT '',
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extraction_log_created
	ON extraction_log(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_extraction_log_item
	ON extraction_log(tracked_item_id, created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, trackedItemID int64, record *domain.ValidatedPriceRecord) error {
	if record == nil {
		return domain.ErrInvalidRequest
	}

	stored := cloneRecord(*record)
	stored.TrackedItemID = trackedItemID
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CapturedAt.IsZero() {
		stored.CapturedAt = time.Now().UTC()
	}

	recordJSON, err := json.Marshal(stored)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO price_history (id, tracked_item_id, price, currency, is_available, record, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, trackedItemID, stored.Price, stored.Currency, stored.IsAvailable,
		string(recordJSON), stored.CapturedAt.UnixNano(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert price record for item %d", trackedItemID)
	}
	return nil
}

func (s *SQLiteStore) GetLatest(ctx context.Context, trackedItemID int64) (*domain.ValidatedPriceRecord, error) {
	records, err := s.List(ctx, trackedItemID, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (s *SQLiteStore) List(ctx context.Context, trackedItemID int64, limit int) ([]domain.ValidatedPriceRecord, error) {
	query := `SELECT record FROM price_history WHERE tracked_item_id = ? ORDER BY captured_at DESC, rowid DESC`
	args := []any{trackedItemID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list price history for item %d", trackedItemID)
	}
	defer rows.Close()

	records := make([]domain.ValidatedPriceRecord, 0)
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price record")
		}
		var record domain.ValidatedPriceRecord
		if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal price record")
		}
		if record.AvailableSizes == nil {
			record.AvailableSizes = []string{}
		}
		records = append(records, record)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate price history")
}
