package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/candlewatch.db"
}

// Writer stores bar history and journals every reported event.
// It implements model.BarWriter and model.ReportSink.
type Writer struct {
	db      *sql.DB
	metrics *metrics.Metrics
	newID   func() string
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens the database in WAL mode and creates the schema. m may be nil.
func New(cfg WriterConfig, m *metrics.Metrics) (*Writer, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db, metrics: m, newID: uuid.NewString}, nil
}

func open(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS pattern_events (
			id         TEXT    PRIMARY KEY,
			symbol     TEXT    NOT NULL,
			trace_id   TEXT,
			bar_ts     INTEGER NOT NULL,
			name       TEXT    NOT NULL,
			direction  TEXT    NOT NULL,
			strength   INTEGER,
			evidence   TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pattern_events_symbol_ts ON pattern_events (symbol, bar_ts);

		CREATE TABLE IF NOT EXISTS momentum_events (
			id         TEXT    PRIMARY KEY,
			symbol     TEXT    NOT NULL,
			trace_id   TEXT,
			from_ts    INTEGER NOT NULL,
			to_ts      INTEGER NOT NULL,
			from_price REAL    NOT NULL,
			to_price   REAL    NOT NULL,
			pct_change REAL    NOT NULL,
			category   TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_momentum_events_symbol_ts ON momentum_events (symbol, to_ts);
	`)
	return err
}

// WriteBars upserts bars for symbol in a single transaction.
func (w *Writer) WriteBars(ctx context.Context, symbol string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	return w.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO bars (symbol, ts, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range bars {
			var vol sql.NullFloat64
			if b.Volume != nil {
				vol = sql.NullFloat64{Float64: *b.Volume, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, symbol, b.TS.UnixMilli(), b.Open, b.High, b.Low, b.Close, vol); err != nil {
				return err
			}
		}
		return nil
	})
}

// Name identifies the journal sink.
func (w *Writer) Name() string { return "journal" }

// Handle journals the report's events in one transaction.
func (w *Writer) Handle(ctx context.Context, r model.Report) error {
	if r.Empty() {
		return nil
	}
	start := time.Now()
	now := start.UnixMilli()

	err := w.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range r.Patterns {
			evidence, err := json.Marshal(p.Evidence)
			if err != nil {
				return fmt.Errorf("marshal evidence: %w", err)
			}
			var strength sql.NullInt64
			if p.Strength != nil {
				strength = sql.NullInt64{Int64: int64(*p.Strength), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO pattern_events (id, symbol, trace_id, bar_ts, name, direction, strength, evidence, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, w.newID(), r.Symbol, r.TraceID, p.TS.UnixMilli(), string(p.Name), string(p.Direction), strength, string(evidence), now); err != nil {
				return err
			}
		}
		for _, m := range r.Momentum {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO momentum_events (id, symbol, trace_id, from_ts, to_ts, from_price, to_price, pct_change, category, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, w.newID(), r.Symbol, r.TraceID, m.From.UnixMilli(), m.To.UnixMilli(), m.FromPrice, m.ToPrice, m.PctChange, string(m.Category), now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlite journal: %w", err)
	}
	if w.metrics != nil {
		w.metrics.SQLiteCommitDur.Observe(time.Since(start).Seconds())
	}
	return nil
}

func (w *Writer) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// LastBarTS returns the newest stored bar timestamp for symbol, or the zero
// time if none exist.
func (w *Writer) LastBarTS(ctx context.Context, symbol string) (time.Time, error) {
	return lastBarTS(ctx, w.db, symbol)
}

func lastBarTS(ctx context.Context, db *sql.DB, symbol string) (time.Time, error) {
	var ts sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT MAX(ts) FROM bars WHERE symbol = ?`, symbol).Scan(&ts)
	if err != nil {
		return time.Time{}, err
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.UnixMilli(ts.Int64).UTC(), nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
