package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"candlewatch/internal/model"
)

// Reader provides read-only access to bar history and the event journal.
// It implements model.BarReader.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadBars returns bars for symbol with TS strictly after `after`, ordered
// by timestamp ascending. A zero `after` reads the full history.
func (r *Reader) ReadBars(ctx context.Context, symbol string, after time.Time) ([]model.Bar, error) {
	afterMs := int64(-1 << 62)
	if !after.IsZero() {
		afterMs = after.UnixMilli()
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND ts > ?
		ORDER BY ts ASC
	`, symbol, afterMs)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var (
			b    model.Bar
			tsMs int64
			vol  sql.NullFloat64
		)
		if err := rows.Scan(&tsMs, &b.Open, &b.High, &b.Low, &b.Close, &vol); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.TS = time.UnixMilli(tsMs).UTC()
		if vol.Valid {
			v := vol.Float64
			b.Volume = &v
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LastBarTS returns the newest stored bar timestamp for symbol.
func (r *Reader) LastBarTS(ctx context.Context, symbol string) (time.Time, error) {
	return lastBarTS(ctx, r.db, symbol)
}

// PatternRecord is one journaled pattern event.
type PatternRecord struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	TraceID   string          `json:"trace_id,omitempty"`
	BarTS     time.Time       `json:"bar_ts"`
	Name      string          `json:"name"`
	Direction model.Direction `json:"direction"`
	Strength  *int            `json:"strength,omitempty"`
}

// RecentPatterns returns up to limit journaled pattern events for symbol,
// newest first.
func (r *Reader) RecentPatterns(ctx context.Context, symbol string, limit int) ([]PatternRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, COALESCE(trace_id, ''), bar_ts, name, direction, strength
		FROM pattern_events
		WHERE symbol = ?
		ORDER BY bar_ts DESC, created_at DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query pattern_events: %w", err)
	}
	defer rows.Close()

	out := []PatternRecord{}
	for rows.Next() {
		var (
			rec      PatternRecord
			tsMs     int64
			dir      string
			strength sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.TraceID, &tsMs, &rec.Name, &dir, &strength); err != nil {
			return nil, fmt.Errorf("sqlite scan pattern_events: %w", err)
		}
		rec.BarTS = time.UnixMilli(tsMs).UTC()
		rec.Direction = model.Direction(dir)
		if strength.Valid {
			s := int(strength.Int64)
			rec.Strength = &s
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountMomentum returns the number of journaled momentum events for symbol.
func (r *Reader) CountMomentum(ctx context.Context, symbol string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM momentum_events WHERE symbol = ?`, symbol).Scan(&n)
	return n, err
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
