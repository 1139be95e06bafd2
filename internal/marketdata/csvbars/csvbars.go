// Package csvbars parses bar history exported as CSV so it can be loaded
// into the bar store.
//
// Expected columns: ts,open,high,low,close[,volume]. ts is RFC 3339 or Unix
// seconds. A header row is skipped when its first field is not a timestamp.
package csvbars

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"candlewatch/internal/model"
)

// Parse reads all rows from r. Rows are returned in file order; validation
// and ordering are left to the window.
func Parse(r io.Reader) ([]model.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var bars []model.Bar
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return bars, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}

		ts, err := parseTS(rec[0])
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		b, err := parseRow(ts, rec[1:])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
}

func parseTS(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	return time.Unix(sec, 0).UTC(), nil
}

func parseRow(ts time.Time, fields []string) (model.Bar, error) {
	if len(fields) < 4 {
		return model.Bar{}, fmt.Errorf("expected at least 5 columns, got %d", len(fields)+1)
	}
	var v [5]float64
	n := len(fields)
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("column %d: %w", i+2, err)
		}
		v[i] = f
	}
	b := model.NewBar(ts, v[0], v[1], v[2], v[3])
	if n == 5 {
		b = b.WithVolume(v[4])
	}
	return b, nil
}
