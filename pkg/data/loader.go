// Package data loads and prepares the bar series consumed by the engine.
package data

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/erain9/mmsim/pkg/core"
)

// timeLayouts are tried in order when parsing the time column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadCSV reads an OHLCV file into a cleaned, time-sorted bar slice.
// Missing required columns are fatal; rows with unparseable time or
// missing required values are dropped; negative volume is clamped to zero.
func LoadCSV(path string) ([]core.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV file: %s", path)
	}

	header := normalizeHeader(records[0])
	cols := make(map[string]int, len(header))
	for i, name := range header {
		if _, exists := cols[name]; !exists {
			cols[name] = i
		}
	}

	// Fall back to the first column when no explicit time column exists.
	timeIdx, ok := cols["time"]
	if !ok {
		timeIdx = 0
	}

	// Consolidate close-like columns when the exact name is absent.
	if _, ok := cols["close"]; !ok {
		for i, name := range header {
			if strings.HasPrefix(name, "close") {
				cols["close"] = i
				break
			}
		}
	}

	var missing []string
	for _, c := range core.RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &core.MissingColumnsError{Columns: missing}
	}

	bars := make([]core.Bar, 0, len(records)-1)
	dropped := 0
	for _, rec := range records[1:] {
		t, ok := parseTime(field(rec, timeIdx))
		if !ok {
			dropped++
			continue
		}
		bar := core.Bar{
			Time:   t,
			Open:   parseNumeric(field(rec, cols["open"])),
			High:   parseNumeric(field(rec, cols["high"])),
			Low:    parseNumeric(field(rec, cols["low"])),
			Close:  parseNumeric(field(rec, cols["close"])),
			Volume: parseNumeric(field(rec, cols["volume"])),
		}
		if math.IsNaN(bar.Open) || math.IsNaN(bar.High) || math.IsNaN(bar.Low) ||
			math.IsNaN(bar.Close) || math.IsNaN(bar.Volume) {
			dropped++
			continue
		}
		if bar.Volume < 0 {
			bar.Volume = 0
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	if dropped > 0 {
		log.Warn().Str("path", path).Int("dropped", dropped).Int("kept", len(bars)).
			Msg("Dropped rows during CSV cleaning")
	}
	if len(bars) == 0 {
		log.Warn().Str("path", path).Msg("No usable rows remain after cleaning")
	}

	return bars, nil
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// parseNumeric coerces a raw CSV field to float64, tolerating thousands
// separators and common null spellings. Unparseable values become NaN.
func parseNumeric(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	switch strings.ToLower(s) {
	case "", "null", "none", "nan":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Epoch seconds or milliseconds
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v > 1e12 {
			return time.UnixMilli(v).UTC(), true
		}
		return time.Unix(v, 0).UTC(), true
	}
	return time.Time{}, false
}
