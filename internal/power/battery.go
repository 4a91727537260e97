// Package power covers battery state and sleep scheduling.
package power

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/epaper-display/internal/gpio"
)

// BatteryLevel is one of five discrete charge bands.
type BatteryLevel int

const (
	Level25To0 BatteryLevel = iota
	Level50To25
	Level75To50
	Level100To75
	Level100
)

var levelNames = map[BatteryLevel]string{
	Level25To0:   "25-0",
	Level50To25:  "50-25",
	Level75To50:  "75-50",
	Level100To75: "100-75",
	Level100:     "100",
}

// String returns the band as a percentage range, e.g. "75-50".
func (l BatteryLevel) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "unknown"
}

// ParseLevel parses the String form of a band.
func ParseLevel(s string) (BatteryLevel, error) {
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown battery band %q", s)
}

// Band maps one comparator input to a level.
type Band struct {
	Input int
	Level BatteryLevel
}

// BandTable maps comparator activity to a level. Bands are checked in
// order; the first whose input was active wins, else Fallback applies.
type BandTable struct {
	Bands    []Band
	Fallback BatteryLevel
}

// DefaultBandTable matches the board's comparator wiring: input 2 trips at
// full charge, input 1 at half, input 0 at a quarter.
var DefaultBandTable = BandTable{
	Bands: []Band{
		{Input: 2, Level: Level100},
		{Input: 1, Level: Level75To50},
		{Input: 0, Level: Level50To25},
	},
	Fallback: Level25To0,
}

// Level returns the band for the observed inputs.
func (t BandTable) Level(active []bool) BatteryLevel {
	for _, b := range t.Bands {
		if b.Input >= 0 && b.Input < len(active) && active[b.Input] {
			return b.Level
		}
	}
	return t.Fallback
}

// ParseBandTable parses "2:100,1:75-50,0:50-25,*:25-0". The "*" entry sets
// the fallback and is required.
func ParseBandTable(s string) (BandTable, error) {
	var t BandTable
	haveFallback := false
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		in, band, ok := strings.Cut(part, ":")
		if !ok {
			return BandTable{}, fmt.Errorf("band %q: missing ':'", part)
		}
		level, err := ParseLevel(strings.TrimSpace(band))
		if err != nil {
			return BandTable{}, fmt.Errorf("band %q: %w", part, err)
		}
		in = strings.TrimSpace(in)
		if in == "*" {
			t.Fallback = level
			haveFallback = true
			continue
		}
		n, err := strconv.Atoi(in)
		if err != nil || n < 0 {
			return BandTable{}, fmt.Errorf("band %q: bad input index", part)
		}
		t.Bands = append(t.Bands, Band{Input: n, Level: level})
	}
	if !haveFallback {
		return BandTable{}, errors.New("band table: missing '*' fallback")
	}
	return t, nil
}

// Comparator sampling window.
const (
	BatterySamples        = 150
	BatterySampleInterval = 10 * time.Millisecond
)

// Battery reads the comparator bank and the optional charge-detect line.
type Battery struct {
	levels gpio.Reader
	charge gpio.Reader // nil when no charge-detect line is wired
	table  BandTable

	samples  int
	interval time.Duration
}

// NewBattery creates a Battery. charge may be nil.
func NewBattery(levels, charge gpio.Reader, table BandTable) *Battery {
	return &Battery{
		levels:   levels,
		charge:   charge,
		table:    table,
		samples:  BatterySamples,
		interval: BatterySampleInterval,
	}
}

// Level samples the comparators over the observation window. An input
// counts as active if it was active in any sample.
func (b *Battery) Level(ctx context.Context) (BatteryLevel, error) {
	var seen []bool
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for i := 0; i < b.samples; i++ {
		vals, err := b.levels.Read()
		if err != nil {
			return 0, fmt.Errorf("read battery comparators: %w", err)
		}
		if seen == nil {
			seen = make([]bool, len(vals))
		}
		for j, v := range vals {
			if j < len(seen) && v {
				seen[j] = true
			}
		}
		if i == b.samples-1 {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
	return b.table.Level(seen), nil
}

// IsCharging reports whether external power is present. Without a
// charge-detect line, or when it cannot be read, the board is assumed to
// be on USB power.
func (b *Battery) IsCharging() bool {
	if b.charge == nil {
		return true
	}
	vals, err := b.charge.Read()
	if err != nil || len(vals) == 0 {
		return true
	}
	return vals[0]
}

// Close releases the GPIO lines.
func (b *Battery) Close() error {
	var errs []error
	if err := b.levels.Close(); err != nil {
		errs = append(errs, err)
	}
	if b.charge != nil {
		if err := b.charge.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
