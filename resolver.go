package marketwatch

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// This file resolves point-in-time prices on a Table, walking past the
// gaps left by non-trading days.

// LastValid returns the most recent valid close for the instrument,
// rounded to precision decimal digits, with its timestamp. It scans
// backward from the end of the series, skipping missing points, and fails
// with ErrNoValidPrice when the entire column is missing.
func (t *Table) LastValid(instrument string, precision int32) (time.Time, decimal.Decimal, error) {
	for i := len(t.stamps) - 1; i >= 0; i-- {
		if p := t.price(instrument, i); p.valid {
			return t.stamps[i], p.value.Round(precision), nil
		}
	}
	return time.Time{}, decimal.Decimal{}, fmt.Errorf("%s: %w", instrument, ErrNoValidPrice)
}

// NearTarget returns a valid close near `horizon` before the last valid
// point of the instrument. The target date is the last valid timestamp
// minus the horizon's calendar days. It fails with ErrOutOfRange when the
// target precedes the series.
//
// The series is then walked backward from its end, skipping every row
// that is after the target or missing, and the first qualifying row wins.
// With long gaps this yields the earliest valid row at or before the
// target rather than the closest one; that is the documented behavior,
// kept deliberately.
func (t *Table) NearTarget(instrument string, horizon Horizon, precision int32) (time.Time, decimal.Decimal, error) {
	last, _, err := t.LastValid(instrument, precision)
	if err != nil {
		return time.Time{}, decimal.Decimal{}, err
	}
	target := last.Add(-time.Duration(horizon.Days()) * 24 * time.Hour)
	if target.Before(t.stamps[0]) {
		return time.Time{}, decimal.Decimal{}, fmt.Errorf("%s over %s: %w", instrument, horizon, ErrOutOfRange)
	}
	for i := len(t.stamps) - 1; i >= 0; i-- {
		if t.stamps[i].After(target) {
			continue
		}
		if p := t.price(instrument, i); p.valid {
			return t.stamps[i], p.value.Round(precision), nil
		}
	}
	// Every row at or before the target is missing.
	return time.Time{}, decimal.Decimal{}, fmt.Errorf("%s at %s: %w", instrument, target.Format(time.RFC3339), ErrNoValidPrice)
}

// NearestAt returns the valid close whose timestamp is nearest to target,
// regardless of direction. When the nearest row is missing, the search
// expands symmetrically (one row earlier, one row later, two earlier, two
// later, ...) until a valid point is found. It reports false when the
// series holds no valid point at all.
func (t *Table) NearestAt(instrument string, target time.Time) (decimal.Decimal, bool) {
	n := len(t.stamps)
	if n == 0 || !t.Has(instrument) {
		return decimal.Decimal{}, false
	}
	target = target.UTC()
	i, found := slices.BinarySearchFunc(t.stamps, target, func(a, b time.Time) int { return a.Compare(b) })
	if !found {
		// i is the insertion point: the nearest row is i-1 or i.
		switch {
		case i >= n:
			i = n - 1
		case i > 0:
			if target.Sub(t.stamps[i-1]) <= t.stamps[i].Sub(target) {
				i--
			}
		}
	}
	if p := t.price(instrument, i); p.valid {
		return p.value, true
	}
	for offset := 1; ; offset++ {
		lo, hi := i-offset, i+offset
		if lo < 0 && hi >= n {
			return decimal.Decimal{}, false
		}
		if lo >= 0 {
			if p := t.price(instrument, lo); p.valid {
				return p.value, true
			}
		}
		if hi < n {
			if p := t.price(instrument, hi); p.valid {
				return p.value, true
			}
		}
	}
}

// Evolution returns the percentage change between the instrument's last
// valid close and its close near `horizon` ago, rounded to precision
// digits. It fails with ErrDivisionUndefined when the reference price is
// exactly zero, and propagates ErrNoValidPrice and ErrOutOfRange from its
// lookups.
func (t *Table) Evolution(instrument string, horizon Horizon, precision int32) (Percent, error) {
	_, last, err := t.LastValid(instrument, precision)
	if err != nil {
		return 0, err
	}
	_, past, err := t.NearTarget(instrument, horizon, precision)
	if err != nil {
		return 0, err
	}
	if past.IsZero() {
		return 0, fmt.Errorf("%s over %s: %w", instrument, horizon, ErrDivisionUndefined)
	}
	rate := last.Sub(past).Div(past).Mul(decimal.NewFromInt(100)).Round(precision)
	return Percent(rate.InexactFloat64()), nil
}
