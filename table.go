package marketwatch

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// Price is a single close price: either a finite value or explicitly
// missing (no trade on that day). The zero value is missing, so a gap is
// never conflated with a price of zero.
type Price struct {
	value decimal.Decimal
	valid bool
}

// P returns a valid Price for the given value.
func P[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Price {
	return Price{value: newDecimal(value), valid: true}
}

// Missing returns the explicit missing price.
func Missing() Price { return Price{} }

func (p Price) Valid() bool            { return p.valid }
func (p Price) Value() decimal.Decimal { return p.value }

// Table holds close prices for a set of instruments on a shared timestamp
// axis. Timestamps are unique, strictly ascending and normalized to UTC;
// each instrument has one Price per row.
//
// A Table is built row by row and then treated as read-only: resolvers and
// the portfolio engine receive it as a shared view and never mutate it.
type Table struct {
	stamps  []time.Time
	columns map[string][]Price
}

// NewTable returns a new empty price table.
func NewTable() *Table {
	return &Table{columns: make(map[string][]Price)}
}

// Len returns the number of rows in the table.
func (t *Table) Len() int { return len(t.stamps) }

// Has reports whether the table carries a close-price column for the
// given instrument.
func (t *Table) Has(instrument string) bool {
	_, ok := t.columns[instrument]
	return ok
}

// Instruments returns the instruments of the table in lexical order.
func (t *Table) Instruments() []string {
	list := make([]string, 0, len(t.columns))
	for instrument := range t.columns {
		list = append(list, instrument)
	}
	slices.Sort(list)
	return list
}

// Stamp returns the timestamp of row i.
func (t *Table) Stamp(i int) time.Time { return t.stamps[i] }

// price reads a single point for a given (instrument, row).
func (t *Table) price(instrument string, i int) Price {
	col, ok := t.columns[instrument]
	if !ok {
		return Missing()
	}
	return col[i]
}

// Append adds one row to the table. Instruments absent from close get a
// missing price for that row; an existing row at the same timestamp is
// updated in place, the given instruments overwriting the previous points.
func (t *Table) Append(on time.Time, close map[string]Price) *Table {
	on = on.UTC()
	for instrument := range close {
		if _, ok := t.columns[instrument]; !ok {
			// New column: pad the rows already present.
			t.columns[instrument] = make([]Price, len(t.stamps))
		}
	}
	i, found := slices.BinarySearchFunc(t.stamps, on, func(a, b time.Time) int { return a.Compare(b) })
	if found {
		for instrument, p := range close {
			t.columns[instrument][i] = p
		}
		return t
	}
	t.stamps = slices.Insert(t.stamps, i, on)
	for instrument, col := range t.columns {
		// close[instrument] is the zero Price, i.e. missing, when absent.
		t.columns[instrument] = slices.Insert(col, i, close[instrument])
	}
	return t
}

// Clone returns an independent deep copy of the table.
func (t *Table) Clone() *Table {
	nt := &Table{
		stamps:  slices.Clone(t.stamps),
		columns: make(map[string][]Price, len(t.columns)),
	}
	for instrument, col := range t.columns {
		nt.columns[instrument] = slices.Clone(col)
	}
	return nt
}
