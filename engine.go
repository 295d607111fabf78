package marketwatch

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// aggregatePrecision is the rounding applied to resolved prices inside
// portfolio aggregates. Display rounding happens at serialization.
const aggregatePrecision int32 = 8

// QuoteMode describes how an instrument's close price relates to the
// reporting currency.
type QuoteMode string

const (
	// QuoteReporting marks a price already expressed in the reporting
	// currency; it passes through unchanged.
	QuoteReporting QuoteMode = "reporting"
	// QuoteForeign marks a price expressed in the foreign currency; it is
	// divided by the FX rate.
	QuoteForeign QuoteMode = "foreign"
	// QuoteInverse marks a price expressing the reporting currency per
	// unit; it is multiplied by the FX rate.
	QuoteInverse QuoteMode = "inverse"
)

// ParseQuoteMode parses a QuoteMode from its configuration spelling.
func ParseQuoteMode(s string) (QuoteMode, error) {
	switch QuoteMode(s) {
	case QuoteReporting, QuoteForeign, QuoteInverse:
		return QuoteMode(s), nil
	default:
		return "", fmt.Errorf("unknown quote mode %q, want reporting, foreign or inverse", s)
	}
}

// Engine computes portfolio-level aggregates over one price table. It is
// a stateless set of pure calculations: the table, the holdings and the
// classification maps are read-only inputs, and calling any operation
// twice yields identical results.
//
// Quantities are the caller's responsibility: negative holdings are not
// rejected but make valuations meaningless.
type Engine struct {
	table      *Table
	holdings   map[string]Quantity
	categories map[string]string
	quotes     map[string]QuoteMode
	fx         string // the FX-rate instrument, e.g. "EURUSD=X"
	cur        string // reporting currency code
}

// NewEngine returns an engine over the given table and portfolio
// configuration.
func NewEngine(table *Table, cfg *Config) *Engine {
	return &Engine{
		table:      table,
		holdings:   cfg.Holdings,
		categories: cfg.Categories,
		quotes:     cfg.Quotes,
		fx:         cfg.FXInstrument,
		cur:        cfg.ReportingCurrency,
	}
}

// instruments returns the held instruments in lexical order, for
// deterministic iteration.
func (e *Engine) instruments() []string {
	return sortedKeys(e.holdings)
}

func (e *Engine) category(instrument string) string {
	if c, ok := e.categories[instrument]; ok && c != "" {
		return c
	}
	return "uncategorized"
}

// rate getters, passed to convert so that the FX series is only resolved
// for instruments that actually need conversion.

func (e *Engine) lastFX() (decimal.Decimal, error) {
	_, rate, err := e.table.LastValid(e.fx, aggregatePrecision)
	return rate, err
}

func (e *Engine) horizonFX(h Horizon) func() (decimal.Decimal, error) {
	return func() (decimal.Decimal, error) {
		_, rate, err := e.table.NearTarget(e.fx, h, aggregatePrecision)
		return rate, err
	}
}

func (e *Engine) startFX(start time.Time) func() (decimal.Decimal, error) {
	return func() (decimal.Decimal, error) {
		rate, ok := e.table.NearestAt(e.fx, start)
		if !ok {
			return decimal.Decimal{}, fmt.Errorf("%s: %w", e.fx, ErrNoValidPrice)
		}
		return rate, nil
	}
}

// convert turns a raw close price into the reporting currency according
// to the instrument's quote mode. Unclassified instruments fail with
// ErrUnsupportedInstrument rather than silently defaulting. A zero FX
// rate fails both converting modes: dividing by it is undefined, and
// multiplying by it would fabricate a zero value.
func (e *Engine) convert(instrument string, price decimal.Decimal, rate func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	switch e.quotes[instrument] {
	case QuoteReporting:
		return price, nil
	case QuoteForeign:
		r, err := rate()
		if err != nil {
			return decimal.Decimal{}, err
		}
		if r.IsZero() {
			return decimal.Decimal{}, fmt.Errorf("%s rate for %s: %w", e.fx, instrument, ErrDivisionUndefined)
		}
		return price.Div(r), nil
	case QuoteInverse:
		r, err := rate()
		if err != nil {
			return decimal.Decimal{}, err
		}
		if r.IsZero() {
			return decimal.Decimal{}, fmt.Errorf("%s rate for %s: %w", e.fx, instrument, ErrDivisionUndefined)
		}
		return price.Mul(r), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%s: %w", instrument, ErrUnsupportedInstrument)
	}
}

// Valuation is the current value of the portfolio in the reporting
// currency, with a per-instrument breakdown.
type Valuation struct {
	Total     Money
	Breakdown map[string]Money
}

func (v *Valuation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("total", v.Total)
	w.Append("breakdown", v.Breakdown)
	return w.MarshalJSON()
}

// Valuation resolves the last valid price of every holding, converts it
// into the reporting currency and multiplies by the held quantity. Any
// holding without a resolvable price, or without a currency
// classification, fails the whole valuation.
func (e *Engine) Valuation() (*Valuation, error) {
	total := M(0, e.cur)
	breakdown := make(map[string]Money, len(e.holdings))
	for _, instrument := range e.instruments() {
		_, price, err := e.table.LastValid(instrument, aggregatePrecision)
		if err != nil {
			return nil, err
		}
		value, err := e.convert(instrument, price, e.lastFX)
		if err != nil {
			return nil, err
		}
		m := M(value, e.cur).Mul(e.holdings[instrument])
		breakdown[instrument] = m
		total = total.Add(m)
	}
	return &Valuation{Total: total, Breakdown: breakdown}, nil
}

// PerformanceByHorizon compares the portfolio's current value against its
// value one horizon ago, per horizon, using the contemporaneous FX rate
// at each end. The change is rounded to 2 digits; a horizon whose past
// total is zero maps to nil (undefined), never to a division by zero.
func (e *Engine) PerformanceByHorizon(horizons ...Horizon) (map[Horizon]*Percent, error) {
	out := make(map[Horizon]*Percent, len(horizons))
	for _, h := range horizons {
		now, past := M(0, e.cur), M(0, e.cur)
		for _, instrument := range e.instruments() {
			qty := e.holdings[instrument]
			_, lastP, err := e.table.LastValid(instrument, aggregatePrecision)
			if err != nil {
				return nil, err
			}
			_, pastP, err := e.table.NearTarget(instrument, h, aggregatePrecision)
			if err != nil {
				return nil, err
			}
			nowV, err := e.convert(instrument, lastP, e.lastFX)
			if err != nil {
				return nil, err
			}
			pastV, err := e.convert(instrument, pastP, e.horizonFX(h))
			if err != nil {
				return nil, err
			}
			now = now.Add(M(nowV, e.cur).Mul(qty))
			past = past.Add(M(pastV, e.cur).Mul(qty))
		}
		if past.IsZero() {
			out[h] = nil
			continue
		}
		p := roundPercent(100*now.Sub(past).AsFloat()/past.AsFloat(), 2)
		out[h] = &p
	}
	return out, nil
}

// Growth holds the start and end values of a group of holdings and the
// derived figures. Return and Annualized are nil when the start value
// makes them undefined (zero or negative).
type Growth struct {
	Start      Money
	End        Money
	Return     *Percent
	Annualized *Percent
}

func (g Growth) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("start", g.Start)
	w.Append("end", g.End)
	w.Append("performanceSinceStart", g.Return)
	w.Append("annualizedReturn", g.Annualized)
	return w.MarshalJSON()
}

// SinceReport is the portfolio performance since a start date: the total,
// a per-category breakdown, and the holdings that had to be skipped
// because their price or FX rate could not be resolved at one end.
type SinceReport struct {
	Total      Growth
	ByCategory map[string]Growth
	Skipped    []string
}

func (r *SinceReport) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("total", r.Total)
	w.Append("byCategory", r.ByCategory)
	w.Append("skipped", r.Skipped)
	return w.MarshalJSON()
}

// PerformanceSinceDate values every holding at its nearest valid price to
// start and at its last valid price, converts both ends with the FX rate
// of the respective date, and reports growth and annualized return for
// the total and per category.
//
// A holding is skipped, recorded and excluded from both ends when its
// current price, its start price, or a needed FX rate is unresolvable, or
// when the start FX rate is zero. A missing currency classification is
// fatal, never a skip.
func (e *Engine) PerformanceSinceDate(start time.Time) (*SinceReport, error) {
	days := 1
	if n := e.table.Len(); n > 0 {
		if d := int(e.table.Stamp(n-1).Sub(start).Hours() / 24); d > 1 {
			days = d
		}
	}

	type bucket struct{ now, past Money }
	byCat := make(map[string]*bucket)
	totalNow, totalPast := M(0, e.cur), M(0, e.cur)
	skipped := []string{}

	for _, instrument := range e.instruments() {
		qty := e.holdings[instrument]

		_, lastP, err := e.table.LastValid(instrument, aggregatePrecision)
		if err != nil {
			skipped = append(skipped, instrument)
			continue
		}
		startP, ok := e.table.NearestAt(instrument, start)
		if !ok {
			skipped = append(skipped, instrument)
			continue
		}
		nowV, err := e.convert(instrument, lastP, e.lastFX)
		if err != nil {
			if errors.Is(err, ErrUnsupportedInstrument) {
				return nil, err
			}
			skipped = append(skipped, instrument)
			continue
		}
		pastV, err := e.convert(instrument, startP, e.startFX(start))
		if err != nil {
			if errors.Is(err, ErrUnsupportedInstrument) {
				return nil, err
			}
			skipped = append(skipped, instrument)
			continue
		}

		now := M(nowV, e.cur).Mul(qty)
		past := M(pastV, e.cur).Mul(qty)
		totalNow = totalNow.Add(now)
		totalPast = totalPast.Add(past)

		cat := e.category(instrument)
		b, ok := byCat[cat]
		if !ok {
			b = &bucket{now: M(0, e.cur), past: M(0, e.cur)}
			byCat[cat] = b
		}
		b.now = b.now.Add(now)
		b.past = b.past.Add(past)
	}

	report := &SinceReport{
		Total:      growth(totalPast, totalNow, days),
		ByCategory: make(map[string]Growth, len(byCat)),
		Skipped:    skipped,
	}
	for cat, b := range byCat {
		report.ByCategory[cat] = growth(b.past, b.now, days)
	}
	return report, nil
}

// growth derives the performance figures for one group of holdings over
// the given number of calendar days.
func growth(past, now Money, days int) Growth {
	g := Growth{Start: past, End: now}
	if !past.IsPositive() {
		return g
	}
	ret := roundPercent(100*now.Sub(past).AsFloat()/past.AsFloat(), 2)
	ann := roundPercent(100*(math.Pow(now.AsFloat()/past.AsFloat(), 365.0/float64(days))-1), 2)
	g.Return, g.Annualized = &ret, &ann
	return g
}

// Allocation breaks the current portfolio value down by category, in
// absolute amounts and as percentages of the total, with the holdings
// that could not be valued.
type Allocation struct {
	Amounts  map[string]Money
	Percents map[string]Percent
	Total    Money
	Skipped  []string
}

func (a *Allocation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("total", a.Total)
	w.Append("allocationAbsolute", a.Amounts)
	w.Append("allocationPercent", a.Percents)
	w.Append("skipped", a.Skipped)
	return w.MarshalJSON()
}

// AllocationByCategory sums the current value of every resolvable holding
// per category and expresses each category as a percentage of the grand
// total, rounded to 2 digits. A holding whose price or FX rate cannot be
// resolved is skipped and recorded, never valued at zero; a missing
// currency classification is fatal. It fails with ErrEmptyPortfolio when
// the resolvable total is zero, since the percentages would be undefined.
func (e *Engine) AllocationByCategory() (*Allocation, error) {
	total := M(0, e.cur)
	amounts := make(map[string]Money)
	skipped := []string{}
	for _, instrument := range e.instruments() {
		_, price, err := e.table.LastValid(instrument, aggregatePrecision)
		if err != nil {
			skipped = append(skipped, instrument)
			continue
		}
		value, err := e.convert(instrument, price, e.lastFX)
		if err != nil {
			if errors.Is(err, ErrUnsupportedInstrument) {
				return nil, err
			}
			skipped = append(skipped, instrument)
			continue
		}
		m := M(value, e.cur).Mul(e.holdings[instrument])
		cat := e.category(instrument)
		if prev, ok := amounts[cat]; ok {
			amounts[cat] = prev.Add(m)
		} else {
			amounts[cat] = m
		}
		total = total.Add(m)
	}
	if total.IsZero() {
		return nil, ErrEmptyPortfolio
	}
	percents := make(map[string]Percent, len(amounts))
	for cat, m := range amounts {
		percents[cat] = roundPercent(100*m.AsFloat()/total.AsFloat(), 2)
	}
	return &Allocation{Amounts: amounts, Percents: percents, Total: total, Skipped: skipped}, nil
}
