package marketwatch

import "errors"

// Failure taxonomy for price resolution and portfolio aggregation.
// Callers match these with errors.Is; wrapped messages carry the
// instrument or request that failed.
var (
	// ErrFetchFailed reports that all fetch attempts were exhausted and no
	// previously cached snapshot exists to fall back to.
	ErrFetchFailed = errors.New("fetch failed with no cached snapshot")

	// ErrNoValidPrice reports that the entire series for an instrument is
	// missing.
	ErrNoValidPrice = errors.New("no valid price in series")

	// ErrOutOfRange reports that a requested horizon predates the series.
	ErrOutOfRange = errors.New("target date precedes the series")

	// ErrDivisionUndefined reports a zero reference price, making a
	// percentage change undefined.
	ErrDivisionUndefined = errors.New("reference price is zero")

	// ErrEmptyPortfolio reports a portfolio whose total value is zero, so
	// allocation percentages are undefined.
	ErrEmptyPortfolio = errors.New("portfolio total value is zero")

	// ErrUnsupportedInstrument reports an instrument with no currency
	// classification. Silently defaulting would corrupt totals, so this is
	// fail-closed.
	ErrUnsupportedInstrument = errors.New("instrument has no currency classification")
)
