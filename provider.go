package marketwatch

import (
	"context"
	"crypto/sha1"
	"fmt"
	"slices"
	"strings"
)

// Request identifies one provider query: an instrument set, a sampling
// interval and a lookback period, in the provider's own vocabulary
// (e.g. interval "1d", period "2y").
type Request struct {
	Instruments []string
	Interval    string
	Period      string
}

// normalized returns the instrument set sorted and deduplicated, so that
// two requests for the same set compare and hash identically regardless
// of order.
func (r Request) normalized() []string {
	list := slices.Clone(r.Instruments)
	slices.Sort(list)
	return slices.Compact(list)
}

// Key computes a deterministic cache key for the request.
func (r Request) Key() string {
	plain := fmt.Sprintf("%s %s %s", strings.Join(r.normalized(), ","), r.Interval, r.Period)
	return fmt.Sprintf("%x", sha1.Sum([]byte(plain)))
}

// A Provider fetches historical close prices from an upstream market-data
// source. The returned table carries rows aligned on a shared timestamp
// axis, one close price (or missing) per instrument per row. An empty
// result, or a result without a close-price column for a requested
// instrument, is a failure.
type Provider interface {
	Fetch(ctx context.Context, req Request) (*Table, error)
}
