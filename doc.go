// Package marketwatch retrieves historical close prices for a set of
// financial instruments, caches them durably to avoid redundant network
// calls, and derives point-in-time prices, percentage changes and
// portfolio-level reports.
//
// The core functionalities include:
//   - Time Series: an immutable table of per-instrument close prices on a
//     shared timestamp axis, where a price is either a finite value or
//     explicitly missing (non-trading days, holidays).
//   - Fetch Cache: a durable snapshot cache keyed by the requested
//     instrument set, interval and period, with TTL-based invalidation and
//     a bounded retry/backoff path through an external data provider.
//   - Price Resolution: last-valid, near-a-target-date and
//     nearest-to-a-timestamp price lookups that walk past gaps in the
//     series.
//   - Portfolio Engine: valuation, performance over named horizons,
//     since-inception performance with annualized return, and allocation
//     by category, all expressed in a single reporting currency via a
//     designated FX-rate instrument.
//
// This package serves as the foundational logic for the `mw` command-line
// tool.
package marketwatch
