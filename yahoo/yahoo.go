// Package yahoo implements a market-data provider over the Yahoo Finance
// v8 chart API. One chart request is issued per symbol and the results
// are merged into a single table on a shared timestamp axis.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/evrardb/marketwatch"
)

const defaultBaseURL = "https://query2.finance.yahoo.com"

// Client fetches close prices from Yahoo Finance. The zero value is not
// usable; call New.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

// New returns a client against the public Yahoo Finance endpoint.
func New() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    defaultBaseURL,
	}
}

// chartResponse mirrors the part of the v8 chart payload we read.
// A close is null on non-trading days, which maps to a missing price.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch implements marketwatch.Provider.
func (c *Client) Fetch(ctx context.Context, req marketwatch.Request) (*marketwatch.Table, error) {
	table := marketwatch.NewTable()
	for _, symbol := range req.Instruments {
		if err := c.fetchSymbol(ctx, table, symbol, req.Interval, req.Period); err != nil {
			return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
		}
	}
	return table, nil
}

func (c *Client) fetchSymbol(ctx context.Context, table *marketwatch.Table, symbol, interval, period string) error {
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		c.BaseURL, url.PathEscape(symbol), url.QueryEscape(interval), url.QueryEscape(period))
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	hreq.Header.Set("User-Agent", "marketwatch/1.0")

	resp, err := c.HTTPClient.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}
	if e := payload.Chart.Error; e != nil {
		return fmt.Errorf("%s: %s", e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return fmt.Errorf("no result")
	}
	r := payload.Chart.Result[0]
	if len(r.Timestamp) == 0 || len(r.Indicators.Quote) == 0 {
		return fmt.Errorf("empty series")
	}
	closes := r.Indicators.Quote[0].Close
	for i, ts := range r.Timestamp {
		p := marketwatch.Missing()
		if i < len(closes) && closes[i] != nil {
			p = marketwatch.P(*closes[i])
		}
		table.Append(time.Unix(ts, 0).UTC(), map[string]marketwatch.Price{symbol: p})
	}
	return nil
}
