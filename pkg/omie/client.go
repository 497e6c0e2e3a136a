package omie

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coopernico/coopernico/pkg/common"
	"github.com/coopernico/coopernico/pkg/log"
	"github.com/coopernico/coopernico/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// timestamp layouts seen in day-ahead exports. Zoneless values are taken to
// already be in Lisbon wall time.
var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Client implements Source against an HTTP endpoint serving day-ahead
// marginal price results as a JSON array of row objects. Each row carries a
// start_period timestamp plus one or more named numeric price columns in
// EUR/MWh; column names are not fixed and are resolved downstream.
type Client struct {
	apiURL string
	client *http.Client
}

// Configured sets up flags for the OMIE client and returns the instance.
func Configured() *Client {
	c := &Client{
		client: common.HTTPClient(30 * time.Second),
	}
	apiURL := lflag.String("omie-api-url", "https://omie.coopernico.org/api/v1/marginal-prices", "URL serving day-ahead marginal price results as JSON")

	lflag.Do(func() {
		c.apiURL = *apiURL
	})

	return c
}

// Validate ensures the configuration is valid.
func (c *Client) Validate() error {
	if c.apiURL == "" {
		return fmt.Errorf("omie-api-url is required")
	}
	if _, err := url.Parse(c.apiURL); err != nil {
		return fmt.Errorf("failed to parse omie url (%s): %w", c.apiURL, err)
	}
	return nil
}

// FetchDay implements Source. HTTP 404 is treated as a day without published
// results and returns no rows.
func (c *Client) FetchDay(ctx context.Context, day time.Time) ([]types.MarketRow, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	params := url.Values{}
	params.Set("date", day.In(types.LisbonTZ).Format("2006-01-02"))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	log.Ctx(ctx).DebugContext(ctx, "fetching day-ahead results", slog.String("url", u.String()))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch day-ahead results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// results for this day are not published yet
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omie api returned status: %d", resp.StatusCode)
	}

	var raw []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	rows := make([]types.MarketRow, 0, len(raw))
	for _, item := range raw {
		start, ok := parseStart(item["start_period"])
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse start_period, skipping row", slog.Any("value", item["start_period"]))
			continue
		}

		values := make(map[string]float64, len(item))
		for k, v := range item {
			if k == "start_period" {
				continue
			}
			if f, ok := v.(float64); ok {
				values[k] = f
			}
		}
		rows = append(rows, types.MarketRow{Start: start, Values: values})
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched day-ahead results",
		slog.Int("count", len(rows)),
		slog.String("day", day.Format("2006-01-02")),
	)
	return rows, nil
}

// parseStart parses a start_period value. Layouts without an offset are
// interpreted as Lisbon wall time; layouts with one are converted.
func parseStart(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, types.LisbonTZ); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
