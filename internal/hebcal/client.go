// Package hebcal is a small client for the Hebcal REST API, used as the
// specialized halachic calendar behind zmanim and Hebrew date rendering.
package hebcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the public Hebcal endpoint.
const DefaultBaseURL = "https://www.hebcal.com"

// ErrNotFound is returned when a requested time is missing from a response.
var ErrNotFound = errors.New("hebcal: value not present")

// Client talks to the Hebcal API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("component", "hebcal_client"),
	}
}

// ZmanimResponse is the subset of the /zmanim answer the bot consumes.
type ZmanimResponse struct {
	Date  string            `json:"date"`
	Times map[string]string `json:"times"`
}

// Time parses the named time. Hebcal omits or nulls entries the sun never
// reaches, which is reported as ErrNotFound.
func (z *ZmanimResponse) Time(key string) (time.Time, error) {
	raw, ok := z.Times[key]
	if !ok || raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("hebcal: invalid time %q for %s: %w", raw, key, err)
	}
	return t, nil
}

// HebrewDate is the /converter answer for a Gregorian date.
type HebrewDate struct {
	Year   int    `json:"hy"`
	Month  string `json:"hm"`
	Day    int    `json:"hd"`
	Hebrew string `json:"hebrew"`
}

// Zmanim fetches the halachic times for date at the given coordinates.
func (c *Client) Zmanim(ctx context.Context, latitude, longitude float64, tzid string, date time.Time) (*ZmanimResponse, error) {
	q := url.Values{}
	q.Set("cfg", "json")
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("tzid", tzid)
	q.Set("date", date.Format(time.DateOnly))

	var resp ZmanimResponse
	if err := c.get(ctx, "/zmanim", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Convert returns the Hebrew calendar date for the Gregorian date.
func (c *Client) Convert(ctx context.Context, date time.Time) (*HebrewDate, error) {
	q := url.Values{}
	q.Set("cfg", "json")
	q.Set("g2h", "1")
	q.Set("strict", "1")
	q.Set("date", date.Format(time.DateOnly))

	var resp HebrewDate
	if err := c.get(ctx, "/converter", q, &resp); err != nil {
		return nil, err
	}
	if resp.Hebrew == "" {
		return nil, fmt.Errorf("hebcal: empty hebrew date for %s", date.Format(time.DateOnly))
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) (err error) {
	endpoint := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create hebcal request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hebcal request %s failed: %w", path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close hebcal response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hebcal %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode hebcal %s response: %w", path, err)
	}
	c.log.DebugContext(ctx, "Hebcal request succeeded", "path", path, "date", q.Get("date"))
	return nil
}
