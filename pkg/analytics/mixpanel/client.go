// Package mixpanel implements the analytics.Provider interface against the
// Mixpanel raw event export API.
package mixpanel

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/ghostwalk/pkg/analytics"
)

// DefaultBaseURL targets the EU residency cluster, matching where the
// recordings this tool grew up on live.
const DefaultBaseURL = "https://data-eu.mixpanel.com"

const exportPath = "/api/2.0/export"

var _ analytics.Provider = (*Client)(nil)

// Client downloads raw events through the Mixpanel export API using
// service-account credentials.
type Client struct {
	config     *analytics.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      *analytics.RetryPolicy
}

// New creates a Mixpanel export client with the given configuration.
func New(config *analytics.Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		// The raw export API is aggressively rate limited; pace requests
		// instead of burning the retry budget.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		retry:   analytics.DefaultRetryPolicy(),
	}
}

// Export downloads the raw records matching params, preserving the order
// the provider streamed them in. Transient transport failures are retried;
// anything else surfaces immediately.
func (c *Client) Export(ctx context.Context, params analytics.Params) ([]analytics.RawRecord, error) {
	query := url.Values{}
	for name, value := range params {
		query.Set(name, value)
	}
	query.Set("project_id", c.config.ProjectID)

	endpoint := c.config.BaseURL + exportPath + "?" + query.Encode()

	var records []analytics.RawRecord
	err := c.retry.Execute(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", c.authorization())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("export API error (status %d): %s", resp.StatusCode, string(body))
		}

		records, err = decodeExport(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// authorization encodes the service-account credentials for basic auth.
func (c *Client) authorization() string {
	creds := c.config.Username + ":" + c.config.Secret
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// decodeExport parses the newline-delimited JSON body of an export
// response into raw records.
func decodeExport(body io.Reader) ([]analytics.RawRecord, error) {
	var records []analytics.RawRecord

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record analytics.RawRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("decoding export line: %w", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export response: %w", err)
	}
	return records, nil
}
