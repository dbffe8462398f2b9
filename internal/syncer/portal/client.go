package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/stocksync-backend/pkg/config"
	apperrors "github.com/angelmondragon/stocksync-backend/pkg/errors"
)

const retryBaseDelay = 500 * time.Millisecond

// client is the shared HTTP plumbing for both portal adapters: API-key
// auth, timeouts and exponential backoff on transport errors and 5xx.
type client struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	retryMax     uint64
	http         *http.Client
}

func newClient(cfg config.PortalConfig) (*client, error) {
	if cfg.BaseURL == "" {
		return nil, apperrors.New(apperrors.CodeInternal, "portal: base url is required")
	}
	retryMax := cfg.RetryMax
	if retryMax <= 0 {
		retryMax = 3
	}
	return &client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		apiKeyHeader: cfg.APIKeyHeader,
		retryMax:     uint64(retryMax),
		http:         &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// getJSON fetches path with query params and decodes the body into out.
// 5xx and transport errors are retried with exponential backoff; 4xx are
// terminal.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	backoff := retry.WithMaxRetries(c.retryMax, retry.NewExponential(retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set(c.apiKeyHeader, c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			_, _ = io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(fmt.Errorf("portal: %s returned %d", path, resp.StatusCode))
		}
		if resp.StatusCode == http.StatusNotFound {
			return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("portal: %s not found", path))
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return apperrors.New(apperrors.CodeDependency,
				fmt.Sprintf("portal: %s returned %d: %s", path, resp.StatusCode, string(body)))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, fmt.Sprintf("portal: decoding %s response", path))
		}
		return nil
	})
}

func listQuery(limit int, direction Direction) url.Values {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if direction == "" {
		direction = NewestFirst
	}
	query.Set("direction", string(direction))
	return query
}
