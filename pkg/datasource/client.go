package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/transitlens/transitlens/pkg/transit"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
)

type Config struct {
	BaseURL     string
	AccessToken string

	// Timeout bounds each individual request; the overall fetch is also
	// bounded by the caller's context.
	Timeout    time.Duration
	MaxRetries uint64
}

// Client fetches vehicle and stop snapshots from the JSON backend. It
// retries transient failures with exponential backoff but always
// resolves within the caller's context deadline.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (c *Client) FetchVehicles(ctx context.Context, bounds *transit.BoundingBox) ([]transit.Vehicle, error) {
	endpoint := c.config.BaseURL + "/vehicles"
	if bounds != nil {
		query := url.Values{}
		query.Set("minLat", formatCoordinate(bounds.MinLat))
		query.Set("maxLat", formatCoordinate(bounds.MaxLat))
		query.Set("minLng", formatCoordinate(bounds.MinLng))
		query.Set("maxLng", formatCoordinate(bounds.MaxLng))
		endpoint += "?" + query.Encode()
	}

	var vehicles []transit.Vehicle
	if err := c.get(ctx, endpoint, &vehicles); err != nil {
		return nil, err
	}

	return vehicles, nil
}

func (c *Client) FetchStops(ctx context.Context) ([]transit.Stop, error) {
	var stops []transit.Stop
	if err := c.get(ctx, c.config.BaseURL+"/stops", &stops); err != nil {
		return nil, err
	}

	return stops, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	operation := func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.config.AccessToken != "" {
			request.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
		}

		response, err := c.httpClient.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status %d from %s", response.StatusCode, endpoint)
			if response.StatusCode >= 400 && response.StatusCode < 500 && response.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}

			return err
		}

		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
			return backoff.Permanent(err)
		}

		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return backoff.Permanent(err)
		}

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.config.MaxRetries), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		log.Debug().Err(err).Str("endpoint", endpoint).Msg("Fetch failed")
		return err
	}

	return nil
}

func formatCoordinate(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
