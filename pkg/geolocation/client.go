package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/sessiontrack/pkg/clientip"
)

// Locator resolves an IP address to a display location.
type Locator interface {
	Locate(ctx context.Context, ip string) (string, error)
}

// Client calls the ipgeolocation.io ipgeo endpoint.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
	timeout time.Duration
	breaker *breaker
}

type ClientOption func(*Client)

// WithHTTPClient swaps the transport, e.g. for tests or proxies.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		breaker: newBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown, time.Now),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = 3 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ipgeoResponse struct {
	City        string `json:"city"`
	CountryName string `json:"country_name"`
	Message     string `json:"message"`
}

// Locate returns "<city>, <country_name>". Private and loopback addresses are
// rejected without a network call. Errors wrap ErrGeoLookup.
func (c *Client) Locate(ctx context.Context, ip string) (string, error) {
	if c.apiKey == "" {
		return "", errors.Join(ErrGeoLookup, ErrMissingAPIKey)
	}
	if _, err := netip.ParseAddr(ip); err != nil {
		return "", errors.Join(ErrGeoLookup, ErrInvalidIP)
	}
	if !clientip.IsPublic(ip) {
		return "", errors.Join(ErrGeoLookup, ErrPrivateIP)
	}
	if !c.breaker.allow() {
		return "", errors.Join(ErrGeoLookup, ErrCircuitOpen)
	}

	loc, err := c.lookup(ctx, ip)
	if err != nil {
		c.breaker.failure()
		return "", errors.Join(ErrGeoLookup, err)
	}
	c.breaker.success()
	return loc, nil
}

func (c *Client) lookup(ctx context.Context, ip string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("ip", ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ipgeo?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.Join(ErrTimeout, err)
		}
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.Join(ErrTimeout, err)
		}
		return "", err
	}

	var payload ipgeoResponse
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && payload.Message != "" {
			return "", fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, payload.Message)
		}
		return "", fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if decodeErr != nil {
		return "", errors.Join(ErrMalformedPayload, decodeErr)
	}

	city := strings.TrimSpace(payload.City)
	country := strings.TrimSpace(payload.CountryName)
	if city == "" || country == "" {
		return "", fmt.Errorf("%w: city and country_name are required", ErrMalformedPayload)
	}
	return city + ", " + country, nil
}
