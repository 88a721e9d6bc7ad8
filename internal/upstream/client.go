package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout bounds every outbound call.
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 4 << 20
)

// Config holds the three source endpoints.
type Config struct {
	UsersURL      string
	AddressURL    string
	CreditCardURL string
	Timeout       time.Duration
}

// RequestError is returned when an endpoint cannot be reached, answers with a
// non-2xx status, or its circuit breaker is open. StatusCode is 0 when no
// response was received.
type RequestError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client fetches records from the users, address and credit card sources.
// Only the users endpoint sits behind a circuit breaker: it is fetched once per
// run and retried as a whole. The per-user endpoints get one request per user.
type Client struct {
	cfg   Config
	http  *http.Client
	users *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		users: newBreaker("upstream-users"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	var st gobreaker.Settings
	st.Name = name
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}
	return gobreaker.NewCircuitBreaker[[]byte](st)
}

// FetchUsers returns the raw records of the users endpoint, one element per user,
// so that a malformed record can be rejected on its own.
func (c *Client) FetchUsers(ctx context.Context) ([]json.RawMessage, error) {
	body, err := c.users.Execute(func() ([]byte, error) {
		return c.get(ctx, c.cfg.UsersURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &RequestError{URL: c.cfg.UsersURL, Err: err}
	}
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return records, nil
}

// FetchAddress returns one random address. A JSON null body is a decode error.
func (c *Client) FetchAddress(ctx context.Context) (*Address, error) {
	body, err := c.get(ctx, c.cfg.AddressURL)
	if err != nil {
		return nil, err
	}
	var a *Address
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if a == nil {
		return nil, errors.New("decode address: empty payload")
	}
	return a, nil
}

// FetchCreditCard returns one random credit card. A JSON null body is a decode error.
func (c *Client) FetchCreditCard(ctx context.Context) (*CreditCard, error) {
	body, err := c.get(ctx, c.cfg.CreditCardURL)
	if err != nil {
		return nil, err
	}
	var cc *CreditCard
	if err := json.Unmarshal(body, &cc); err != nil {
		return nil, fmt.Errorf("decode credit card: %w", err)
	}
	if cc == nil {
		return nil, errors.New("decode credit card: empty payload")
	}
	return cc, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &RequestError{URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RequestError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return b, nil
}
