// Package webhook delivers submitted booking requests to the shop's
// CRM automation endpoint. Delivery is best effort: the user reaches
// the confirmation screen whether or not the webhook accepted the call.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tallerbot/internal/form"
	"tallerbot/internal/metrics"
)

// DefaultTimeout bounds a single delivery attempt. A timeout is treated
// like any other delivery failure.
const DefaultTimeout = 10 * time.Second

// BusinessTag and AppTag identify the originating business and app in
// every payload.
const (
	BusinessTag = "taller-lira-motors"
	AppTag      = "tallerbot"
)

// DeliveryError is a webhook call the endpoint rejected. Status is zero
// for transport-level failures.
type DeliveryError struct {
	Status int
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("webhook delivery failed: http %d", e.Status)
	}
	return fmt.Sprintf("webhook delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Payload is the fixed JSON shape posted to the webhook.
type Payload struct {
	RequestID   string `json:"request_id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Service     string `json:"service"` // human-readable label
	Date        string `json:"date"`
	Time        string `json:"time"`
	Comments    string `json:"comments"`
	AcceptTerms bool   `json:"acceptTerms"`
	Timestamp   string `json:"timestamp"` // ISO-8601
	Business    string `json:"business"`
	App         string `json:"app"`
}

// Client posts booking requests to a single webhook URL.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zerolog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-delivery timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithClock replaces the wall clock used for payload timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient constructs a webhook client. Outbound calls are rate
// limited to protect the automation endpoint.
func NewClient(url string, logger *zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildPayload assembles the outbound payload from a validated request.
// The machine service value is replaced by its human-readable label.
func (c *Client) BuildPayload(req *form.Request) Payload {
	return Payload{
		RequestID:   uuid.New().String(),
		Name:        req.Name,
		Phone:       req.NormalizedPhone(),
		Email:       req.Email,
		Service:     req.ServiceLabel(),
		Date:        req.Date,
		Time:        req.Time,
		Comments:    req.Comments,
		AcceptTerms: req.AcceptTerms,
		Timestamp:   c.now().Format(time.RFC3339),
		Business:    BusinessTag,
		App:         AppTag,
	}
}

// Send posts one payload. Any non-2xx status or transport error is a
// DeliveryError. The response body is never consumed.
func (c *Client) Send(ctx context.Context, p Payload) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &DeliveryError{Err: err}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{Status: resp.StatusCode}
	}
	return nil
}

// Notify delivers a request fire-and-forget: failures are logged and
// swallowed so a CRM outage never blocks the confirmation screen.
func (c *Client) Notify(ctx context.Context, req *form.Request) {
	if c.url == "" {
		c.logger.Debug().Msg("webhook url not configured, skipping delivery")
		return
	}

	payload := c.BuildPayload(req)
	if err := c.Send(ctx, payload); err != nil {
		metrics.IncWebhookDelivery("failure")
		c.logger.Error().Err(err).
			Str("request_id", payload.RequestID).
			Str("date", payload.Date).
			Str("time", payload.Time).
			Msg("webhook delivery failed")
		return
	}

	metrics.IncWebhookDelivery("success")
	c.logger.Info().
		Str("request_id", payload.RequestID).
		Str("date", payload.Date).
		Str("time", payload.Time).
		Msg("webhook delivered")
}
