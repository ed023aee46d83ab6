// Package backend is the HTTP JSON client for the messaging backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/raitha-mitra/inbox-sync/internal/model"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
	"github.com/raitha-mitra/inbox-sync/pkg/metrics"
)

const maxBodyBytes = 4 << 20

// Config holds backend connection settings.
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	SessionCookieName  string
	SessionCookie      string
	RateLimit          float64
	Burst              int
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// Client talks to the messaging backend. It never retries on its own;
// callers rely on their next scheduled cycle.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *logger.Logger
}

// New creates a backend client.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if cfg.SessionCookie != "" {
		name := cfg.SessionCookieName
		if name == "" {
			name = "session"
		}
		jar.SetCookies(base, []*http.Cookie{{Name: name, Value: cfg.SessionCookie, Path: "/"}})
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Jar: jar, Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		tracer:  otel.Tracer("github.com/raitha-mitra/inbox-sync/internal/backend"),
		logger:  log.Named("backend"),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "messaging-backend",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsApplicationError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			c.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c, nil
}

// BreakerOpen reports whether calls are currently being short-circuited.
func (c *Client) BreakerOpen() bool {
	return c.breaker.State() == gobreaker.StateOpen
}

// Inbox fetches the viewer's conversation summaries.
func (c *Client) Inbox(ctx context.Context) (*model.InboxResponse, error) {
	var resp model.InboxResponse
	if err := c.do(ctx, "inbox", http.MethodGet, "/api/messages/inbox", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Thread fetches the messages exchanged with userID, oldest first.
func (c *Client) Thread(ctx context.Context, userID int64) (*model.ThreadResponse, error) {
	var resp model.ThreadResponse
	path := "/api/messages/thread/" + strconv.FormatInt(userID, 10)
	if err := c.do(ctx, "thread", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Send posts a message.
func (c *Client) Send(ctx context.Context, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	var resp model.SendMessageResponse
	if err := c.do(ctx, "send", http.MethodPost, "/api/messages/send", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Block blocks userID for the viewer.
func (c *Client) Block(ctx context.Context, userID int64) error {
	path := "/api/messages/block/" + strconv.FormatInt(userID, 10)
	return c.do(ctx, "block", http.MethodPost, path, nil, nil, nil)
}

// MarkRead acknowledges a single received message.
func (c *Client) MarkRead(ctx context.Context, messageID int64) error {
	path := "/api/messages/read/" + strconv.FormatInt(messageID, 10)
	return c.do(ctx, "mark_read", http.MethodPut, path, nil, nil, nil)
}

// SearchUsers queries the user directory.
func (c *Client) SearchUsers(ctx context.Context, query string) (*model.SearchResponse, error) {
	var resp model.SearchResponse
	q := url.Values{"q": []string{query}}
	if err := c.do(ctx, "search", http.MethodGet, "/api/friends/search", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NotificationCounts fetches unread message and pending friend request counts.
func (c *Client) NotificationCounts(ctx context.Context, userID int64) (*model.NotificationCounts, error) {
	var resp model.NotificationCounts
	q := url.Values{"user_id": []string{strconv.FormatInt(userID, 10)}}
	if err := c.do(ctx, "notification_counts", http.MethodGet, "/api/notifications/counts", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "backend."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		),
	)
	defer span.End()

	start := time.Now()
	err := c.execute(ctx, method, path, query, body, out)
	metrics.RecordBackend(endpoint, outcome(err), time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("backend call failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) execute(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("backend rate limiter: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, query, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: empty body", ErrMalformed)
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body model.ErrorResponse
	// A non-JSON error body leaves Message empty and callers fall back.
	_ = json.Unmarshal(data, &body)

	apiErr := APIError{StatusCode: status, Message: body.Error}
	if status == http.StatusTooManyRequests && body.RateLimitExceeded {
		return &RateLimitError{
			APIError:  apiErr,
			Remaining: body.Remaining,
			ResetAt:   time.Unix(body.ResetTime, 0),
		}
	}
	return &apiErr
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case IsApplicationError(err):
		return "rejected"
	default:
		return "error"
	}
}
