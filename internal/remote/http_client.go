package remote

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/logging"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// MessagePageNotFound is the remote's message for an unknown route.
const MessagePageNotFound = "Page not found"

// HTTPStatusError is a non-2xx response. It is always reported wrapped in an
// UNREACHABLE error.
type HTTPStatusError struct {
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// ClientOptions configures an HTTPClient.
type ClientOptions struct {
	// HTTPClient overrides the default client (timeout from Timeout)
	HTTPClient *http.Client

	// Timeout bounds one HTTP attempt. Defaults to 15s.
	Timeout time.Duration

	// MaxRetries bounds retries of transient failures. Defaults to 3; negative disables.
	// Save and Duplicate are only retried when the request never left the client.
	MaxRetries int

	// InitialInterval and MaxInterval shape the exponential backoff.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	Logger *slog.Logger
}

// HTTPClient implements Gateway over the JSON task protocol: every call is a
// POST of {"task": ..., ...} to one endpoint.
type HTTPClient struct {
	endpoint        string
	httpClient      *http.Client
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	log             *slog.Logger
}

var _ Gateway = (*HTTPClient)(nil)
var _ Pinger = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the task endpoint at endpoint.
func NewHTTPClient(endpoint string, opts ClientOptions) *HTTPClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := 3
	if opts.MaxRetries != 0 {
		maxRetries = opts.MaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	initial := opts.InitialInterval
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	maxInterval := opts.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 2 * time.Second
	}
	return &HTTPClient{
		endpoint:        strings.TrimSpace(endpoint),
		httpClient:      httpClient,
		maxRetries:      uint64(maxRetries),
		initialInterval: initial,
		maxInterval:     maxInterval,
		log:             logging.OrDiscard(opts.Logger),
	}
}

// List fetches the remote catalog.
func (c *HTTPClient) List(ctx context.Context) ([]PageSummary, error) {
	var reply struct {
		Status  string        `json:"status"`
		Message string        `json:"message"`
		Pages   []PageSummary `json:"pages"`
	}
	if err := c.do(ctx, taskRequest{Task: TaskList}, &reply, idempotent); err != nil {
		return nil, err
	}
	if reply.Status != StatusOK {
		return nil, errors.NewRejected(reply.Message)
	}
	if reply.Pages == nil {
		reply.Pages = []PageSummary{}
	}
	return reply.Pages, nil
}

// GetDocument fetches one page by route.
func (c *HTTPClient) GetDocument(ctx context.Context, route string) (*Document, error) {
	var reply struct {
		Status  string    `json:"status"`
		Message string    `json:"message"`
		Page    *Document `json:"page"`
	}
	if err := c.do(ctx, taskRequest{Task: TaskPage, Route: route}, &reply, idempotent); err != nil {
		return nil, err
	}
	if reply.Status != StatusOK || reply.Page == nil {
		if reply.Message == MessagePageNotFound {
			return nil, errors.NewNotFound(route)
		}
		return nil, errors.NewRejected(reply.Message)
	}
	return reply.Page, nil
}

// Save submits a payload.
func (c *HTTPClient) Save(ctx context.Context, payload draft.Payload) (SaveReply, error) {
	var reply SaveReply
	if err := c.do(ctx, saveRequest{Task: TaskSave, Payload: payload}, &reply, mutating); err != nil {
		return SaveReply{}, err
	}
	return reply, nil
}

// Duplicate copies the page at route under a new route.
func (c *HTTPClient) Duplicate(ctx context.Context, route string) (SaveReply, error) {
	var reply SaveReply
	if err := c.do(ctx, taskRequest{Task: TaskDuplicate, Route: route}, &reply, mutating); err != nil {
		return SaveReply{}, err
	}
	return reply, nil
}

// Ping checks reachability with a single list request and no retries.
func (c *HTTPClient) Ping(ctx context.Context) error {
	var reply struct {
		Status string `json:"status"`
	}
	if c.endpoint == "" {
		return errors.NewUnreachable(stderrors.New("no remote endpoint configured"))
	}
	if err := c.attempt(ctx, mustMarshal(taskRequest{Task: TaskList}), &reply); err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewUnreachable(err)
	}
	return nil
}

type taskRequest struct {
	Task  string `json:"task"`
	Route string `json:"route,omitempty"`
}

type saveRequest struct {
	Task string `json:"task"`
	draft.Payload
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// retryClass selects which failed attempts do may repeat.
type retryClass int

const (
	// idempotent requests are retried on any transient failure.
	idempotent retryClass = iota
	// mutating requests are retried only when the request was never sent,
	// since a lost response may hide an applied write. The queue replays the rest.
	mutating
)

// do posts body and decodes the reply into out, retrying failures allowed by
// class with exponential backoff. Every failure is returned as UNREACHABLE.
func (c *HTTPClient) do(ctx context.Context, body any, out any, class retryClass) error {
	if c.endpoint == "" {
		return errors.NewUnreachable(stderrors.New("no remote endpoint configured"))
	}
	data, err := json.Marshal(body)
	if err != nil {
		return errors.NewInternal(err)
	}

	policy := backoff.WithContext(c.retryPolicy(), ctx)

	op := func() error {
		err := c.attempt(ctx, data, out)
		if err == nil {
			return nil
		}
		if class == mutating && !notSent(err) {
			return backoff.Permanent(err)
		}
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debug("retrying remote request", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewUnreachable(err)
	}
	return nil
}

// retryPolicy returns exponential backoff bounded by maxRetries.
// backoff treats a zero retry limit as unlimited, so zero means StopBackOff.
func (c *HTTPClient) retryPolicy() backoff.BackOff {
	if c.maxRetries == 0 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, c.maxRetries)
}

func (c *HTTPClient) attempt(ctx context.Context, data []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errPayload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payload, &errPayload)
		return &HTTPStatusError{StatusCode: resp.StatusCode, Message: errPayload.Message}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return errors.NewUnreachable(fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

// isTransient reports whether a failed attempt is worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, errors.ErrUnreachable) {
		// malformed body; the remote answered, retrying will not help
		return false
	}
	var statusErr *HTTPStatusError
	if stderrors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded)
}

// notSent reports whether err happened before the request reached the remote:
// a failed dial or name lookup.
func notSent(err error) bool {
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return stderrors.As(err, &opErr) && opErr.Op == "dial"
}
