// Package supabase is the data backend adapter: PostgREST tables and RPCs,
// GoTrue auth and edge functions of the hosted Supabase project.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/resilience"
)

var tracer = otel.Tracer("supabase")

const (
	preferRepresentation = "return=representation"
	preferMinimal        = "return=minimal"
)

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	bulkhead       *resilience.Bulkhead
	logger         *zap.Logger
	onError        func(service string)
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		logger:         logger,
	}
}

// OnExternalError registers a callback invoked for every failed call
// (wired to the external-errors counter).
func (c *Client) OnExternalError(fn func(service string)) {
	c.onError = fn
}

// Ping checks that PostgREST answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "subscription_plans?select=id&limit=1", nil, "")
	return err
}

// doRequest executes an authenticated request to Supabase PostgREST and
// returns the body of a 2xx answer. Other statuses become *domain.ErrRemote;
// client errors are marked permanent so they are not retried.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var reader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, resilience.Permanent(fmt.Errorf("encode payload: %w", err))
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		remote := &domain.ErrRemote{Status: resp.StatusCode, Body: string(body)}
		if isClientError(resp.StatusCode) {
			return nil, resilience.Permanent(remote)
		}
		return nil, remote
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

// execute runs a read behind the bulkhead, circuit breaker and retry policy
// and maps the outcome to domain errors.
func (c *Client) execute(ctx context.Context, op string, fn func() error) error {
	return c.run(ctx, op, true, fn)
}

// executeWrite runs an insert or update exactly once. A write whose reply
// was lost may already be applied; replaying it would duplicate the row or
// turn a conditional update into a false conflict.
func (c *Client) executeWrite(ctx context.Context, op string, fn func() error) error {
	return c.run(ctx, op, false, fn)
}

func (c *Client) run(ctx context.Context, op string, retry bool, fn func() error) error {
	ctx, span := tracer.Start(ctx, "Supabase."+op)
	defer span.End()

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: "supabase/" + op}
	}
	defer c.bulkhead.Release()

	_, err := c.cb.Execute(func() (any, error) {
		if !retry {
			return nil, fn()
		}
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	if err == nil {
		return nil
	}

	mapped := c.mapError(op, err)
	span.RecordError(mapped)
	span.SetStatus(codes.Error, mapped.Error())
	span.SetAttributes(attribute.String("supabase.error", fmt.Sprintf("%T", mapped)))
	return mapped
}

func (c *Client) mapError(op string, err error) error {
	var (
		notFound   *domain.ErrNotFound
		conflict   *domain.ErrConflict
		validation *domain.ErrValidation
		remote     *domain.ErrRemote
	)

	switch {
	case errors.As(err, &notFound):
		return notFound
	case errors.As(err, &conflict):
		return conflict
	case errors.As(err, &validation):
		return validation
	case resilience.IsCircuitOpen(err):
		c.reportError(op)
		return &domain.ErrCircuitOpen{Service: "supabase"}
	case errors.Is(err, context.DeadlineExceeded):
		c.reportError(op)
		return &domain.ErrTimeout{Operation: "supabase/" + op}
	case errors.As(err, &remote) && remote.Status == http.StatusConflict:
		return &domain.ErrConflict{Message: "duplicate or conflicting record"}
	}

	c.reportError(op)
	return &domain.ErrExternalService{Service: "supabase/" + op, Err: err}
}

func (c *Client) reportError(op string) {
	if c.onError != nil {
		c.onError("supabase/" + op)
	}
}

// isClientError reports 4xx statuses that another attempt would not fix.
func isClientError(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}
	return status >= 400 && status < 500
}

// --- typed helpers over doRequest ---

func selectRows[T any](ctx context.Context, c *Client, op string, q *query) ([]T, error) {
	var rows []T
	err := c.execute(ctx, op, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, q.String(), nil, "")
		if err != nil {
			return err
		}
		rows, err = decodeRows[T](body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func selectOne[T any](ctx context.Context, c *Client, op, resource, id string, q *query) (*T, error) {
	rows, err := selectRows[T](ctx, c, op, q.limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return &rows[0], nil
}

func insertRows[T any](ctx context.Context, c *Client, op, table string, payload any) ([]T, error) {
	var rows []T
	err := c.executeWrite(ctx, op, func() error {
		body, err := c.doRequest(ctx, http.MethodPost, table, payload, preferRepresentation)
		if err != nil {
			return err
		}
		rows, err = decodeRows[T](body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func insertOne[T any](ctx context.Context, c *Client, op, table string, payload any) (*T, error) {
	rows, err := insertRows[T](ctx, c, op, table, payload)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrExternalService{Service: "supabase/" + op, Err: errors.New("insert returned no row")}
	}
	return &rows[0], nil
}

// patchRows updates the rows matched by q and returns them. An empty result
// means the filter matched nothing.
func patchRows[T any](ctx context.Context, c *Client, op string, q *query, updates map[string]any) ([]T, error) {
	var rows []T
	err := c.executeWrite(ctx, op, func() error {
		body, err := c.doRequest(ctx, http.MethodPatch, q.String(), updates, preferRepresentation)
		if err != nil {
			return err
		}
		rows, err = decodeRows[T](body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func deleteRows(ctx context.Context, c *Client, op string, q *query) error {
	return c.execute(ctx, op, func() error {
		_, err := c.doRequest(ctx, http.MethodDelete, q.String(), nil, preferMinimal)
		return err
	})
}

func decodeRows[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || string(body) == "[]" {
		return []T{}, nil
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode rows: %w", err))
	}
	return rows, nil
}
