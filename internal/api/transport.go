package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// CredentialSource supplies the bearer token read at call time.
type CredentialSource interface {
	Token() (string, bool)
}

type clearer interface {
	Clear()
}

// Options configure a Transport.
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Timeout     time.Duration
	Credentials CredentialSource
	Limiter     *rate.Limiter
	Validator   *validator.Validate

	// ClearOnUnauthorized drops the held credential when the server answers 401.
	// Only honoured when Credentials has a Clear method.
	ClearOnUnauthorized bool
}

// Transport performs JSON requests against one backend. It is safe for
// concurrent use and shared by every resource of that backend.
type Transport struct {
	baseURL             *url.URL
	client              *http.Client
	creds               CredentialSource
	limiter             *rate.Limiter
	validate            *validator.Validate
	clearOnUnauthorized bool
	metrics             Metrics
}

// NewTransport validates opts and builds a Transport.
func NewTransport(opts Options) (*Transport, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute, got %q", opts.BaseURL)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Transport{
		baseURL:             u,
		client:              client,
		creds:               opts.Credentials,
		limiter:             opts.Limiter,
		validate:            opts.Validator,
		clearOnUnauthorized: opts.ClearOnUnauthorized,
	}, nil
}

// Metrics exposes the transport's call counters.
func (t *Transport) Metrics() *Metrics {
	return &t.metrics
}

// Request describes one call relative to the base URL.
type Request struct {
	Method       string
	Segments     []string
	Params       Params
	Body         any
	AuthRequired bool
}

func (r Request) path() string {
	escaped := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if s == "" {
			continue
		}
		escaped = append(escaped, url.PathEscape(s))
	}
	p := "/" + strings.Join(escaped, "/")
	if q := r.Params.Encode(); q != "" {
		p += "?" + q
	}
	return p
}

// Call performs req and decodes a successful body into R.
func Call[R any](ctx context.Context, t *Transport, req Request) (R, error) {
	var out R
	err := t.Do(ctx, req, &out)
	return out, err
}

// Do performs req. When out is non-nil the response body is decoded into it
// and validated; a 204 or empty body is only accepted when out is nil.
func (t *Transport) Do(ctx context.Context, req Request, out any) error {
	logger := NewLogger(ctx)
	path := req.path()
	op := req.Method + " " + path
	start := time.Now()

	err := t.do(ctx, req, path, out)
	t.metrics.record(time.Since(start), err)

	var statusErr *HTTPStatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr):
		logger.LogWarnf(op, "status=%d message=%q", statusErr.Status, statusErr.Message)
	default:
		logger.LogError(op, err)
	}
	return err
}

func (t *Transport) do(ctx context.Context, req Request, path string, out any) error {
	netErr := func(err error) error {
		return &NetworkError{Method: req.Method, Path: path, Err: err}
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return &ValidationError{Reason: "payload is not JSON encodable", Err: err}
		}
		body = bytes.NewReader(data)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return netErr(err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	rid := RequestID(ctx)
	if rid == "" {
		rid = uuid.NewString()
	}
	httpReq.Header.Set(headerRequestID, rid)

	if req.AuthRequired && t.creds != nil {
		if token, ok := t.creds.Token(); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return netErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode == http.StatusUnauthorized && t.clearOnUnauthorized {
			if c, ok := t.creds.(clearer); ok {
				c.Clear()
			}
		}
		return &HTTPStatusError{
			Method:  req.Method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, data),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return netErr(fmt.Errorf("read response: %w", err))
	}

	if out == nil {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return &SchemaError{Path: path, Err: fmt.Errorf("empty body with status %d", resp.StatusCode)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &SchemaError{Path: path, Err: fmt.Errorf("decode JSON: %w", err)}
	}
	if err := t.validateValue(out); err != nil {
		return &SchemaError{Path: path, Err: err}
	}
	return nil
}

// errorMessage prefers the JSON "message" field, then "error".
func errorMessage(status int, data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(data) > 0 && json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("API error: %d", status)
}

// validateValue runs struct validation on a decoded struct or on every
// struct element of a decoded slice.
func (t *Transport) validateValue(v any) error {
	if t.validate == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		return t.validate.Struct(rv.Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			el := rv.Index(i)
			for el.Kind() == reflect.Pointer && !el.IsNil() {
				el = el.Elem()
			}
			if el.Kind() != reflect.Struct {
				continue
			}
			if err := t.validate.Struct(el.Interface()); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}

// ValidatePayload checks a request payload before it is sent.
func (t *Transport) ValidatePayload(payload any) error {
	if payload == nil {
		return &ValidationError{Field: "payload", Reason: "is required"}
	}
	rv := reflect.ValueOf(payload)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return &ValidationError{Field: "payload", Reason: "is required"}
	}
	if t.validate == nil {
		return nil
	}
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if err := t.validate.Struct(rv.Interface()); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Field(), Reason: "failed on " + verrs[0].Tag(), Err: err}
		}
		return &ValidationError{Reason: err.Error(), Err: err}
	}
	return nil
}
