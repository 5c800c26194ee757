// Package marketapi talks to the marketplace backend REST API.
package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"spacesprotocol.org/marketplace-web/internal/listing"
	"spacesprotocol.org/marketplace-web/internal/space"
)

const (
	defaultTimeout = 8 * time.Second
	maxErrorBody   = 4096

	msgListFailed = "Failed to fetch listings"
	msgInternal   = "Internal server error"
	// returned by the backend as a 500 when the page is empty
	noListingsFound = "no listings found"

	instrumentationName = "spacesprotocol.org/marketplace-web/internal/marketapi"
)

// Operation names used for spans and metrics.
const (
	opListListings  = "list_listings"
	opGetListing    = "get_listing"
	opCreateListing = "create_listing"
	opHealth        = "health"
)

// ErrNotFound marks a lookup for a space that has no active listing.
var ErrNotFound = errors.New("marketapi: not found")

// APIError is a failed backend call with the message shown to the user.
type APIError struct {
	Status  int
	Message string
	err     error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.err }

// ListParams are the optional query parameters of GET /listings. Zero values are omitted.
type ListParams struct {
	SortBy    listing.SortBy    `validate:"omitempty,oneof=price timestamp"`
	SortOrder listing.SortOrder `validate:"omitempty,oneof=asc desc"`
	Limit     int               `validate:"omitempty,min=1,max=100"`
	Offset    int               `validate:"min=0"`
}

// Health mirrors the backend /healthcheck payload.
type Health struct {
	Height       int32  `json:"height"`
	Hash         string `json:"hash"`
	SpacedHash   string `json:"spaced_hash"`
	SpacedHeight int64  `json:"spaced_height"`
}

// Client issues listing calls against the backend.
type Client struct {
	baseURL  string
	http     *http.Client
	validate *validator.Validate
	logger   *zap.Logger

	tracer         trace.Tracer
	propagator     propagation.TextMapPropagator
	meter          metric.Meter
	latency        metric.Float64Histogram
	latencyEnabled bool
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithMeter records backend latency on meter instead of the global provider.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) {
		if m != nil {
			c.meter = m
		}
	}
}

// WithTracerProvider traces backend calls with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithPropagator overrides the propagator that injects trace headers into backend requests.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *Client) {
		if p != nil {
			c.propagator = p
		}
	}
}

// NewClient constructs a backend client rooted at baseURL.
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:       &http.Client{Timeout: defaultTimeout},
		validate:   validator.New(),
		logger:     logger.Named("marketapi"),
		tracer:     otel.Tracer(instrumentationName),
		propagator: otel.GetTextMapPropagator(),
		meter:      otel.GetMeterProvider().Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	latency, err := c.meter.Float64Histogram(
		"marketapi.request.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds of backend API calls"),
	)
	if err != nil {
		c.logger.Warn("unable to register latency metric", zap.Error(err))
	} else {
		c.latency, c.latencyEnabled = latency, true
	}
	return c
}

// BaseURL returns the backend root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// ListListings fetches one page of active listings.
func (c *Client) ListListings(ctx context.Context, params ListParams) ([]listing.ListingResponse, error) {
	if err := c.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("marketapi: invalid list params: %w", err)
	}

	query := url.Values{}
	if params.SortBy != "" {
		query.Set("sort_by", string(params.SortBy))
	}
	if params.SortOrder != "" {
		query.Set("sort_order", string(params.SortOrder))
	}
	if params.Limit != 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset != 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}

	endpoint := c.baseURL + "/listings"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	resp, err := c.do(ctx, opListListings, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &APIError{Message: msgListFailed, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp.Body)
		msg := body.text()
		if resp.StatusCode == http.StatusNotFound || strings.EqualFold(msg, noListingsFound) {
			return []listing.ListingResponse{}, nil
		}
		if msg == "" {
			msg = msgListFailed
		}
		c.logger.Warn("list listings failed", zap.Int("status", resp.StatusCode), zap.String("error", msg))
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	var out []listing.ListingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: msgListFailed, err: err}
	}
	if out == nil {
		out = []listing.ListingResponse{}
	}
	return out, nil
}

// GetListing fetches the active listing for name. A missing listing wraps ErrNotFound.
func (c *Client) GetListing(ctx context.Context, name string) (listing.ListingResponse, error) {
	name = space.Normalize(name)
	endpoint := c.baseURL + "/space/" + url.PathEscape("@"+name)

	resp, err := c.do(ctx, opGetListing, http.MethodGet, endpoint, nil)
	if err != nil {
		return listing.ListingResponse{}, &APIError{Message: "Failed to fetch listing for " + name, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return listing.ListingResponse{}, &APIError{
			Status:  resp.StatusCode,
			Message: "No listings found for " + name,
			err:     ErrNotFound,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("get listing failed", zap.String("space", name), zap.Int("status", resp.StatusCode))
		return listing.ListingResponse{}, &APIError{Status: resp.StatusCode, Message: "Failed to fetch listing for " + name}
	}

	var out listing.ListingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return listing.ListingResponse{}, &APIError{Status: resp.StatusCode, Message: "Failed to fetch listing for " + name, err: err}
	}
	return out, nil
}

// CreateListing relays a seller-signed listing to the backend, which verifies and stores it.
func (c *Client) CreateListing(ctx context.Context, l listing.Listing) (listing.ListingResponse, error) {
	payload, err := json.Marshal(l)
	if err != nil {
		return listing.ListingResponse{}, err
	}

	resp, err := c.do(ctx, opCreateListing, http.MethodPost, c.baseURL+"/postListing", payload)
	if err != nil {
		return listing.ListingResponse{}, &APIError{Message: msgInternal, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode}
		switch {
		case !body.parsed:
			apiErr.Message = msgInternal
		case body.text() != "":
			apiErr.Message = capitalize(body.text())
		default:
			apiErr.Message = "Request failed with status: " + strconv.Itoa(resp.StatusCode)
		}
		c.logger.Info("listing rejected",
			zap.String("space", l.Space),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Message),
		)
		return listing.ListingResponse{}, apiErr
	}

	var out listing.ListingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// the backend echoes the listing; an empty body still means success
		out = listing.ListingResponse{Listing: l}
	}
	return out, nil
}

// Health queries the backend sync state.
func (c *Client) Health(ctx context.Context) (Health, error) {
	resp, err := c.do(ctx, opHealth, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return Health{}, &APIError{Message: "Backend unreachable", err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorBody(resp.Body).text()
		if msg == "" {
			msg = "Health check failed"
		}
		return Health{}, &APIError{Status: resp.StatusCode, Message: msg}
	}

	var out Health
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Health{}, &APIError{Status: resp.StatusCode, Message: "Health check failed", err: err}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "marketapi."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", endpoint),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	started := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(started)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.recordLatency(ctx, op, status, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		c.logger.Warn("backend request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Error(err),
		)
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, resp.Status)
	}
	c.logger.Debug("backend request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed),
	)
	return resp, nil
}

func (c *Client) recordLatency(ctx context.Context, op string, status int, d time.Duration) {
	if !c.latencyEnabled {
		return
	}
	c.latency.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("op", op),
		attribute.Int("status", status),
	))
}

type errorBody struct {
	parsed  bool
	Error   string
	Message string
}

func (b errorBody) text() string {
	if b.Error != "" {
		return strings.TrimSpace(b.Error)
	}
	return strings.TrimSpace(b.Message)
}

// readErrorBody decodes a failure payload. Any valid JSON counts as parsed; only
// objects carry error/message strings.
func readErrorBody(r io.Reader) errorBody {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return errorBody{}
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return errorBody{}
	}
	out := errorBody{parsed: true}
	if obj, ok := decoded.(map[string]any); ok {
		out.Error, _ = obj["error"].(string)
		out.Message, _ = obj["message"].(string)
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
