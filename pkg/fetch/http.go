package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsequence/pkg/request"
)

const (
	instrumentationName = "github.com/goliatone/go-formsequence/pkg/fetch"
	defaultMaxBodyBytes = 4 << 20
	formContentType     = "application/x-www-form-urlencoded"
)

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient overrides the HTTP client. The client's redirect policy decides
// which URL is reported as final.
func WithClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithBaseURL resolves relative descriptor URLs against base.
func WithBaseURL(base *url.URL) Option {
	return func(f *HTTPFetcher) {
		f.base = base
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTracer overrides the tracer used for fetch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(f *HTTPFetcher) {
		if tracer != nil {
			f.tracer = tracer
		}
	}
}

// WithUserAgent sets the User-Agent header when descriptors omit one.
func WithUserAgent(agent string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = strings.TrimSpace(agent)
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// HTTPFetcher retrieves documents over HTTP. The default client keeps cookies
// across steps so server side sessions survive the whole sequence.
type HTTPFetcher struct {
	client    *http.Client
	base      *url.URL
	logger    *zap.Logger
	tracer    trace.Tracer
	userAgent string
	maxBody   int64
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTP constructs an HTTPFetcher.
func NewHTTP(options ...Option) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(instrumentationName),
		maxBody: defaultMaxBodyBytes,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	if f.client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("fetch: cookie jar: %w", err)
		}
		f.client = &http.Client{Jar: jar}
	}
	f.logger = f.logger.Named("fetch")
	return f, nil
}

// Fetch performs the request described by req.
func (f *HTTPFetcher) Fetch(ctx context.Context, req request.Descriptor) (*Response, error) {
	if ctx == nil {
		return nil, errors.New("fetch: context is required")
	}

	target, err := f.resolve(req.URL)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.HasBody() && method != http.MethodGet && method != http.MethodHead {
		body = strings.NewReader(req.Body.Encode())
	}

	ctx, span := f.tracer.Start(ctx, "fetch "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target.String()),
		),
	)
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	for name, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", formContentType)
	}
	if f.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("url", target.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetch: %s %s: %w", method, target.Redacted(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	final := target.String()
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}
	f.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("url", target.String()),
		zap.String("final_url", final),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
	)

	return &Response{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		URL:    final,
		Header: resp.Header.Clone(),
		Body:   string(data),
	}, nil
}

func (f *HTTPFetcher) resolve(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("fetch: url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse url %q: %w", raw, err)
	}
	if f.base != nil {
		u = f.base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("fetch: url %q is not absolute", raw)
	}
	return u, nil
}
