// Package fetch defines the document retrieval contract used by sequence
// controllers and provides an HTTP implementation. A Fetcher resolves a
// request descriptor into a Response describing the final (post-redirect) URL,
// status, headers and body text. Transport failures are returned as errors;
// non-2xx statuses are regular responses with OK set to false.
package fetch

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/goliatone/go-formsequence/pkg/request"
)

// Fetcher executes request descriptors.
type Fetcher interface {
	Fetch(ctx context.Context, req request.Descriptor) (*Response, error)
}

// Func adapts a function into a Fetcher.
type Func func(ctx context.Context, req request.Descriptor) (*Response, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, req request.Descriptor) (*Response, error) {
	return f(ctx, req)
}

// Response is the outcome of a completed request.
type Response struct {
	OK     bool
	Status int
	// URL is the final URL after redirects.
	URL    string
	Header http.Header
	Body   string
}

// ContentType returns the media type of the response without parameters.
func (r *Response) ContentType() string {
	if r == nil || r.Header == nil {
		return ""
	}
	raw := r.Header.Get("Content-Type")
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
	}
	return mediaType
}

// IsJSON reports whether the response declares a JSON body, including
// structured suffixes such as application/problem+json.
func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}
