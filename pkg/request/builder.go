package request

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MethodGet is the only method whose form data travels in the query string.
const MethodGet = "get"

// ErrNoForm is returned when a form descriptor is requested without a form.
var ErrNoForm = errors.New("request: form is required")

// Descriptor is the normalized request a step hands to the retrieval service.
// An empty Method means "unspecified" (a plain navigation fetch) and a nil Body
// means no body.
type Descriptor struct {
	URL     string
	Method  string
	Body    FormData
	Headers http.Header
}

// HasBody reports whether the descriptor carries a request body.
func (d Descriptor) HasBody() bool {
	return d.Body != nil
}

// Builder produces descriptors with the configured default headers attached.
type Builder struct {
	headers http.Header
}

// NewBuilder returns a Builder attaching headers to every descriptor.
func NewBuilder(headers http.Header) *Builder {
	return &Builder{headers: headers.Clone()}
}

// FromURL describes a first-step fetch of rawURL.
func (b *Builder) FromURL(rawURL string) Descriptor {
	return Descriptor{
		URL:     rawURL,
		Headers: b.defaultHeaders(),
	}
}

// FromForm describes the submission of form. The action is resolved against
// base when base is non-nil; a missing action submits to base itself. extra
// carries the activated submit control's own name/value, if any.
func (b *Builder) FromForm(form *goquery.Selection, base *url.URL, extra ...Field) (Descriptor, error) {
	if form == nil || form.Length() == 0 {
		return Descriptor{}, ErrNoForm
	}
	form = form.First()

	method := strings.ToLower(strings.TrimSpace(form.AttrOr("method", "")))
	if method == "" {
		method = MethodGet
	}

	target, err := resolveAction(form.AttrOr("action", ""), base)
	if err != nil {
		return Descriptor{}, err
	}

	body := Collect(form)
	for _, field := range extra {
		body.Add(field.Name, field.Value)
	}
	if body == nil {
		body = FormData{}
	}

	desc := Descriptor{
		Method:  method,
		Headers: b.defaultHeaders(),
	}
	if method == MethodGet {
		target.RawQuery = body.Encode()
		desc.URL = target.String()
		return desc, nil
	}
	desc.URL = target.String()
	desc.Body = body
	return desc, nil
}

func (b *Builder) defaultHeaders() http.Header {
	if b == nil || b.headers == nil {
		return http.Header{}
	}
	return b.headers.Clone()
}

func resolveAction(action string, base *url.URL) (*url.URL, error) {
	action = strings.TrimSpace(action)
	ref, err := url.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("request: parse form action %q: %w", action, err)
	}
	if base == nil {
		return ref, nil
	}
	return base.ResolveReference(ref), nil
}
