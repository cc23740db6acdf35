package sequence_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/goliatone/go-formsequence/pkg/dom"
	"github.com/goliatone/go-formsequence/pkg/fetch"
	"github.com/goliatone/go-formsequence/pkg/request"
	"github.com/goliatone/go-formsequence/pkg/sequence"
)

const hostMarkup = `<html><body>
<form-sequence id="signup-flow" capture="start" form="signup" cancel="cancel">
	<input type="hidden" name="token" value="abc">
	<p>Intro</p>
	<a id="start" href="/wizard/step1"> Sign up </a>
	<span id="after-origin"></span>
</form-sequence>
<form-sequence id="other-flow" capture="other" form="other-form">
	<a name="other" href="/other/step1">Other</a>
</form-sequence>
<template id="error-template"><div class="error"><h2>Default title</h2><p>Default message</p><button type="submit">Retry</button><button id="cancel" type="button">Cancel</button></div></template>
</body></html>`

const step1Body = `<html><body><h1>Step 1</h1>
<form id="signup" action="/wizard/step2" method="post">
	<input type="hidden" name="csrf" value="xyz">
	<input name="email" value="">
	<button type="submit" name="intent" value="next">Next</button>
	<button type="submit" name="intent" value="save">Save</button>
	<button id="cancel" type="button">Cancel</button>
</form></body></html>`

const otherBody = `<html><body><form id="other-form" action="/other/step2"><input name="q"><button>Go</button></form></body></html>`

type handlerFunc func(ctx context.Context, req request.Descriptor) (*fetch.Response, error)

type harness struct {
	t        *testing.T
	page     *dom.Page
	registry *sequence.Registry

	mu       sync.Mutex
	requests []request.Descriptor
	handler  handlerFunc
}

func newHarness(t *testing.T, markup string, handler handlerFunc) *harness {
	t.Helper()
	page, err := dom.NewPage("https://example.com/home", markup)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	t.Cleanup(page.Close)
	return &harness{
		t:        t,
		page:     page,
		registry: sequence.NewRegistry(),
		handler:  handler,
	}
}

func (h *harness) Fetch(ctx context.Context, req request.Descriptor) (*fetch.Response, error) {
	h.mu.Lock()
	h.requests = append(h.requests, req)
	handler := h.handler
	h.mu.Unlock()
	return handler(ctx, req)
}

func (h *harness) Requests() []request.Descriptor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]request.Descriptor(nil), h.requests...)
}

type recorder struct {
	events []sequence.Event
}

func (r *recorder) Names() []string {
	names := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		names = append(names, ev.Name)
	}
	return names
}

func (r *recorder) Last(name string) (sequence.Event, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Name == name {
			return r.events[i], true
		}
	}
	return sequence.Event{}, false
}

func (h *harness) mount(css string, options ...sequence.Option) (*sequence.Controller, *recorder) {
	h.t.Helper()
	host := h.page.Document().Find(css)
	options = append([]sequence.Option{
		sequence.WithFetcher(h),
		sequence.WithRegistry(h.registry),
	}, options...)
	ctrl, err := sequence.New(h.page, host, options...)
	if err != nil {
		h.t.Fatalf("new controller: %v", err)
	}
	rec := &recorder{}
	var mountErr error
	if err := h.page.Loop().Do(func() {
		ctrl.OnAny(func(ev sequence.Event) { rec.events = append(rec.events, ev) })
		mountErr = ctrl.Mount()
	}); err != nil {
		h.t.Fatalf("loop: %v", err)
	}
	if mountErr != nil {
		h.t.Fatalf("mount: %v", mountErr)
	}
	return ctrl, rec
}

func (h *harness) activate(css string) {
	h.t.Helper()
	target := h.page.Document().Find(css)
	if target.Length() == 0 {
		h.t.Fatalf("no element matches %q", css)
	}
	if err := h.page.Activate(target); err != nil {
		h.t.Fatalf("activate %q: %v", css, err)
	}
	h.page.Settle()
}

func (h *harness) find(css string) *goquery.Selection {
	return h.page.Document().Find(css)
}

func htmlResponse(status int, finalURL, body string) *fetch.Response {
	return &fetch.Response{
		OK:     status >= 200 && status < 300,
		Status: status,
		URL:    finalURL,
		Header: http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:   body,
	}
}

func jsonResponse(status int, finalURL, body string) *fetch.Response {
	return &fetch.Response{
		OK:     status >= 200 && status < 300,
		Status: status,
		URL:    finalURL,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   body,
	}
}

// routes answers by request path with the registered response. Unknown
// paths answer 404.
func routes(table map[string]*fetch.Response) handlerFunc {
	return func(_ context.Context, req request.Descriptor) (*fetch.Response, error) {
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, err
		}
		if resp, ok := table[u.Path]; ok {
			copied := *resp
			return &copied, nil
		}
		return htmlResponse(http.StatusNotFound, req.URL, "<h1>Not Found</h1>"), nil
	}
}
