// Package testsupport serves a small signup wizard over httptest so
// controllers can be exercised end to end with the real HTTP fetcher.
package testsupport

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-formsequence/pkg/dom"
	"github.com/goliatone/go-formsequence/pkg/fetch"
)

// HostMarkup is the page the wizard serves at "/".
const HostMarkup = `<!DOCTYPE html>
<html><head><title>Home</title></head><body>
<form-sequence capture="start" form="signup" cancel="cancel">
<input type="hidden" name="source" value="home">
<a id="start" href="/wizard/step1">Create account</a>
</form-sequence>
<template id="error-template"><div class="error"><h2>Error</h2><p>Something failed.</p><button type="submit">Retry</button><button id="cancel" type="button">Close</button></div></template>
</body></html>`

const sessionCookie = "wizard_session"

// Recorded is one request the wizard received.
type Recorded struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	Header http.Header
}

// Wizard is a running signup wizard.
type Wizard struct {
	Server *httptest.Server

	mu       sync.Mutex
	requests []Recorded
}

// NewWizard starts the wizard and stops it when t finishes.
func NewWizard(t *testing.T) *Wizard {
	t.Helper()
	w := &Wizard{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", w.home)
	mux.HandleFunc("/wizard/step1", w.step1)
	mux.HandleFunc("/wizard/step2", w.step2)
	mux.HandleFunc("/wizard/finish", w.finish)
	mux.HandleFunc("/wizard/broken", w.broken)
	w.Server = httptest.NewServer(w.record(mux))
	t.Cleanup(w.Server.Close)
	return w
}

// URL resolves path against the server root.
func (w *Wizard) URL(path string) string {
	return w.Server.URL + path
}

// Requests returns the recorded requests in arrival order.
func (w *Wizard) Requests() []Recorded {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Recorded(nil), w.requests...)
}

// NewPage loads the host page as a dom.Page located at the wizard root.
func (w *Wizard) NewPage(t *testing.T, options ...dom.PageOption) *dom.Page {
	t.Helper()
	page, err := dom.NewPage(w.URL("/"), HostMarkup, options...)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	t.Cleanup(page.Close)
	return page
}

// NewFetcher returns an HTTP fetcher bound to the wizard.
func (w *Wizard) NewFetcher(t *testing.T, options ...fetch.Option) *fetch.HTTPFetcher {
	t.Helper()
	base, err := url.Parse(w.URL("/"))
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	options = append([]fetch.Option{fetch.WithBaseURL(base)}, options...)
	f, err := fetch.NewHTTP(options...)
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return f
}

func (w *Wizard) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		w.mu.Lock()
		w.requests = append(w.requests, Recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Form:   r.PostForm,
			Header: r.Header.Clone(),
		})
		w.mu.Unlock()
		next.ServeHTTP(rw, r)
	})
}

func (w *Wizard) home(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeHTML(rw, http.StatusNotFound, "<h1>Not Found</h1><pre>"+html.EscapeString(r.URL.Path)+"</pre>")
		return
	}
	writeHTML(rw, http.StatusOK, HostMarkup)
}

func (w *Wizard) step1(rw http.ResponseWriter, r *http.Request) {
	http.SetCookie(rw, &http.Cookie{Name: sessionCookie, Value: "started", Path: "/"})
	writeHTML(rw, http.StatusOK, `<html><body><h1>Step 1</h1>
<form id="signup" action="/wizard/step2" method="post">
<label for="email">Email</label><input id="email" name="email" type="email" required>
<button type="submit" name="intent" value="next">Next</button>
<button id="cancel" type="button">Cancel</button>
</form></body></html>`)
}

func (w *Wizard) step2(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeHTML(rw, http.StatusMethodNotAllowed, "<h1>Method Not Allowed</h1>")
		return
	}
	if _, err := r.Cookie(sessionCookie); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"error": "No session", "message": "start the wizard first"})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	if email == "" {
		writeJSON(rw, http.StatusUnprocessableEntity, map[string]any{
			"error":  "Invalid",
			"errors": map[string][]string{"email": {"is required"}},
		})
		return
	}
	writeHTML(rw, http.StatusOK, fmt.Sprintf(`<html><body><h1>Step 2</h1>
<form id="signup" action="/wizard/finish" method="get">
<input type="hidden" name="email" value="%s">
<select name="plan"><option value="free">Free</option><option value="pro" selected>Pro</option></select>
<button type="submit">Finish</button>
<button id="cancel" type="button">Cancel</button>
</form></body></html>`, html.EscapeString(email)))
}

func (w *Wizard) finish(rw http.ResponseWriter, r *http.Request) {
	http.Redirect(rw, r, "/?done="+url.QueryEscape(r.URL.Query().Get("plan")), http.StatusSeeOther)
}

func (w *Wizard) broken(rw http.ResponseWriter, _ *http.Request) {
	writeHTML(rw, http.StatusInternalServerError, "<html><body><h1>Server Error</h1><pre>database unavailable</pre></body></html>")
}

func writeHTML(rw http.ResponseWriter, status int, body string) {
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(status)
	_, _ = rw.Write([]byte(body))
}

func writeJSON(rw http.ResponseWriter, status int, payload any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(payload)
}
