package testsupport_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsequence/pkg/errview"
	"github.com/goliatone/go-formsequence/pkg/sequence"
	"github.com/goliatone/go-formsequence/pkg/testsupport"
)

type run struct {
	wizard *testsupport.Wizard
	ctrl   *sequence.Controller
	events []sequence.Event
}

func start(t *testing.T) *run {
	t.Helper()
	w := testsupport.NewWizard(t)
	page := w.NewPage(t)
	ctrl, err := sequence.New(page, page.Document().Find("form-sequence"),
		sequence.WithFetcher(w.NewFetcher(t)),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	r := &run{wizard: w, ctrl: ctrl}
	var mountErr error
	if err := page.Loop().Do(func() {
		ctrl.OnAny(func(ev sequence.Event) { r.events = append(r.events, ev) })
		mountErr = ctrl.Mount()
	}); err != nil || mountErr != nil {
		t.Fatalf("mount: %v %v", err, mountErr)
	}
	return r
}

func (r *run) activate(t *testing.T, css string) {
	t.Helper()
	page := r.ctrl.Page()
	target := page.Document().Find(css)
	if target.Length() == 0 {
		t.Fatalf("no element matches %q", css)
	}
	if err := page.Activate(target); err != nil {
		t.Fatalf("activate: %v", err)
	}
	page.Settle()
}

func (r *run) names() []string {
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Name
	}
	return out
}

func TestWizardCompletesAndReturnsHome(t *testing.T) {
	r := start(t)
	page := r.ctrl.Page()

	r.activate(t, "#start")
	if r.ctrl.Step() != 1 {
		t.Fatalf("expected step 1, got %d (events %v)", r.ctrl.Step(), r.names())
	}
	page.Document().Find(`[remote] input[name="email"]`).SetAttr("value", "ada@example.com")
	r.activate(t, `[remote] button[name="intent"]`)
	if r.ctrl.Step() != 2 {
		t.Fatalf("expected step 2, got %d (events %v)", r.ctrl.Step(), r.names())
	}
	r.activate(t, `[remote] button:not([type])`)

	want := []string{"start", "done", "success", "start", "done", "success", "start", "return"}
	if diff := cmp.Diff(want, r.names()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	payload := r.events[len(r.events)-1].Payload.(sequence.ReturnPayload)
	if payload.URL != r.wizard.URL("/?done=pro") {
		t.Fatalf("unexpected return url %q", payload.URL)
	}
	if payload.Response.Status != http.StatusOK {
		t.Fatalf("expected followed redirect, got %d", payload.Response.Status)
	}

	reqs := r.wizard.Requests()
	if len(reqs) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(reqs))
	}
	for _, req := range reqs {
		if got := req.Header.Get("X-Requested-With"); got != "form-sequence" {
			t.Fatalf("missing default header on %s %s", req.Method, req.Path)
		}
	}
	post := reqs[1]
	if post.Method != http.MethodPost || post.Path != "/wizard/step2" {
		t.Fatalf("unexpected submission %s %s", post.Method, post.Path)
	}
	if got := post.Form.Get("source"); got != "home" {
		t.Fatalf("expected hidden field replayed, got %q", got)
	}
	if got := post.Form.Get("intent"); got != "next" {
		t.Fatalf("expected submitter value, got %q", got)
	}
	finish := reqs[2]
	if finish.Method != http.MethodGet || finish.Query.Get("plan") != "pro" || finish.Query.Get("email") != "ada@example.com" {
		t.Fatalf("unexpected finish request %+v", finish)
	}
}

func TestWizardValidationError(t *testing.T) {
	r := start(t)

	r.activate(t, "#start")
	r.activate(t, `[remote] button[name="intent"]`)

	last := r.events[len(r.events)-1]
	var remote *errview.RemoteError
	if !errors.As(last.Err(), &remote) {
		t.Fatalf("expected remote error, got %v", r.names())
	}
	if remote.Status != http.StatusUnprocessableEntity || remote.Title != "Invalid" || remote.Message != "email: is required" {
		t.Fatalf("unexpected remote error %+v", remote)
	}
	if got := r.ctrl.Page().Document().Find("[remote] .error h2").Text(); got != "Invalid" {
		t.Fatalf("expected error template rendered, got %q", got)
	}

	r.activate(t, "[remote] #cancel")
	if r.ctrl.Active() || r.ctrl.Step() != 0 {
		t.Fatalf("expected closed sequence")
	}
}

func TestWizardServerErrorUsesHTMLSelectors(t *testing.T) {
	r := start(t)
	page := r.ctrl.Page()
	page.Document().Find("#start").SetAttr("href", "/wizard/broken")
	if err := page.Loop().Do(func() { _ = r.ctrl.Mount() }); err != nil {
		t.Fatalf("remount: %v", err)
	}

	r.activate(t, "#start")

	var remote *errview.RemoteError
	if !errors.As(r.events[len(r.events)-1].Err(), &remote) {
		t.Fatalf("expected remote error, got %v", r.names())
	}
	want := errview.RemoteError{Title: "Server Error", Message: "database unavailable", Status: http.StatusInternalServerError}
	if diff := cmp.Diff(want, *remote); diff != "" {
		t.Fatalf("remote error mismatch (-want +got):\n%s", diff)
	}
}
