package request_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsequence/pkg/request"
)

func mustForm(t *testing.T, markup string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	form := doc.Find("form").First()
	if form.Length() == 0 {
		t.Fatalf("fixture has no form")
	}
	return form
}

func TestFromURL(t *testing.T) {
	headers := http.Header{"X-Requested-With": []string{"form-sequence"}}
	b := request.NewBuilder(headers)

	desc := b.FromURL("https://example.com/wizard")
	if desc.URL != "https://example.com/wizard" {
		t.Fatalf("unexpected url %q", desc.URL)
	}
	if desc.Method != "" || desc.HasBody() {
		t.Fatalf("plain URL descriptors carry no method or body: %+v", desc)
	}
	if diff := cmp.Diff(headers, desc.Headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}

	desc.Headers.Set("X-Mutated", "1")
	if again := b.FromURL("/x"); again.Headers.Get("X-Mutated") != "" {
		t.Fatalf("descriptor headers must not alias builder defaults")
	}
}

func TestFromFormGetFoldsBodyIntoQuery(t *testing.T) {
	form := mustForm(t, `<form method="GET" action="/search"><input name="q" value="x"></form>`)

	desc, err := request.NewBuilder(nil).FromForm(form, nil)
	if err != nil {
		t.Fatalf("from form: %v", err)
	}
	if desc.URL != "/search?q=x" {
		t.Fatalf("unexpected url %q", desc.URL)
	}
	if desc.Method != "get" {
		t.Fatalf("unexpected method %q", desc.Method)
	}
	if desc.HasBody() {
		t.Fatalf("GET descriptors carry no body, got %v", desc.Body)
	}
}

func TestFromFormPostKeepsOrderedBody(t *testing.T) {
	form := mustForm(t, `
		<form method="POST" action="step2">
			<input name="z" value="last-name-first">
			<input type="hidden" name="token" value="abc">
			<input type="checkbox" name="terms" checked>
			<input type="checkbox" name="news" value="yes">
			<input type="radio" name="plan" value="free">
			<input type="radio" name="plan" value="pro" checked>
			<input name="skip" value="1" disabled>
			<input type="submit" name="ignored" value="1">
			<select name="country"><option value="es">Spain</option><option selected>Italy</option></select>
			<select name="tags" multiple><option value="a" selected>A</option><option value="b">B</option><option value="c" selected>C</option></select>
			<textarea name="bio">hello world</textarea>
			<fieldset disabled><input name="locked" value="1"></fieldset>
		</form>`)

	base, _ := url.Parse("https://example.com/wizard/step1")
	extra := request.Field{Name: "action", Value: "save & continue"}

	desc, err := request.NewBuilder(nil).FromForm(form, base, extra)
	if err != nil {
		t.Fatalf("from form: %v", err)
	}
	if desc.URL != "https://example.com/wizard/step2" {
		t.Fatalf("unexpected url %q", desc.URL)
	}
	if desc.Method != "post" {
		t.Fatalf("unexpected method %q", desc.Method)
	}

	want := request.FormData{
		{Name: "z", Value: "last-name-first"},
		{Name: "token", Value: "abc"},
		{Name: "terms", Value: "on"},
		{Name: "plan", Value: "pro"},
		{Name: "country", Value: "Italy"},
		{Name: "tags", Value: "a"},
		{Name: "tags", Value: "c"},
		{Name: "bio", Value: "hello world"},
		{Name: "action", Value: "save & continue"},
	}
	if diff := cmp.Diff(want, desc.Body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	wantEncoded := "z=last-name-first&token=abc&terms=on&plan=pro&country=Italy&tags=a&tags=c&bio=hello+world&action=save+%26+continue"
	if got := desc.Body.Encode(); got != wantEncoded {
		t.Fatalf("encoded mismatch\nwant: %s\n got: %s", wantEncoded, got)
	}
}

func TestFromFormDefaultsToGetAndBase(t *testing.T) {
	form := mustForm(t, `<form><input name="page" value="2"></form>`)
	base, _ := url.Parse("https://example.com/list?page=1")

	desc, err := request.NewBuilder(nil).FromForm(form, base)
	if err != nil {
		t.Fatalf("from form: %v", err)
	}
	if desc.URL != "https://example.com/list?page=2" {
		t.Fatalf("unexpected url %q", desc.URL)
	}
}

func TestFromFormPostWithoutFieldsHasEmptyBody(t *testing.T) {
	form := mustForm(t, `<form method="post" action="/confirm"></form>`)

	desc, err := request.NewBuilder(nil).FromForm(form, nil)
	if err != nil {
		t.Fatalf("from form: %v", err)
	}
	if !desc.HasBody() || len(desc.Body) != 0 {
		t.Fatalf("expected empty, non-nil body, got %#v", desc.Body)
	}
}

func TestFromFormRequiresForm(t *testing.T) {
	if _, err := request.NewBuilder(nil).FromForm(nil, nil); err != request.ErrNoForm {
		t.Fatalf("expected ErrNoForm, got %v", err)
	}
}

func TestHiddenFields(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<div>
			<input type="hidden" name="token" value="one">
			<input type="hidden" name=" source " value="nav">
			<input type="text" name="visible" value="x">
			<input type="hidden" value="nameless">
			<input type="hidden" name="token" value="two">
		</div>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := request.HiddenFields(doc.Find("input"))
	want := []request.HiddenField{
		{Name: "token", Value: "two"},
		{Name: "source", Value: "nav"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}

	markup := request.Hidden("q", `a"b`).Markup()
	if markup != `<input type="hidden" name="q" value="a&#34;b">` {
		t.Fatalf("unexpected markup %s", markup)
	}
}
