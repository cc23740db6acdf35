package selector_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsequence/pkg/selector"
)

func TestNameOrID(t *testing.T) {
	got := selector.NameOrID("pete")
	want := `#pete, [name="pete"]`
	if got != want {
		t.Fatalf("NameOrID mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestResolve(t *testing.T) {
	cases := map[string]string{
		"this, or, that": `#this,[name="this"],#or,[name="or"],#that,[name="that"]`,
		"single":         `#single,[name="single"]`,
		"  spaced  ":     `#spaced,[name="spaced"]`,
		"a,,b":           `#a,[name="a"],#b,[name="b"]`,
		"":               "",
		"   ":            "",
	}
	for input, want := range cases {
		if got := selector.Resolve(input); got != want {
			t.Errorf("Resolve(%q)\nwant: %q\n got: %q", input, want, got)
		}
	}
}

func TestResolveEscapesUnsafeNames(t *testing.T) {
	got := selector.Resolve(`user[email], 1st`)
	want := `#user\[email\],[name="user[email]"],#\31 st,[name="1st"]`
	if got != want {
		t.Fatalf("Resolve mismatch\nwant: %q\n got: %q", want, got)
	}
	if _, err := selector.Compile(`user[email], 1st`); err != nil {
		t.Fatalf("escaped selector should compile: %v", err)
	}
}

func TestMatcherFind(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<form id="login"></form>
		<form name="signup"></form>
		<form name="other"></form>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	m, err := selector.Compile("signup, login")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var got []string
	m.Find(doc.Selection).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		name, _ := s.Attr("name")
		got = append(got, id+name)
	})
	if diff := cmp.Diff([]string{"login", "signup"}, got); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}

	if first := m.First(doc.Selection); first.Length() != 1 {
		t.Fatalf("expected one first match, got %d", first.Length())
	}
}

func TestEmptyMatcherMatchesNothing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<a id="x"></a>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, err := selector.Compile("")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !m.Empty() {
		t.Fatalf("expected empty matcher")
	}
	if n := m.Find(doc.Selection).Length(); n != 0 {
		t.Fatalf("expected no matches, got %d", n)
	}
}

func TestCompileCSSRejectsInvalid(t *testing.T) {
	if _, err := selector.CompileCSS("[[["); err == nil {
		t.Fatalf("expected compile error")
	}
}
