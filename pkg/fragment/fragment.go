// Package fragment parses retrieved markup into detached, queryable
// documents. Parsed fragments never share nodes with a host page, so callers
// can query and mutate them freely before deciding what to render.
package fragment

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formsequence/pkg/selector"
)

// Option configures a Reader.
type Option func(*Reader)

// WithPolicy sanitises markup with the supplied policy before parsing.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(r *Reader) {
		r.policy = policy
	}
}

// WithSanitize toggles sanitising with DefaultPolicy.
func WithSanitize(enabled bool) Option {
	return func(r *Reader) {
		if enabled {
			r.policy = DefaultPolicy()
			return
		}
		r.policy = nil
	}
}

// Reader parses raw markup into Fragments.
type Reader struct {
	policy *bluemonday.Policy
}

// NewReader constructs a Reader. Without options markup is parsed verbatim.
func NewReader(options ...Option) *Reader {
	r := &Reader{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Sanitizing reports whether the reader applies a policy.
func (r *Reader) Sanitizing() bool {
	return r != nil && r.policy != nil
}

// Parse builds a Fragment from markup. Both complete documents and bare
// fragments are accepted.
func (r *Reader) Parse(markup string) (*Fragment, error) {
	if r != nil && r.policy != nil {
		markup = r.policy.Sanitize(markup)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("fragment: parse: %w", err)
	}
	return &Fragment{doc: doc}, nil
}

// Parse builds a Fragment with the default, non-sanitising reader.
func Parse(markup string) (*Fragment, error) {
	return NewReader().Parse(markup)
}

// Fragment is a parsed, detached document.
type Fragment struct {
	doc *goquery.Document
}

// Root returns the document selection.
func (f *Fragment) Root() *goquery.Selection {
	if f == nil || f.doc == nil {
		return nil
	}
	return f.doc.Selection
}

// Find returns the nodes matched by m.
func (f *Fragment) Find(m selector.Matcher) *goquery.Selection {
	return m.Find(f.Root())
}

// Query runs a raw CSS selector against the fragment.
func (f *Fragment) Query(css string) *goquery.Selection {
	root := f.Root()
	if root == nil {
		return nil
	}
	return root.Find(css)
}

// Text returns the text content of the first node matching css. The boolean is
// false when nothing matched or css is blank.
func (f *Fragment) Text(css string) (string, bool) {
	if strings.TrimSpace(css) == "" {
		return "", false
	}
	found := f.Query(css)
	if found == nil || found.Length() == 0 {
		return "", false
	}
	return found.First().Text(), true
}

// HTML serialises the whole fragment.
func (f *Fragment) HTML() (string, error) {
	root := f.Root()
	if root == nil {
		return "", errors.New("fragment: empty fragment")
	}
	return root.Html()
}

var (
	defaultPolicyOnce sync.Once
	defaultPolicy     *bluemonday.Policy
)

// DefaultPolicy allows user generated content plus the form controls a
// sequence step needs. Scripts, styles and event handler attributes are
// removed.
func DefaultPolicy() *bluemonday.Policy {
	defaultPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowElements(
			"form", "input", "button", "select", "option", "optgroup",
			"textarea", "label", "fieldset", "legend", "template",
		)
		policy.AllowAttrs("action", "method", "enctype").OnElements("form")
		policy.AllowAttrs(
			"type", "name", "value", "checked", "selected", "disabled",
			"readonly", "required", "multiple", "placeholder", "autocomplete",
			"min", "max", "step", "pattern", "maxlength", "rows", "cols", "for",
		).Globally()
		policy.AllowAttrs("id", "role", "tabindex").Globally()
		policy.AllowRelativeURLs(true)

		defaultPolicy = policy
	})
	return defaultPolicy
}
