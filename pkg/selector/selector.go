package selector

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// NameOrID returns the selector matching a single logical name by id or by
// name attribute, e.g. `#pete, [name="pete"]`.
func NameOrID(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return "#" + escapeIdent(name) + ", " + NameAttr(name)
}

// NameAttr returns the attribute selector for a name, e.g. `[name="pete"]`.
func NameAttr(name string) string {
	return `[name="` + escapeString(name) + `"]`
}

// Resolve expands a comma separated list of logical names into a selector
// group. Whitespace around names is trimmed and empty entries are skipped, so
// an empty or blank list resolves to "".
func Resolve(list string) string {
	names := Names(list)
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, 0, len(names)*2)
	for _, name := range names {
		parts = append(parts, "#"+escapeIdent(name), NameAttr(name))
	}
	return strings.Join(parts, ",")
}

// Names splits a logical name list, dropping blanks.
func Names(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	raw := strings.Split(list, ",")
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Matcher finds elements for a resolved name list. The zero value matches
// nothing.
type Matcher struct {
	query string
	sel   cascadia.Selector
}

// Compile resolves list and compiles the result. An empty list yields the zero
// Matcher and no error.
func Compile(list string) (Matcher, error) {
	return CompileCSS(Resolve(list))
}

// CompileCSS compiles a raw CSS selector group. Blank input yields the zero
// Matcher.
func CompileCSS(query string) (Matcher, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Matcher{}, nil
	}
	sel, err := cascadia.Compile(query)
	if err != nil {
		return Matcher{}, fmt.Errorf("selector: compile %q: %w", query, err)
	}
	return Matcher{query: query, sel: sel}, nil
}

// MustCompileCSS panics when query does not compile. Intended for package
// level selectors.
func MustCompileCSS(query string) Matcher {
	m, err := CompileCSS(query)
	if err != nil {
		panic(err)
	}
	return m
}

// Query returns the CSS text the matcher was compiled from.
func (m Matcher) Query() string {
	return m.query
}

// Empty reports whether the matcher can never match.
func (m Matcher) Empty() bool {
	return m.sel == nil
}

// Match implements cascadia.Matcher.
func (m Matcher) Match(n *html.Node) bool {
	if m.sel == nil {
		return false
	}
	return m.sel.Match(n)
}

// Find returns every descendant of root that matches, in document order.
func (m Matcher) Find(root *goquery.Selection) *goquery.Selection {
	if root == nil {
		return nil
	}
	if m.sel == nil {
		return root.FilterFunction(func(int, *goquery.Selection) bool { return false })
	}
	return root.FindMatcher(m.sel)
}

// First returns the first descendant of root that matches.
func (m Matcher) First(root *goquery.Selection) *goquery.Selection {
	found := m.Find(root)
	if found == nil {
		return nil
	}
	return found.First()
}

func escapeIdent(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-', r >= 0x80:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, "\\%x ", r)
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escapeString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
