package request

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HiddenField is a hidden input captured from the host markup and replayed
// into every form a sequence submits.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// Markup renders the field as an input element.
func (h HiddenField) Markup() string {
	return `<input type="hidden" name="` + html.EscapeString(h.Name) + `" value="` + html.EscapeString(h.Value) + `">`
}

// HiddenFields reads the named hidden inputs in inputs. Later fields win on
// name collisions while the first position is kept.
func HiddenFields(inputs *goquery.Selection) []HiddenField {
	if inputs == nil || inputs.Length() == 0 {
		return nil
	}
	var out []HiddenField
	index := make(map[string]int)
	inputs.Each(func(_ int, input *goquery.Selection) {
		if !strings.EqualFold(input.AttrOr("type", ""), "hidden") {
			return
		}
		field := Hidden(input.AttrOr("name", ""), input.AttrOr("value", ""))
		if field.Name == "" {
			return
		}
		if pos, exists := index[field.Name]; exists {
			out[pos] = field
			return
		}
		index[field.Name] = len(out)
		out = append(out, field)
	})
	return out
}
