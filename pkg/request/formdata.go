package request

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field is a single name/value pair of a form data set.
type Field struct {
	Name  string
	Value string
}

// FormData is an ordered form data set. Unlike url.Values it keeps the
// document order of controls when encoded.
type FormData []Field

// Add appends a pair. Blank names are ignored.
func (d *FormData) Add(name, value string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	*d = append(*d, Field{Name: name, Value: value})
}

// Get returns the first value stored under name.
func (d FormData) Get(name string) (string, bool) {
	for _, field := range d {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// Encode serialises the set as application/x-www-form-urlencoded.
func (d FormData) Encode() string {
	if len(d) == 0 {
		return ""
	}
	var b strings.Builder
	for i, field := range d {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(field.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(field.Value))
	}
	return b.String()
}

// Values converts the set into url.Values. Order across names is lost.
func (d FormData) Values() url.Values {
	out := make(url.Values, len(d))
	for _, field := range d {
		out.Add(field.Name, field.Value)
	}
	return out
}

// Collect builds the form data set for form: enabled, named input, select and
// textarea controls in document order. Buttons never contribute here; the
// activated submitter is added separately by the builder.
func Collect(form *goquery.Selection) FormData {
	var data FormData
	if form == nil || form.Length() == 0 {
		return data
	}
	form.First().Find("input, select, textarea").Each(func(_ int, control *goquery.Selection) {
		name, ok := control.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := control.Attr("disabled"); disabled {
			return
		}
		if control.Closest("fieldset[disabled]").Length() > 0 {
			return
		}

		switch goquery.NodeName(control) {
		case "select":
			collectSelect(&data, name, control)
		case "textarea":
			data.Add(name, control.Text())
		default:
			collectInput(&data, name, control)
		}
	})
	return data
}

func collectInput(data *FormData, name string, control *goquery.Selection) {
	kind := strings.ToLower(strings.TrimSpace(control.AttrOr("type", "text")))
	switch kind {
	case "submit", "button", "reset", "image", "file":
		return
	case "checkbox", "radio":
		if _, checked := control.Attr("checked"); !checked {
			return
		}
		data.Add(name, control.AttrOr("value", "on"))
	default:
		data.Add(name, control.AttrOr("value", ""))
	}
}

func collectSelect(data *FormData, name string, control *goquery.Selection) {
	options := control.Find("option")
	_, multiple := control.Attr("multiple")

	selected := options.FilterFunction(func(_ int, option *goquery.Selection) bool {
		if _, ok := option.Attr("disabled"); ok {
			return false
		}
		_, ok := option.Attr("selected")
		return ok
	})
	if selected.Length() == 0 && !multiple {
		selected = options.First()
	}
	if !multiple {
		selected = selected.Last()
	}
	selected.Each(func(_ int, option *goquery.Selection) {
		data.Add(name, optionValue(option))
	})
}

func optionValue(option *goquery.Selection) string {
	if value, ok := option.Attr("value"); ok {
		return value
	}
	return strings.TrimSpace(option.Text())
}
