package tui

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Kind tells the walker which prompt a field needs.
type Kind string

const (
	KindText        Kind = "text"
	KindPassword    Kind = "password"
	KindCheckbox    Kind = "checkbox"
	KindRadio       Kind = "radio"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
	KindTextArea    Kind = "textarea"
)

// Choice is one radio button or select option.
type Choice struct {
	Label    string
	Value    string
	Selected bool
	node     *html.Node
}

// Field is a promptable control of a rendered step.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Value    string
	Checked  bool
	Required bool
	Choices  []Choice
	node     *html.Node
}

// Action is an activatable control of a rendered step.
type Action struct {
	Label  string
	Cancel bool
	node   *html.Node
}

// View is a snapshot of the remote content of a controller.
type View struct {
	Heading string
	Step    int
	Fields  []Field
	Actions []Action
}

// Answer carries a prompt result. Only the member matching the field kind is
// read.
type Answer struct {
	Text    string
	Bool    bool
	Index   int
	Indices []int
}

var skippedInputs = map[string]struct{}{
	"hidden": {}, "submit": {}, "button": {}, "reset": {}, "image": {}, "file": {},
}

// snapshotFields lists the enabled, named controls under root in document
// order. Radio buttons sharing a name collapse into one field.
func snapshotFields(root *goquery.Selection) []Field {
	var fields []Field
	radios := make(map[string]int)

	root.Find("input, select, textarea").Each(func(_ int, control *goquery.Selection) {
		name := strings.TrimSpace(control.AttrOr("name", ""))
		if name == "" {
			return
		}
		if _, disabled := control.Attr("disabled"); disabled {
			return
		}
		_, required := control.Attr("required")
		field := Field{
			Name:     name,
			Label:    labelFor(root, control, name),
			Required: required,
			node:     control.Get(0),
		}

		switch goquery.NodeName(control) {
		case "textarea":
			field.Kind = KindTextArea
			field.Value = control.Text()
		case "select":
			field.Kind = KindSelect
			if _, multiple := control.Attr("multiple"); multiple {
				field.Kind = KindMultiSelect
			}
			control.Find("option").Each(func(_ int, option *goquery.Selection) {
				_, selected := option.Attr("selected")
				field.Choices = append(field.Choices, Choice{
					Label:    strings.TrimSpace(option.Text()),
					Value:    option.AttrOr("value", strings.TrimSpace(option.Text())),
					Selected: selected,
					node:     option.Get(0),
				})
			})
		default:
			kind := strings.ToLower(strings.TrimSpace(control.AttrOr("type", "text")))
			if _, skip := skippedInputs[kind]; skip {
				return
			}
			_, checked := control.Attr("checked")
			switch kind {
			case "password":
				field.Kind = KindPassword
				field.Value = control.AttrOr("value", "")
			case "checkbox":
				field.Kind = KindCheckbox
				field.Checked = checked
			case "radio":
				choice := Choice{
					Label:    labelFor(root, control, control.AttrOr("value", "on")),
					Value:    control.AttrOr("value", "on"),
					Selected: checked,
					node:     control.Get(0),
				}
				if pos, ok := radios[name]; ok {
					fields[pos].Choices = append(fields[pos].Choices, choice)
					return
				}
				radios[name] = len(fields)
				field.Kind = KindRadio
				field.Label = name
				field.node = nil
				field.Choices = []Choice{choice}
			default:
				field.Kind = KindText
				field.Value = control.AttrOr("value", "")
			}
		}
		fields = append(fields, field)
	})
	return fields
}

func labelFor(root, control *goquery.Selection, fallback string) string {
	if id := control.AttrOr("id", ""); id != "" {
		label := root.Find("label").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.AttrOr("for", "") == id
		})
		if text := strings.TrimSpace(label.First().Text()); text != "" {
			return text
		}
	}
	if text := strings.TrimSpace(control.Closest("label").Text()); text != "" {
		return text
	}
	if placeholder := strings.TrimSpace(control.AttrOr("placeholder", "")); placeholder != "" {
		return placeholder
	}
	return fallback
}

func actionLabel(control *goquery.Selection) string {
	if text := strings.TrimSpace(control.Text()); text != "" {
		return text
	}
	if value := strings.TrimSpace(control.AttrOr("value", "")); value != "" {
		return value
	}
	if name := strings.TrimSpace(control.AttrOr("name", "")); name != "" {
		return name
	}
	return "Submit"
}

// apply writes an answer back into the rendered markup so the next
// submission collects it.
func apply(root *goquery.Selection, field Field, answer Answer) {
	switch field.Kind {
	case KindText, KindPassword:
		root.FindNodes(field.node).SetAttr("value", answer.Text)
	case KindTextArea:
		root.FindNodes(field.node).SetText(answer.Text)
	case KindCheckbox:
		toggle(root.FindNodes(field.node), "checked", answer.Bool)
	case KindRadio:
		for i, choice := range field.Choices {
			toggle(root.FindNodes(choice.node), "checked", i == answer.Index)
		}
	case KindSelect:
		for i, choice := range field.Choices {
			toggle(root.FindNodes(choice.node), "selected", i == answer.Index)
		}
	case KindMultiSelect:
		picked := make(map[int]bool, len(answer.Indices))
		for _, idx := range answer.Indices {
			picked[idx] = true
		}
		for i, choice := range field.Choices {
			toggle(root.FindNodes(choice.node), "selected", picked[i])
		}
	}
}

func toggle(s *goquery.Selection, attr string, on bool) {
	if on {
		s.SetAttr(attr, attr)
		return
	}
	s.RemoveAttr(attr)
}

func (f Field) choiceLabels() []string {
	out := make([]string, len(f.Choices))
	for i, choice := range f.Choices {
		out[i] = choice.Label
	}
	return out
}

func (f Field) selectedIndices() []int {
	var out []int
	for i, choice := range f.Choices {
		if choice.Selected {
			out = append(out, i)
		}
	}
	return out
}
