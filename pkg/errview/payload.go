// Package errview turns failed step responses into an error view. A payload
// (title and message) is extracted either from a JSON body or from two
// selectors applied to the parsed HTML, then written into a clone of the
// host page's error template.
package errview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Payload is a structured remote error.
type Payload struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// Empty reports whether neither title nor message is set.
func (p Payload) Empty() bool {
	return p.Title == "" && p.Message == ""
}

// RemoteError is the error carried by the error lifecycle event when the
// server answered with a failure status.
type RemoteError struct {
	Title   string
	Message string
	Status  int
}

func (e *RemoteError) Error() string {
	parts := make([]string, 0, 2)
	if e.Title != "" {
		parts = append(parts, e.Title)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("errview: remote error (status %d)", e.Status)
	}
	return "errview: remote error: " + strings.Join(parts, ": ")
}

// Payload returns the title and message as a Payload.
func (e *RemoteError) Payload() Payload {
	return Payload{Title: e.Title, Message: e.Message}
}

// jsonBody accepts {"error": "...", "message": "..."} plus common variants:
// "title" as an alias of error, message as a list, and a field keyed
// "errors" map that is flattened into the message.
type jsonBody struct {
	Error   messages            `json:"error"`
	Title   string              `json:"title"`
	Message messages            `json:"message"`
	Errors  map[string]messages `json:"errors"`
}

type messages []string

func (m *messages) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*m = messages{single}
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*m = messages(list)
	case '{':
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &nested); err != nil {
			return err
		}
		*m = messages{nested.Message}
	default:
		*m = messages{string(data)}
	}
	return nil
}

// FromJSON decodes a JSON error body.
func FromJSON(body string) (Payload, error) {
	var decoded jsonBody
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return Payload{}, fmt.Errorf("errview: decode json payload: %w", err)
	}

	title := strings.Join(normalizeMessages(decoded.Error), "\n")
	if title == "" {
		title = strings.TrimSpace(decoded.Title)
	}

	lines := normalizeMessages(decoded.Message)
	if len(lines) == 0 && len(decoded.Errors) > 0 {
		lines = flattenFieldErrors(decoded.Errors)
	}

	return Payload{
		Title:   title,
		Message: strings.Join(lines, "\n"),
	}, nil
}

// FromDocument reads the text of the first nodes matching the title and
// message selectors. Missing nodes leave the corresponding field empty.
func FromDocument(root *goquery.Selection, titleSelector, messageSelector string) Payload {
	return Payload{
		Title:   firstText(root, titleSelector),
		Message: firstText(root, messageSelector),
	}
}

func firstText(root *goquery.Selection, css string) string {
	if root == nil || strings.TrimSpace(css) == "" {
		return ""
	}
	found := root.Find(css)
	if found.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(found.First().Text())
}

func flattenFieldErrors(fields map[string]messages) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		for _, message := range normalizeMessages(fields[key]) {
			if name := strings.TrimSpace(key); name != "" {
				message = name + ": " + message
			}
			out = append(out, message)
		}
	}
	return normalizeMessages(out)
}

func normalizeMessages(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, message := range in {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
