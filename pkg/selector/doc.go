// Package selector turns the logical names used in form-sequence markup
// attributes (capture, form, cancel) into CSS selectors that match an element
// either by id or by name attribute. A list such as "this, or, that" expands
// to one id selector and one name selector per entry.
package selector
