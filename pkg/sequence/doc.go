// Package sequence implements the form-sequence controller: a state machine
// that turns an origin link inside a host element into a multi-step form
// wizard rendered in place.
//
// Activating the origin fetches the linked page, extracts a form (or an error
// view) and renders it into the controller's remote container. Every submit
// control of the rendered form re-enters the cycle with the form as the next
// request. The sequence ends when a response resolves back to the hosting
// page's own path (the return event) or when the cancel control closes it.
//
// Controllers run on a dom.Page loop. Exported methods that mutate state
// (Mount, HandleNextStep, Close, Unmount) must be called from a loop task;
// use Page.Loop().Do from other goroutines.
package sequence
