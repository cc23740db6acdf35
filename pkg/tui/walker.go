// Package tui walks a form sequence on a terminal: every rendered step is
// turned into prompts, the answers are written back into the form and the
// chosen control is activated.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsequence/pkg/errview"
	"github.com/goliatone/go-formsequence/pkg/sequence"
)

// Result describes how a walk ended.
type Result struct {
	Steps     int
	ReturnURL string
}

// Option configures a Walker.
type Option func(*Walker)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(w *Walker) {
		if driver != nil {
			w.driver = driver
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Walker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMaxSteps bounds the number of activations. Zero means unbounded.
func WithMaxSteps(n int) Option {
	return func(w *Walker) {
		if n >= 0 {
			w.maxSteps = n
		}
	}
}

// Walker drives one mounted controller from a terminal.
type Walker struct {
	ctrl     *sequence.Controller
	driver   PromptDriver
	logger   *zap.Logger
	maxSteps int

	mu     sync.Mutex
	events []sequence.Event
}

// NewWalker returns a walker for ctrl. The controller must be mounted.
func NewWalker(ctrl *sequence.Controller, options ...Option) *Walker {
	w := &Walker{
		ctrl:   ctrl,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(w)
	}
	if w.driver == nil {
		w.driver = NewSurveyDriver()
	}
	w.logger = w.logger.Named("tui")
	return w
}

// Run activates the origin and keeps prompting until the sequence returns,
// fails in transport, or the user cancels. It must not run on the page loop.
func (w *Walker) Run(ctx context.Context) (Result, error) {
	off := w.ctrl.OnAny(w.record)
	defer off()

	var origin *goquery.Selection
	var inert error
	if err := w.ctrl.Page().Loop().Do(func() {
		origin = w.ctrl.Origin()
		inert = w.ctrl.Inert()
	}); err != nil {
		return Result{}, err
	}
	if inert != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNotStarted, inert)
	}

	target := origin
	for activations := 0; ; activations++ {
		if w.maxSteps > 0 && activations >= w.maxSteps {
			return Result{Steps: w.step()}, fmt.Errorf("tui: stopped after %d activations", activations)
		}
		if err := ctx.Err(); err != nil {
			return Result{Steps: w.step()}, err
		}

		w.drain()
		if err := w.ctrl.Page().Activate(target); err != nil {
			return Result{Steps: w.step()}, err
		}
		w.ctrl.Page().Settle()

		ev, ok := w.outcome()
		if !ok {
			if activations == 0 {
				return Result{}, ErrNotStarted
			}
			return Result{Steps: w.step()}, ErrCancelled
		}

		switch ev.Name {
		case sequence.EventReturn:
			payload, _ := ev.Payload.(sequence.ReturnPayload)
			result := Result{Steps: w.step(), ReturnURL: payload.URL}
			_ = w.driver.Info(ctx, "Finished: "+payload.URL)
			return result, nil
		case sequence.EventError:
			var remote *errview.RemoteError
			if !errors.As(ev.Err(), &remote) {
				return Result{Steps: w.step()}, ev.Err()
			}
			if err := w.driver.Info(ctx, describeRemote(remote)); err != nil {
				return Result{Steps: w.step()}, err
			}
		}

		next, err := w.prompt(ctx)
		if err != nil {
			return Result{Steps: w.step()}, err
		}
		target = next
	}
}

func (w *Walker) record(ev sequence.Event) {
	w.mu.Lock()
	w.events = append(w.events, ev)
	w.mu.Unlock()
}

func (w *Walker) drain() {
	w.mu.Lock()
	w.events = nil
	w.mu.Unlock()
}

// outcome returns the last event of the settled activation that ends a step.
func (w *Walker) outcome() (sequence.Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.events) - 1; i >= 0; i-- {
		switch w.events[i].Name {
		case sequence.EventSuccess, sequence.EventError, sequence.EventReturn:
			return w.events[i], true
		}
	}
	return sequence.Event{}, false
}

func (w *Walker) step() int {
	var step int
	_ = w.ctrl.Page().Loop().Do(func() { step = w.ctrl.Step() })
	return step
}

// Snapshot reads the current remote content of the controller.
func (w *Walker) Snapshot() (View, error) {
	var view View
	err := w.ctrl.Page().Loop().Do(func() {
		view = w.snapshot()
	})
	return view, err
}

func (w *Walker) snapshot() View {
	view := View{Step: w.ctrl.Step()}
	remote := w.ctrl.Remote()
	if remote == nil {
		return view
	}
	if heading := w.ctrl.Host().Find(`[role="heading"]`).First(); heading.Length() > 0 {
		view.Heading = strings.TrimSpace(heading.Text())
	}
	view.Fields = snapshotFields(remote)

	cancel, submits := w.ctrl.Controls()
	for _, control := range submits {
		view.Actions = append(view.Actions, Action{Label: actionLabel(control), node: control.Get(0)})
	}
	if cancel != nil && cancel.Length() > 0 {
		view.Actions = append(view.Actions, Action{Label: actionLabel(cancel), Cancel: true, node: cancel.Get(0)})
	}
	return view
}

// prompt asks for every field of the current view, writes the answers back
// and returns the control to activate next.
func (w *Walker) prompt(ctx context.Context) (*goquery.Selection, error) {
	view, err := w.Snapshot()
	if err != nil {
		return nil, err
	}
	if view.Heading != "" {
		if err := w.driver.Info(ctx, fmt.Sprintf("%s (step %d)", view.Heading, view.Step)); err != nil {
			return nil, err
		}
	}

	answers := make([]Answer, len(view.Fields))
	for i, field := range view.Fields {
		answer, err := w.ask(ctx, field)
		if err != nil {
			return nil, err
		}
		answers[i] = answer
	}

	action, err := w.chooseAction(ctx, view.Actions)
	if err != nil {
		return nil, err
	}

	var target *goquery.Selection
	err = w.ctrl.Page().Loop().Do(func() {
		remote := w.ctrl.Remote()
		if remote == nil {
			return
		}
		for i, field := range view.Fields {
			apply(remote, field, answers[i])
		}
		target = remote.FindNodes(action.node)
	})
	if err != nil {
		return nil, err
	}
	if target == nil || target.Length() == 0 {
		return nil, ErrNoActions
	}
	w.logger.Debug("activating", zap.String("action", action.Label), zap.Bool("cancel", action.Cancel))
	return target, nil
}

func (w *Walker) ask(ctx context.Context, field Field) (Answer, error) {
	var validate func(string) error
	if field.Required {
		validate = func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", field.Label)
			}
			return nil
		}
	}

	switch field.Kind {
	case KindPassword:
		text, err := w.driver.Password(ctx, InputConfig{Message: field.Label, Default: field.Value, Validator: validate})
		return Answer{Text: text}, err
	case KindTextArea:
		text, err := w.driver.TextArea(ctx, TextAreaConfig{Message: field.Label, Default: field.Value})
		return Answer{Text: text}, err
	case KindCheckbox:
		ok, err := w.driver.Confirm(ctx, ConfirmConfig{Message: field.Label, Default: field.Checked})
		return Answer{Bool: ok}, err
	case KindRadio, KindSelect:
		def := 0
		if selected := field.selectedIndices(); len(selected) > 0 {
			def = selected[len(selected)-1]
		}
		idx, err := w.driver.Select(ctx, SelectConfig{Message: field.Label, Options: field.choiceLabels(), DefaultIndex: def})
		return Answer{Index: idx}, err
	case KindMultiSelect:
		picked, err := w.driver.MultiSelect(ctx, SelectConfig{Message: field.Label, Options: field.choiceLabels(), Defaults: field.selectedIndices()})
		return Answer{Indices: picked}, err
	default:
		text, err := w.driver.Input(ctx, InputConfig{Message: field.Label, Default: field.Value, Validator: validate})
		return Answer{Text: text}, err
	}
}

func (w *Walker) chooseAction(ctx context.Context, actions []Action) (Action, error) {
	switch len(actions) {
	case 0:
		return Action{}, ErrNoActions
	case 1:
		return actions[0], nil
	}
	labels := make([]string, len(actions))
	for i, action := range actions {
		labels[i] = action.Label
	}
	idx, err := w.driver.Select(ctx, SelectConfig{Message: "Continue with", Options: labels})
	if err != nil {
		return Action{}, err
	}
	if idx < 0 || idx >= len(actions) {
		return Action{}, fmt.Errorf("tui: invalid action index %d", idx)
	}
	return actions[idx], nil
}

func describeRemote(err *errview.RemoteError) string {
	parts := []string{"Error"}
	if err.Title != "" {
		parts = append(parts, err.Title)
	}
	if err.Message != "" {
		parts = append(parts, err.Message)
	}
	return strings.Join(parts, ": ")
}
