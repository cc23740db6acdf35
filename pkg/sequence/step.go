package sequence

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsequence/pkg/dom"
	"github.com/goliatone/go-formsequence/pkg/errview"
	"github.com/goliatone/go-formsequence/pkg/fetch"
	"github.com/goliatone/go-formsequence/pkg/fragment"
	"github.com/goliatone/go-formsequence/pkg/request"
)

// Target is the source of the next request. Form wins over URL. A target
// with neither replays the previous request.
type Target struct {
	URL  string
	Form *goquery.Selection
	// Extra is the activated submit control's own name/value pair.
	Extra *request.Field
}

// Outcome is the result of classifying a response.
type Outcome int

const (
	// OutcomeReturn means the response resolved back to the home path.
	OutcomeReturn Outcome = iota + 1
	// OutcomeSuccess means the body parsed and holds the next form.
	OutcomeSuccess
	// OutcomeFailure means the server answered with a failure status.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReturn:
		return "return"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Classification is derived once per response and drives exactly one render
// path.
type Classification struct {
	Outcome  Outcome
	Response *fetch.Response
	// URL is the absolute final URL of the response.
	URL *url.URL
	// Document is set for OutcomeSuccess and for HTML failures.
	Document *fragment.Fragment
	IsJSON   bool
}

// HandleNextStep runs one step: it prevents the default action of ev, closes
// the other controllers of the group, issues the request described by t and
// schedules the render on the page loop. It must run on the page loop.
func (c *Controller) HandleNextStep(ev *dom.Event, t Target) error {
	if ev != nil {
		ev.PreventDefault()
	}
	if c.inert != nil {
		return c.inert
	}

	if closed := c.registry.CloseOthers(c); closed > 0 {
		c.logger.Debug("closed other sequences", zap.Int("count", closed))
	}
	c.ensureFrame()

	desc, err := c.describe(t)

	c.setState(StateLoading)
	c.emit(EventStart, nil)

	c.generation++
	gen := c.generation
	c.cancelInflight()

	if err != nil {
		c.fail(err)
		return err
	}
	c.lastRequest = &desc

	ctx, cancel := c.requestContext()
	c.cancel = cancel
	fetcher := c.fetcher

	c.logger.Debug("requesting step",
		zap.String("url", desc.URL),
		zap.String("method", desc.Method),
		zap.Uint64("generation", gen),
	)
	started := c.page.Loop().GoRecover(func() func() {
		resp, err := fetcher.Fetch(ctx, desc)
		return func() { c.complete(gen, desc, resp, err) }
	}, func(p *dom.PanicError) func() {
		return func() { c.complete(gen, desc, nil, p) }
	})
	if !started {
		cancel()
		c.cancel = nil
		c.fail(dom.ErrLoopClosed)
		return dom.ErrLoopClosed
	}
	return nil
}

func (c *Controller) describe(t Target) (request.Descriptor, error) {
	var extra []request.Field
	if t.Extra != nil && t.Extra.Name != "" {
		extra = append(extra, *t.Extra)
	}
	switch {
	case t.Form != nil && t.Form.Length() > 0:
		desc, err := c.builder.FromForm(t.Form, c.documentURL, extra...)
		if err != nil {
			return request.Descriptor{}, fmt.Errorf("sequence: describe form: %w", err)
		}
		return desc, nil
	case t.URL != "":
		return c.builder.FromURL(t.URL), nil
	case c.lastRequest != nil:
		desc := *c.lastRequest
		desc.Headers = desc.Headers.Clone()
		if c.lastRequest.Body != nil {
			desc.Body = append(request.FormData{}, c.lastRequest.Body...)
		}
		return desc, nil
	default:
		return request.Descriptor{}, ErrNoTarget
	}
}

func (c *Controller) requestContext() (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout > 0 {
		return context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	}
	return context.WithCancel(context.Background())
}

func (c *Controller) cancelInflight() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// complete runs on the loop once the fetch finished.
func (c *Controller) complete(gen uint64, desc request.Descriptor, resp *fetch.Response, err error) {
	if gen != c.generation {
		c.logger.Debug("dropping stale response", zap.Uint64("generation", gen), zap.Uint64("current", c.generation))
		return
	}
	c.cancelInflight()

	if err != nil {
		c.fail(fmt.Errorf("sequence: fetch: %w", err))
		return
	}

	if resp != nil && resp.URL == "" {
		resp.URL = desc.URL
	}
	cls, err := c.Classify(resp)
	if err != nil {
		c.fail(err)
		return
	}

	switch cls.Outcome {
	case OutcomeReturn:
		c.setState(StateNone)
		c.logger.Debug("sequence returned", zap.String("url", cls.URL.String()), zap.Int("step", c.step))
		c.emit(EventReturn, ReturnPayload{Response: resp, URL: cls.URL.String()})
	case OutcomeSuccess:
		form := c.locateForm(cls.Document)
		if form == nil {
			c.fail(ErrFormNotFound)
			return
		}
		c.commit(gen, func() { c.insertForm(form, cls.URL) })
	case OutcomeFailure:
		payload := c.errorPayload(cls)
		status := resp.Status
		c.commit(gen, func() { c.insertError(payload, status) })
	}
}

// Classify sorts resp into one outcome. Return responses are never parsed.
func (c *Controller) Classify(resp *fetch.Response) (Classification, error) {
	if resp == nil {
		return Classification{}, errors.New("sequence: fetch: empty response")
	}
	final, err := c.page.Resolve(resp.URL)
	if err != nil {
		return Classification{}, fmt.Errorf("sequence: response url: %w", err)
	}
	cls := Classification{Response: resp, URL: final, IsJSON: resp.IsJSON()}

	if homePath(final) == c.homePath {
		cls.Outcome = OutcomeReturn
		return cls, nil
	}
	if resp.OK {
		cls.Outcome = OutcomeSuccess
	} else {
		cls.Outcome = OutcomeFailure
		if cls.IsJSON {
			return cls, nil
		}
	}

	doc, err := c.reader.Parse(resp.Body)
	if err != nil {
		return Classification{}, fmt.Errorf("sequence: parse response: %w", err)
	}
	cls.Document = doc
	return cls, nil
}

func (c *Controller) locateForm(doc *fragment.Fragment) *goquery.Selection {
	if doc == nil {
		return nil
	}
	if !c.formFilter.Empty() {
		if found := doc.Find(c.formFilter).First(); found != nil && found.Length() > 0 {
			return found
		}
	}
	found := doc.Query("form").First()
	if found == nil || found.Length() == 0 {
		return nil
	}
	return found
}

func (c *Controller) errorPayload(cls Classification) errview.Payload {
	if cls.IsJSON {
		payload, err := errview.FromJSON(cls.Response.Body)
		if err != nil {
			c.logger.Warn("failure body is not valid JSON", zap.Error(err))
		}
		return payload
	}
	if cls.Document == nil {
		return errview.Payload{}
	}
	return errview.FromDocument(cls.Document.Root(), c.cfg.ErrorTitleSelector, c.cfg.ErrorMessageSelector)
}

// commit queues a render as its own loop task, after classification has
// finished. Renders of superseded requests are skipped.
func (c *Controller) commit(gen uint64, render func()) {
	posted := c.page.Loop().Post(func() {
		if gen != c.generation {
			c.logger.Debug("dropping stale render", zap.Uint64("generation", gen))
			return
		}
		render()
	})
	if !posted {
		c.logger.Warn("page loop closed before render")
	}
}

func (c *Controller) fail(err error) {
	c.setState(StateError)
	c.logger.Error("step failed", zap.Error(err))
	c.emit(EventError, err)
}
