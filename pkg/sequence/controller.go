package sequence

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsequence/pkg/config"
	"github.com/goliatone/go-formsequence/pkg/dom"
	"github.com/goliatone/go-formsequence/pkg/errview"
	"github.com/goliatone/go-formsequence/pkg/fetch"
	"github.com/goliatone/go-formsequence/pkg/fragment"
	"github.com/goliatone/go-formsequence/pkg/request"
	"github.com/goliatone/go-formsequence/pkg/selector"
)

// State is the value of the host element's state attribute.
type State string

// Observable states. StateNone means the attribute is absent (idle or
// returned).
const (
	StateNone    State = ""
	StateLoading State = "loading"
	StateDone    State = "done"
	StateError   State = "error"
)

// Host element attributes read at mount time and written while running.
const (
	AttrCapture = "capture"
	AttrForm    = "form"
	AttrCancel  = "cancel"
	AttrState   = "state"
	AttrActive  = "active"
	AttrStep    = "data-step"
)

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets the configuration.
func WithConfig(cfg config.Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithFetcher sets the retrieval service.
func WithFetcher(f fetch.Fetcher) Option {
	return func(c *Controller) {
		c.fetcher = f
	}
}

// WithRegistry shares a registry between controllers so starting one
// sequence closes the others. Without it a controller joins the registry of
// its page, see PageRegistry.
func WithRegistry(r *Registry) Option {
	return func(c *Controller) {
		c.registry = r
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithErrorRenderer replaces the error view renderer.
func WithErrorRenderer(r *errview.Renderer) Option {
	return func(c *Controller) {
		c.errors = r
	}
}

// WithFragmentReader replaces the reader used to parse responses.
func WithFragmentReader(r *fragment.Reader) Option {
	return func(c *Controller) {
		c.reader = r
	}
}

// WithGroup overrides the registry group. Defaults to the host tag name.
func WithGroup(group string) Option {
	return func(c *Controller) {
		c.group = strings.ToLower(strings.TrimSpace(group))
	}
}

// Controller drives one form sequence mounted on a host element.
type Controller struct {
	id       uuid.UUID
	group    string
	page     *dom.Page
	host     *goquery.Selection
	cfg      config.Config
	fetcher  fetch.Fetcher
	builder  *request.Builder
	reader   *fragment.Reader
	errors   *errview.Renderer
	registry *Registry
	logger   *zap.Logger
	events   emitter

	step     int
	state    State
	active   bool
	homePath string
	inert    error

	origin         *goquery.Selection
	originURL      string
	originSlot     originPosition
	unlistenOrigin func()

	hidden       []request.HiddenField
	formFilter   selector.Matcher
	cancelFilter selector.Matcher

	frame          *frame
	actions        []func()
	cancelControl  *goquery.Selection
	submitControls []*goquery.Selection
	documentURL    *url.URL
	lastRequest    *request.Descriptor

	generation uint64
	cancel     context.CancelFunc
}

// New creates a controller for host, the first node of the selection. The
// controller is not mounted; call Mount from a loop task.
func New(page *dom.Page, host *goquery.Selection, options ...Option) (*Controller, error) {
	if page == nil {
		return nil, errors.New("sequence: page is required")
	}
	if host == nil || host.Length() == 0 {
		return nil, errors.New("sequence: host element is required")
	}

	c := &Controller{
		id:     uuid.New(),
		page:   page,
		host:   host.First(),
		cfg:    config.Defaults(),
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.group == "" {
		c.group = goquery.NodeName(c.host)
	}
	c.logger = c.logger.Named("sequence").With(
		zap.String("controller", c.id.String()),
		zap.String("group", c.group),
	)

	if c.fetcher == nil {
		f, err := fetch.NewHTTP(
			fetch.WithBaseURL(page.Location()),
			fetch.WithLogger(c.logger),
			fetch.WithUserAgent(c.cfg.UserAgent),
		)
		if err != nil {
			return nil, err
		}
		c.fetcher = f
	}
	if c.reader == nil {
		c.reader = fragment.NewReader(fragment.WithSanitize(c.cfg.Sanitize))
	}
	if c.errors == nil {
		r, err := errview.NewRenderer(
			errview.WithSlots(errview.Slots{
				Title:   c.cfg.ErrorTemplateTitlePlace,
				Message: c.cfg.ErrorTemplateMessagePlace,
			}),
			errview.WithTemplateDir(c.cfg.ErrorTemplateDir),
			errview.WithLogger(c.logger),
		)
		if err != nil {
			return nil, err
		}
		c.errors = r
	}
	if c.registry == nil {
		c.registry = PageRegistry(page)
	}
	c.builder = request.NewBuilder(c.cfg.Headers())
	return c, nil
}

// On subscribes fn to the named lifecycle event.
func (c *Controller) On(name string, fn Handler) func() {
	return c.events.on(name, fn)
}

// OnAny subscribes fn to every lifecycle event.
func (c *Controller) OnAny(fn Handler) func() {
	return c.events.on("", fn)
}

// ID identifies the controller in its registry.
func (c *Controller) ID() uuid.UUID { return c.id }

// Group returns the registry group.
func (c *Controller) Group() string { return c.group }

// Page returns the page the controller is mounted on.
func (c *Controller) Page() *dom.Page { return c.page }

// Host returns the host element.
func (c *Controller) Host() *goquery.Selection { return c.host }

// Step returns the number of forms rendered since the last mount or close.
func (c *Controller) Step() int { return c.step }

// State returns the current observable state.
func (c *Controller) State() State { return c.state }

// Active reports whether a step has been rendered since the last close.
func (c *Controller) Active() bool { return c.active }

// Inert returns the reason the last mount left the controller without
// listeners, or nil when it is wired.
func (c *Controller) Inert() error { return c.inert }

// Origin returns the origin element, if any.
func (c *Controller) Origin() *goquery.Selection { return c.origin }

// OriginURL returns the absolute URL the sequence starts from.
func (c *Controller) OriginURL() string { return c.originURL }

// Remote returns the remote container, or nil before the first step.
func (c *Controller) Remote() *goquery.Selection {
	if c.frame == nil {
		return nil
	}
	return c.frame.remote
}

// HiddenFields returns the hidden fields replayed into every submission.
func (c *Controller) HiddenFields() []request.HiddenField {
	return append([]request.HiddenField(nil), c.hidden...)
}

func (c *Controller) emit(name string, payload any) {
	c.events.emit(Event{Name: name, Controller: c, Payload: payload})
}

func (c *Controller) setState(state State) {
	c.state = state
	if state == StateNone {
		c.host.RemoveAttr(AttrState)
		return
	}
	c.host.SetAttr(AttrState, string(state))
}

func (c *Controller) setActive(active bool) {
	c.active = active
	if active {
		c.host.SetAttr(AttrActive, "")
		return
	}
	c.host.RemoveAttr(AttrActive)
}

func (c *Controller) setStep(step int) {
	c.step = step
	c.host.SetAttr(AttrStep, strconv.Itoa(step))
}

func (c *Controller) engaged() bool {
	return c.active || c.state == StateLoading || c.frame != nil
}

func (c *Controller) closeIfEngaged() bool {
	if !c.engaged() {
		return false
	}
	c.Close()
	return true
}
