package dom

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// EventActivate is the only event type pages dispatch to node listeners.
const EventActivate = "activate"

// Event is delivered to listeners when a node is activated.
type Event struct {
	Type   string
	Target *goquery.Selection

	defaultPrevented bool
}

// PreventDefault suppresses the page's default action for the event.
func (e *Event) PreventDefault() {
	if e != nil {
		e.defaultPrevented = true
	}
}

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool {
	return e != nil && e.defaultPrevented
}

// Listener handles an event.
type Listener func(*Event)

type listener struct {
	id uint64
	fn Listener
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) PageOption {
	return func(p *Page) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLoop runs the page on an existing loop. The page does not close a loop
// it did not create.
func WithLoop(loop *Loop) PageOption {
	return func(p *Page) {
		p.loop = loop
	}
}

// WithNavigator is called when an activation's default action navigates.
func WithNavigator(fn func(*url.URL)) PageOption {
	return func(p *Page) {
		p.navigator = fn
	}
}

// Page is a host document.
type Page struct {
	doc       *goquery.Document
	location  *url.URL
	loop      *Loop
	ownsLoop  bool
	logger    *zap.Logger
	navigator func(*url.URL)

	mu        sync.Mutex
	listeners map[*html.Node][]listener
	nextID    uint64
	focused   *html.Node
	shared    map[any]any
}

// NewPage parses markup as the document served at location.
func NewPage(location, markup string, options ...PageOption) (*Page, error) {
	loc, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return nil, fmt.Errorf("dom: parse location: %w", err)
	}
	if !loc.IsAbs() || loc.Host == "" {
		return nil, fmt.Errorf("dom: location %q must be absolute", location)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}

	p := &Page{
		doc:       doc,
		location:  loc,
		logger:    zap.NewNop(),
		listeners: make(map[*html.Node][]listener),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(p)
	}
	p.logger = p.logger.Named("page")
	if p.loop == nil {
		p.loop = NewLoop(p.logger)
		p.ownsLoop = true
	}
	return p, nil
}

// Shared returns the page-scoped value stored under key, storing the result
// of create first when the key is new. Keys follow context.Context rules: use
// an unexported type.
func (p *Page) Shared(key any, create func() any) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.shared[key]; ok {
		return v
	}
	if create == nil {
		return nil
	}
	if p.shared == nil {
		p.shared = make(map[any]any)
	}
	v := create()
	p.shared[key] = v
	return v
}

// Loop returns the loop the page runs on.
func (p *Page) Loop() *Loop {
	return p.loop
}

// Document returns the page document. Read it from loop tasks or after
// Settle.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// Location returns a copy of the page URL.
func (p *Page) Location() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()
	loc := *p.location
	return &loc
}

// Origin returns scheme://host of the page.
func (p *Page) Origin() string {
	loc := p.Location()
	return loc.Scheme + "://" + loc.Host
}

// Resolve resolves ref against the page location.
func (p *Page) Resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("dom: parse url %q: %w", ref, err)
	}
	return p.Location().ResolveReference(u), nil
}

// On attaches fn to the first node of target. The returned function detaches
// it.
func (p *Page) On(target *goquery.Selection, fn Listener) func() {
	if target == nil || target.Length() == 0 || fn == nil {
		return func() {}
	}
	node := target.Get(0)

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners[node] = append(p.listeners[node], listener{id: id, fn: fn})
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { p.off(node, id) })
	}
}

// ListenerCount reports how many listeners are attached to the first node of
// target.
func (p *Page) ListenerCount(target *goquery.Selection) int {
	if target == nil || target.Length() == 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners[target.Get(0)])
}

func (p *Page) off(node *html.Node, id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.listeners[node]
	for i, entry := range entries {
		if entry.id == id {
			entries = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(p.listeners, node)
		return
	}
	p.listeners[node] = entries
}

// Activate queues an activation of target on the loop.
func (p *Page) Activate(target *goquery.Selection) error {
	if target == nil || target.Length() == 0 {
		return errors.New("dom: activation target is empty")
	}
	target = target.First()
	if !p.loop.Post(func() { p.Dispatch(target) }) {
		return ErrLoopClosed
	}
	return nil
}

// Dispatch delivers an activation to the listeners of target and runs the
// default action unless a listener prevented it. It must run on the loop.
func (p *Page) Dispatch(target *goquery.Selection) *Event {
	ev := &Event{Type: EventActivate, Target: target}
	if target == nil || target.Length() == 0 {
		return ev
	}
	node := target.Get(0)

	p.mu.Lock()
	entries := append([]listener(nil), p.listeners[node]...)
	p.mu.Unlock()

	for _, entry := range entries {
		entry.fn(ev)
	}
	if !ev.DefaultPrevented() {
		p.defaultAction(target)
	}
	return ev
}

func (p *Page) defaultAction(target *goquery.Selection) {
	if goquery.NodeName(target) != "a" {
		return
	}
	href, ok := target.Attr("href")
	if !ok {
		return
	}
	next, err := p.Resolve(href)
	if err != nil {
		p.logger.Warn("ignoring navigation to malformed href", zap.String("href", href), zap.Error(err))
		return
	}
	p.Navigate(next)
}

// Navigate moves the page location to u and notifies the navigator. The
// document itself is left untouched; loading the next page is up to the
// navigator.
func (p *Page) Navigate(u *url.URL) {
	if u == nil {
		return
	}
	p.mu.Lock()
	next := *u
	p.location = &next
	navigator := p.navigator
	p.mu.Unlock()

	p.logger.Debug("navigate", zap.String("url", next.String()))
	if navigator != nil {
		navigator(&next)
	}
}

// Focus moves focus to the first node of target.
func (p *Page) Focus(target *goquery.Selection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if target == nil || target.Length() == 0 {
		p.focused = nil
		return
	}
	p.focused = target.Get(0)
}

// Focused returns the focused node, or nil.
func (p *Page) Focused() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

// Template returns the <template> element with the given id.
func (p *Page) Template(id string) (*goquery.Selection, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	found := p.doc.Find("template").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("id", "") == id
	})
	if found.Length() == 0 {
		return nil, false
	}
	return found.First(), true
}

// HTML serialises the current document.
func (p *Page) HTML() (string, error) {
	return goquery.OuterHtml(p.doc.Selection)
}

// Settle waits until the page loop is idle.
func (p *Page) Settle() {
	p.loop.Settle()
}

// Close stops the page loop when the page created it.
func (p *Page) Close() {
	if p.ownsLoop {
		p.loop.Close()
	}
}
