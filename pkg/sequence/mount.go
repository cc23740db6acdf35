package sequence

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/goliatone/go-formsequence/pkg/dom"
	"github.com/goliatone/go-formsequence/pkg/request"
	"github.com/goliatone/go-formsequence/pkg/selector"
)

// originPosition remembers where the origin element lived before the frame
// adopted it.
type originPosition struct {
	parent *html.Node
	next   *html.Node
}

// Mount (re)initialises the controller from the host markup. It must run on
// the page loop. A controller whose origin cannot be used is left inert and
// Mount still returns nil; Inert reports why.
func (c *Controller) Mount() error {
	c.releaseOrigin()
	c.inert = nil
	c.setStep(0)
	c.homePath = homePath(c.page.Location())
	c.documentURL = c.page.Location()
	c.lastRequest = nil
	c.hidden = nil
	c.origin = nil
	c.originURL = ""

	origin := c.findOrigin()
	if origin == nil {
		c.inert = ErrNoOrigin
		c.logger.Debug("no origin element, controller inert")
		return nil
	}
	c.origin = origin
	c.originSlot = originPosition{
		parent: origin.Get(0).Parent,
		next:   origin.Get(0).NextSibling,
	}

	start, err := c.originTarget(origin)
	if err != nil {
		c.inert = err
		c.logger.Warn("origin rejected, controller inert",
			zap.String("href", origin.AttrOr("href", "")),
			zap.Error(err),
		)
		return nil
	}
	c.originURL = start.String()

	formFilter, err := selector.Compile(c.host.AttrOr(AttrForm, ""))
	if err != nil {
		c.inert = err
		return fmt.Errorf("sequence: form filter: %w", err)
	}
	cancelFilter, err := selector.Compile(c.host.AttrOr(AttrCancel, ""))
	if err != nil {
		c.inert = err
		return fmt.Errorf("sequence: cancel filter: %w", err)
	}
	c.formFilter = formFilter
	c.cancelFilter = cancelFilter
	c.hidden = request.HiddenFields(c.host.ChildrenFiltered("input"))

	c.unlistenOrigin = c.page.On(origin, func(ev *dom.Event) {
		c.HandleNextStep(ev, Target{URL: c.originURL})
	})
	c.registry.Register(c)

	c.logger.Debug("mounted",
		zap.String("origin", c.originURL),
		zap.String("home", c.homePath),
		zap.Int("hidden_fields", len(c.hidden)),
	)
	return nil
}

// Unmount detaches every listener, tears down rendered content and removes
// the controller from its registry.
func (c *Controller) Unmount() {
	c.teardown()
	c.releaseOrigin()
	c.registry.Unregister(c)
}

func (c *Controller) releaseOrigin() {
	if c.unlistenOrigin != nil {
		c.unlistenOrigin()
		c.unlistenOrigin = nil
	}
}

func (c *Controller) findOrigin() *goquery.Selection {
	if capture := strings.TrimSpace(c.host.AttrOr(AttrCapture, "")); capture != "" {
		m, err := selector.Compile(capture)
		if err != nil {
			c.logger.Warn("capture filter does not compile", zap.String("capture", capture), zap.Error(err))
		} else if found := m.First(c.host); found.Length() > 0 {
			return found
		}
	}
	if anchor := c.host.Find("a").First(); anchor.Length() > 0 {
		return anchor
	}
	return nil
}

func (c *Controller) originTarget(origin *goquery.Selection) (*url.URL, error) {
	href, ok := origin.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return nil, ErrInvalidOrigin
	}
	target, err := c.page.Resolve(href)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidOrigin, target.Scheme)
	}
	if !sameOrigin(target, c.page.Location()) {
		return nil, fmt.Errorf("%w: %s", ErrCrossOrigin, target.Host)
	}
	return target, nil
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

func homePath(u *url.URL) string {
	if u == nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// restoreOrigin moves the origin element back to where Mount found it.
func (c *Controller) restoreOrigin() {
	if c.origin == nil || c.originSlot.parent == nil {
		return
	}
	node := c.origin.Get(0)
	if node.Parent == c.originSlot.parent {
		return
	}
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
	next := c.originSlot.next
	if next != nil && next.Parent != c.originSlot.parent {
		next = nil
	}
	c.originSlot.parent.InsertBefore(node, next)
}
