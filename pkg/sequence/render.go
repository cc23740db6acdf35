package sequence

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/goliatone/go-formsequence/pkg/dom"
	"github.com/goliatone/go-formsequence/pkg/errview"
	"github.com/goliatone/go-formsequence/pkg/request"
	"github.com/goliatone/go-formsequence/pkg/selector"
)

var submitMatcher = selector.MustCompileCSS(`[type="submit"], button:not([type])`)

// frame is the markup a controller appends to its host on the first step.
type frame struct {
	heading *goquery.Selection
	origin  *goquery.Selection
	remote  *goquery.Selection
	nodes   []*html.Node
}

func (c *Controller) ensureFrame() {
	if c.frame != nil {
		return
	}
	heading := element("div", html.Attribute{Key: "role", Val: "heading"})
	originSlot := element("div", html.Attribute{Key: "origin"})
	remote := element("div", html.Attribute{Key: "remote"}, html.Attribute{Key: "tabindex", Val: "-1"})

	if c.origin != nil {
		if text := strings.TrimSpace(c.origin.Text()); text != "" {
			heading.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		}
		node := c.origin.Get(0)
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
		originSlot.AppendChild(node)
	}

	host := c.host.Get(0)
	nodes := []*html.Node{heading, originSlot, remote}
	for _, n := range nodes {
		host.AppendChild(n)
	}
	c.frame = &frame{
		heading: c.host.FindNodes(heading),
		origin:  c.host.FindNodes(originSlot),
		remote:  c.host.FindNodes(remote),
		nodes:   nodes,
	}
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// insertForm renders a successful step. form belongs to the fetched fragment;
// the remote slot receives a fresh parse of its markup.
func (c *Controller) insertForm(form *goquery.Selection, documentURL *url.URL) {
	for _, field := range c.hidden {
		if hasNamedInput(form, field.Name) {
			continue
		}
		form.AppendHtml(field.Markup())
	}

	markup, err := goquery.OuterHtml(form)
	if err != nil {
		c.fail(err)
		return
	}
	remote := c.frame.remote
	remote.SetHtml(markup)
	c.documentURL = documentURL

	c.captureNextActions(remote)
	c.setActive(true)
	c.setStep(c.step + 1)

	if input := firstVisibleInput(remote); input.Length() > 0 {
		c.page.Focus(input)
	}

	c.setState(StateDone)
	c.logger.Debug("form rendered", zap.Int("step", c.step), zap.String("document", documentURL.String()))
	c.emit(EventDone, nil)
	c.emit(EventSuccess, nil)
}

// insertError renders a failure step from the page error template, or the
// built-in one when the page has none.
func (c *Controller) insertError(p errview.Payload, status int) {
	tmpl, _ := c.page.Template(c.cfg.ErrorTemplateID)
	markup, err := c.errors.Render(tmpl, p)
	if err != nil {
		c.fail(err)
		return
	}
	remote := c.frame.remote
	remote.SetHtml(markup)

	c.captureNextActions(remote)
	c.setActive(true)
	c.page.Focus(remote)

	c.setState(StateDone)
	c.emit(EventDone, nil)
	c.emit(EventError, &errview.RemoteError{Title: p.Title, Message: p.Message, Status: status})
}

// captureNextActions wires the cancel control and every submit control found
// under root. Earlier captures are released first.
func (c *Controller) captureNextActions(root *goquery.Selection) {
	c.releaseActions()

	cancel := c.cancelFilter.First(root)
	if cancel.Length() > 0 {
		c.cancelControl = cancel
		c.actions = append(c.actions, c.page.On(cancel, func(ev *dom.Event) {
			ev.PreventDefault()
			c.Close()
		}))
	}

	submitMatcher.Find(root).Each(func(_ int, control *goquery.Selection) {
		if cancel.Length() > 0 && control.Get(0) == cancel.Get(0) {
			return
		}
		c.submitControls = append(c.submitControls, control)
		c.actions = append(c.actions, c.page.On(control, func(ev *dom.Event) {
			c.submit(ev, control)
		}))
	})
}

func (c *Controller) submit(ev *dom.Event, control *goquery.Selection) {
	t := Target{Form: control.Closest("form")}
	if name := strings.TrimSpace(control.AttrOr("name", "")); name != "" {
		t.Extra = &request.Field{Name: name, Value: control.AttrOr("value", "")}
	}
	if err := c.HandleNextStep(ev, t); err != nil {
		c.logger.Debug("submit did not start a step", zap.Error(err))
	}
}

func (c *Controller) releaseActions() {
	for _, release := range c.actions {
		release()
	}
	c.actions = nil
	c.cancelControl = nil
	c.submitControls = nil
}

// Controls returns the wired cancel control (nil when absent) and the wired
// submit controls in document order. It must run on the page loop.
func (c *Controller) Controls() (*goquery.Selection, []*goquery.Selection) {
	return c.cancelControl, append([]*goquery.Selection(nil), c.submitControls...)
}

func hasNamedInput(form *goquery.Selection, name string) bool {
	return form.Find("input").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("name", "") == name
	}).Length() > 0
}

func firstVisibleInput(root *goquery.Selection) *goquery.Selection {
	return root.Find("input").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return !strings.EqualFold(s.AttrOr("type", ""), "hidden")
	}).First()
}
