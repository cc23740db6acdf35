package errview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsequence/pkg/render/template"
	"github.com/goliatone/go-formsequence/pkg/render/template/gotemplate"
)

// Slots names where a payload lands inside an error template.
type Slots struct {
	Title   string
	Message string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSlots overrides the title and message slot selectors.
func WithSlots(slots Slots) Option {
	return func(r *Renderer) {
		if trimmed := strings.TrimSpace(slots.Title); trimmed != "" {
			r.slots.Title = trimmed
		}
		if trimmed := strings.TrimSpace(slots.Message); trimmed != "" {
			r.slots.Message = trimmed
		}
	}
}

// WithEngine replaces the engine used for the fallback template.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		r.engine = engine
	}
}

// WithTemplateDir lets error.tpl in dir replace the embedded default
// template. Other embedded templates stay reachable.
func WithTemplateDir(dir string) Option {
	return func(r *Renderer) {
		r.templateDir = strings.TrimSpace(dir)
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Renderer fills error templates.
type Renderer struct {
	slots       Slots
	engine      template.TemplateRenderer
	templateDir string
	logger      *zap.Logger
}

// NewRenderer constructs a Renderer. Without WithEngine the default template
// is served by a pongo2 engine from WithTemplateDir, falling back to the
// embedded copy.
func NewRenderer(options ...Option) (*Renderer, error) {
	r := &Renderer{
		slots: Slots{
			Title:   `h1, h2, h3, h4, h5, h6, [role="title"]`,
			Message: "p",
		},
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.engine == nil {
		engine, err := gotemplate.New(
			gotemplate.WithBaseDir(r.templateDir),
			gotemplate.WithFS(TemplatesFS()),
		)
		if err != nil {
			return nil, fmt.Errorf("errview: default engine: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// Render clones the content of tmpl (a <template> element from the host
// page) and fills its slots with p. A nil or empty tmpl falls back to the
// embedded default template. Slots are only written when the payload value
// is present and the slot exists, otherwise the template's own text stays.
func (r *Renderer) Render(tmpl *goquery.Selection, p Payload) (string, error) {
	markup, err := r.source(tmpl, p)
	if err != nil {
		return "", err
	}

	clone, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("errview: parse template: %w", err)
	}
	body := clone.Find("body")

	if p.Title != "" {
		if place := body.Find(r.slots.Title).First(); place.Length() > 0 {
			place.SetText(p.Title)
		}
	}
	if p.Message != "" {
		if place := body.Find(r.slots.Message).First(); place.Length() > 0 {
			place.SetText(p.Message)
		}
	}

	out, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("errview: serialise template: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (r *Renderer) source(tmpl *goquery.Selection, p Payload) (string, error) {
	if tmpl != nil && tmpl.Length() > 0 {
		return tmpl.First().Html()
	}
	if r.engine == nil {
		return "", errors.New("errview: no error template available")
	}
	r.logger.Debug("rendering default error template")
	return r.engine.RenderTemplate(DefaultTemplateName, map[string]any{
		"title":   p.Title,
		"message": p.Message,
	})
}
