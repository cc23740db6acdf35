// Package gotemplate renders pongo2 templates from an optional override
// directory layered over an fs.FS of built-in templates.
package gotemplate

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-formsequence/pkg/render/template"
)

// Extension is appended to template names that lack it.
const Extension = ".tpl"

// Option configures an Engine.
type Option func(*Engine) error

// WithBaseDir looks templates up in dir before any fs.FS. A file in dir
// shadows the built-in template of the same name.
func WithBaseDir(dir string) Option {
	return func(e *Engine) error {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return nil
		}
		loader, err := pongo2.NewLocalFileSystemLoader(dir)
		if err != nil {
			return fmt.Errorf("gotemplate: template dir %s: %w", dir, err)
		}
		e.overrides = append(e.overrides, loader)
		return nil
	}
}

// WithFS adds the built-in templates.
func WithFS(files fs.FS) Option {
	return func(e *Engine) error {
		if files != nil {
			e.builtins = append(e.builtins, pongo2.NewFSLoader(files))
		}
		return nil
	}
}

// Engine renders named templates. Parsed templates are cached by file name.
type Engine struct {
	overrides []pongo2.TemplateLoader
	builtins  []pongo2.TemplateLoader

	set *pongo2.TemplateSet

	mu    sync.Mutex
	cache map[string]*pongo2.Template
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New builds an Engine. At least one of WithBaseDir or WithFS is required.
func New(options ...Option) (*Engine, error) {
	e := &Engine{cache: make(map[string]*pongo2.Template)}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	loaders := append(append([]pongo2.TemplateLoader(nil), e.overrides...), e.builtins...)
	if len(loaders) == 0 {
		return nil, errors.New("gotemplate: no template source configured")
	}
	e.set = pongo2.NewSet("formsequence", loaders...)
	registerFilters()
	return e, nil
}

// RenderTemplate renders name, adding Extension when missing.
func (e *Engine) RenderTemplate(name string, data map[string]any) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("gotemplate: engine is nil")
	}
	file := strings.TrimSpace(name)
	if !strings.HasSuffix(file, Extension) {
		file += Extension
	}
	tmpl, err := e.lookup(file)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(pongo2.Context(data), &buf); err != nil {
		return "", fmt.Errorf("gotemplate: execute %s: %w", file, err)
	}
	return buf.String(), nil
}

func (e *Engine) lookup(file string) (*pongo2.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.cache[file]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load %s: %w", file, err)
	}
	e.cache[file] = tmpl
	return tmpl, nil
}

func registerFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
			return pongo2.AsValue(strings.TrimSpace(in.String())), nil
		})
	}
}
