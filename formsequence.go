// Package formsequence turns origin links into multi-step form wizards that
// are fetched and rendered in place. It wires pkg/sequence controllers to a
// host page and a retrieval service.
package formsequence

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/goliatone/go-formsequence/pkg/config"
	"github.com/goliatone/go-formsequence/pkg/dom"
	"github.com/goliatone/go-formsequence/pkg/fetch"
	"github.com/goliatone/go-formsequence/pkg/request"
	"github.com/goliatone/go-formsequence/pkg/sequence"
)

// Controller aliases sequence.Controller.
type Controller = sequence.Controller

// Event aliases sequence.Event.
type Event = sequence.Event

// Config aliases config.Config.
type Config = config.Config

// Session is a host page with every form-sequence host mounted.
type Session struct {
	Page        *dom.Page
	Registry    *sequence.Registry
	Controllers []*Controller
	Config      Config
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	cfg      Config
	fetcher  fetch.Fetcher
	logger   *zap.Logger
	registry *sequence.Registry
	page     []dom.PageOption
}

// WithConfig sets the configuration shared by every controller.
func WithConfig(cfg Config) Option {
	return func(o *sessionOptions) {
		o.cfg = cfg
	}
}

// WithFetcher sets the retrieval service.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *sessionOptions) {
		o.fetcher = f
	}
}

// WithLogger attaches a logger to the page and controllers.
func WithLogger(logger *zap.Logger) Option {
	return func(o *sessionOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegistry shares a registry with controllers of other sessions.
func WithRegistry(r *sequence.Registry) Option {
	return func(o *sessionOptions) {
		o.registry = r
	}
}

// WithPageOptions forwards options to dom.NewPage when the session loads its
// own page.
func WithPageOptions(options ...dom.PageOption) Option {
	return func(o *sessionOptions) {
		o.page = append(o.page, options...)
	}
}

func buildOptions(options []Option) sessionOptions {
	o := sessionOptions{
		cfg:    config.Defaults(),
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&o)
	}
	return o
}

// Mount creates and mounts a controller for every element named by the
// configured tag on page.
func Mount(page *dom.Page, options ...Option) (*Session, error) {
	if page == nil {
		return nil, errors.New("formsequence: page is required")
	}
	o := buildOptions(options)
	return mount(page, o)
}

func mount(page *dom.Page, o sessionOptions) (*Session, error) {
	if o.registry == nil {
		o.registry = sequence.PageRegistry(page)
	}
	session := &Session{Page: page, Registry: o.registry, Config: o.cfg}
	hosts := page.Document().Find(o.cfg.Tag)

	var mountErr error
	err := page.Loop().Do(func() {
		for i, n := 0, hosts.Length(); i < n; i++ {
			ctrl, err := sequence.New(page, hosts.Eq(i),
				sequence.WithConfig(o.cfg),
				sequence.WithFetcher(o.fetcher),
				sequence.WithRegistry(o.registry),
				sequence.WithLogger(o.logger),
			)
			if err != nil {
				mountErr = err
				return
			}
			if err := ctrl.Mount(); err != nil {
				mountErr = err
				return
			}
			session.Controllers = append(session.Controllers, ctrl)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("formsequence: mount: %w", err)
	}
	if mountErr != nil {
		return nil, fmt.Errorf("formsequence: mount: %w", mountErr)
	}
	o.logger.Debug("mounted controllers", zap.Int("count", len(session.Controllers)), zap.String("tag", o.cfg.Tag))
	return session, nil
}

// Open fetches the host page at rawURL and mounts it. Without WithFetcher an
// HTTP fetcher is used for the page and every controller.
func Open(ctx context.Context, rawURL string, options ...Option) (*Session, error) {
	o := buildOptions(options)
	if o.fetcher == nil {
		base, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("formsequence: parse url: %w", err)
		}
		f, err := fetch.NewHTTP(
			fetch.WithBaseURL(base),
			fetch.WithLogger(o.logger),
			fetch.WithUserAgent(o.cfg.UserAgent),
		)
		if err != nil {
			return nil, err
		}
		o.fetcher = f
	}

	if o.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
	}
	resp, err := o.fetcher.Fetch(ctx, request.Descriptor{URL: rawURL, Headers: o.cfg.Headers()})
	if err != nil {
		return nil, fmt.Errorf("formsequence: load page: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("formsequence: load page: %s answered %d", resp.URL, resp.Status)
	}

	pageOptions := append([]dom.PageOption{dom.WithLogger(o.logger)}, o.page...)
	page, err := dom.NewPage(resp.URL, resp.Body, pageOptions...)
	if err != nil {
		return nil, err
	}
	session, err := mount(page, o)
	if err != nil {
		page.Close()
		return nil, err
	}
	return session, nil
}

// Controller returns the first mounted controller that is not inert.
func (s *Session) Controller() (*Controller, bool) {
	var found *Controller
	_ = s.Page.Loop().Do(func() {
		for _, ctrl := range s.Controllers {
			if ctrl.Inert() == nil {
				found = ctrl
				return
			}
		}
	})
	return found, found != nil
}

// Close unmounts every controller and stops the page loop.
func (s *Session) Close() {
	_ = s.Page.Loop().Do(func() {
		for _, ctrl := range s.Controllers {
			ctrl.Unmount()
		}
	})
	s.Page.Close()
}
