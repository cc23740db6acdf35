// Package config holds the explicit configuration object handed to sequence
// controllers at composition time. Defaults mirror the markup conventions of
// the hosting pages (h1/pre error pages, an "error-template" template element)
// and can be overridden from code, YAML files, or CLI flags.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values used by Defaults.
const (
	DefaultTag                       = "form-sequence"
	DefaultErrorTitleSelector        = "h1"
	DefaultErrorMessageSelector      = "pre"
	DefaultErrorTemplateID           = "error-template"
	DefaultErrorTemplateTitlePlace   = `h1, h2, h3, h4, h5, h6, [role="title"]`
	DefaultErrorTemplateMessagePlace = "p"
	RequestedWithHeader              = "X-Requested-With"
)

// Config describes how controllers extract errors, render the error template
// and issue requests.
type Config struct {
	// Tag names the host elements mounted as controllers. Controllers sharing a
	// tag close each other when a new sequence starts.
	Tag string `yaml:"tag"`

	ErrorTitleSelector        string `yaml:"error_title_selector"`
	ErrorMessageSelector      string `yaml:"error_message_selector"`
	ErrorTemplateID           string `yaml:"error_template_id"`
	ErrorTemplateTitlePlace   string `yaml:"error_template_title_place"`
	ErrorTemplateMessagePlace string `yaml:"error_template_message_place"`
	// ErrorTemplateDir holds an error.tpl that replaces the built-in error
	// view for pages without an error template element.
	ErrorTemplateDir string `yaml:"error_template_dir"`

	// RequestHeaders are attached to every request regardless of method.
	RequestHeaders map[string]string `yaml:"request_headers"`

	// Sanitize runs fetched markup through the fragment sanitising policy.
	Sanitize bool `yaml:"sanitize"`
	// RequestTimeout bounds each request. Zero leaves requests unbounded.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	UserAgent      string        `yaml:"user_agent"`
}

// Option mutates a Config.
type Option func(*Config)

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Tag:                       DefaultTag,
		ErrorTitleSelector:        DefaultErrorTitleSelector,
		ErrorMessageSelector:      DefaultErrorMessageSelector,
		ErrorTemplateID:           DefaultErrorTemplateID,
		ErrorTemplateTitlePlace:   DefaultErrorTemplateTitlePlace,
		ErrorTemplateMessagePlace: DefaultErrorTemplateMessagePlace,
		RequestHeaders: map[string]string{
			RequestedWithHeader: DefaultTag,
		},
	}
}

// New applies options over Defaults.
func New(options ...Option) Config {
	cfg := Defaults()
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

// WithTag overrides the host element tag.
func WithTag(tag string) Option {
	return func(c *Config) {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			c.Tag = strings.ToLower(trimmed)
		}
	}
}

// WithErrorTemplateID overrides the id of the page level error template.
func WithErrorTemplateID(id string) Option {
	return func(c *Config) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			c.ErrorTemplateID = trimmed
		}
	}
}

// WithErrorTemplateDir points at a directory holding a replacement error.tpl.
func WithErrorTemplateDir(dir string) Option {
	return func(c *Config) {
		c.ErrorTemplateDir = strings.TrimSpace(dir)
	}
}

// WithErrorSelectors overrides the selectors used to pull a title and message
// out of an HTML error response.
func WithErrorSelectors(title, message string) Option {
	return func(c *Config) {
		if trimmed := strings.TrimSpace(title); trimmed != "" {
			c.ErrorTitleSelector = trimmed
		}
		if trimmed := strings.TrimSpace(message); trimmed != "" {
			c.ErrorMessageSelector = trimmed
		}
	}
}

// WithHeader adds a default request header.
func WithHeader(name, value string) Option {
	return func(c *Config) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if c.RequestHeaders == nil {
			c.RequestHeaders = make(map[string]string)
		}
		c.RequestHeaders[name] = value
	}
}

// WithSanitize toggles sanitising of fetched markup.
func WithSanitize(enabled bool) Option {
	return func(c *Config) {
		c.Sanitize = enabled
	}
}

// WithRequestTimeout bounds every request.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.RequestTimeout = d
		}
	}
}

// Merge returns a copy of c with every non-zero field of override applied.
// Request headers are merged key by key.
func (c Config) Merge(override Config) Config {
	out := c
	out.RequestHeaders = make(map[string]string, len(c.RequestHeaders)+len(override.RequestHeaders))
	for k, v := range c.RequestHeaders {
		out.RequestHeaders[k] = v
	}
	for k, v := range override.RequestHeaders {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			out.RequestHeaders[trimmed] = v
		}
	}

	setString(&out.Tag, strings.ToLower(override.Tag))
	setString(&out.ErrorTitleSelector, override.ErrorTitleSelector)
	setString(&out.ErrorMessageSelector, override.ErrorMessageSelector)
	setString(&out.ErrorTemplateID, override.ErrorTemplateID)
	setString(&out.ErrorTemplateTitlePlace, override.ErrorTemplateTitlePlace)
	setString(&out.ErrorTemplateMessagePlace, override.ErrorTemplateMessagePlace)
	setString(&out.ErrorTemplateDir, override.ErrorTemplateDir)
	setString(&out.UserAgent, override.UserAgent)
	if override.Sanitize {
		out.Sanitize = true
	}
	if override.RequestTimeout > 0 {
		out.RequestTimeout = override.RequestTimeout
	}
	return out
}

// Headers returns the default request headers in canonical form.
func (c Config) Headers() http.Header {
	out := make(http.Header, len(c.RequestHeaders))
	for name, value := range c.RequestHeaders {
		out.Set(name, value)
	}
	return out
}

// Parse decodes YAML and merges it over Defaults.
func Parse(data []byte) (Config, error) {
	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	return Defaults().Merge(override), nil
}

// Load reads a YAML file and merges it over Defaults.
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Config{}, fmt.Errorf("config: path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

func setString(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}
