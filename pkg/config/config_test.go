package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsequence/pkg/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Defaults()
	if cfg.ErrorTitleSelector != "h1" || cfg.ErrorMessageSelector != "pre" {
		t.Fatalf("unexpected extraction selectors: %+v", cfg)
	}
	if cfg.ErrorTemplateID != "error-template" {
		t.Fatalf("unexpected template id %q", cfg.ErrorTemplateID)
	}
	if got := cfg.Headers().Get("X-Requested-With"); got != "form-sequence" {
		t.Fatalf("unexpected default header %q", got)
	}
}

func TestParseMergesOverDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`
tag: Wizard-Step
error_template_id: alert-template
error_template_title_place: .alert-title
error_template_dir: ./views
request_headers:
  X-Api-Version: "2"
request_timeout: 5s
sanitize: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := config.Defaults()
	want.Tag = "wizard-step"
	want.ErrorTemplateID = "alert-template"
	want.ErrorTemplateTitlePlace = ".alert-title"
	want.ErrorTemplateDir = "./views"
	want.RequestHeaders["X-Api-Version"] = "2"
	want.RequestTimeout = 5 * time.Second
	want.Sanitize = true

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeDoesNotAliasHeaders(t *testing.T) {
	base := config.Defaults()
	merged := base.Merge(config.Config{RequestHeaders: map[string]string{"X-Extra": "1"}})
	if _, ok := base.RequestHeaders["X-Extra"]; ok {
		t.Fatalf("merge must not mutate the base headers")
	}
	if merged.RequestHeaders["X-Extra"] != "1" {
		t.Fatalf("expected merged header")
	}
}

func TestOptions(t *testing.T) {
	cfg := config.New(
		config.WithTag(" Form-Sequence "),
		config.WithErrorSelectors(".title", ""),
		config.WithHeader("Accept", "text/html"),
		config.WithErrorTemplateID("tpl"),
		config.WithRequestTimeout(time.Second),
		config.WithSanitize(true),
		config.WithErrorTemplateDir(" views "),
	)
	if cfg.Tag != "form-sequence" || cfg.ErrorTitleSelector != ".title" || cfg.ErrorMessageSelector != "pre" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Headers().Get("Accept") != "text/html" || cfg.ErrorTemplateID != "tpl" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RequestTimeout != time.Second || !cfg.Sanitize || cfg.ErrorTemplateDir != "views" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formseq.yaml")
	if err := os.WriteFile(path, []byte("error_message_selector: .details\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ErrorMessageSelector != ".details" {
		t.Fatalf("unexpected selector %q", cfg.ErrorMessageSelector)
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
