package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formsequence/pkg/testsupport"
)

func TestInspectListsHosts(t *testing.T) {
	w := testsupport.NewWizard(t)

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", w.URL("/")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, w.URL("/wizard/step1")) || !strings.Contains(got, "ready") {
		t.Fatalf("unexpected inspect output:\n%s", got)
	}
}

func TestLoadMergesFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formseq.yaml")
	if err := os.WriteFile(path, []byte("tag: wizard-step\nerror_title_selector: h2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := rootCmd()
	if err := cmd.ParseFlags([]string{"--config", path, "--timeout", "2s", "--header", "X-Trace: abc"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	flags := &globalFlags{configPath: path, timeout: 2 * time.Second, headers: []string{"X-Trace: abc"}, errorDir: "views"}
	cfg, err := flags.load(cmd)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tag != "wizard-step" || cfg.ErrorTitleSelector != "h2" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Fatalf("expected timeout flag applied, got %s", cfg.RequestTimeout)
	}
	if got := cfg.Headers().Get("X-Trace"); got != "abc" {
		t.Fatalf("expected header flag applied, got %q", got)
	}
	if cfg.ErrorTemplateDir != "views" {
		t.Fatalf("expected error template dir applied, got %q", cfg.ErrorTemplateDir)
	}
}

func TestLoadRejectsMalformedHeader(t *testing.T) {
	flags := &globalFlags{headers: []string{"no-colon"}}
	if _, err := flags.load(rootCmd()); err == nil {
		t.Fatalf("expected error for malformed header")
	}
}
