package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-formsequence/pkg/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "formseq:", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	tag        string
	timeout    time.Duration
	sanitize   bool
	errorDir   string
	userAgent  string
	headers    []string
	verbose    bool
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "formseq",
		Short:         "Walk form sequences served by a site from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&flags.tag, "tag", "", "host element tag (default form-sequence)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "per request timeout")
	pf.BoolVar(&flags.sanitize, "sanitize", false, "sanitize fetched markup before rendering")
	pf.StringVar(&flags.errorDir, "error-template-dir", "", "directory with an error.tpl replacing the built-in error view")
	pf.StringVar(&flags.userAgent, "user-agent", "", "User-Agent header for requests")
	pf.StringArrayVar(&flags.headers, "header", nil, `extra request header as "Name: value" (repeatable)`)
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(walkCmd(flags), inspectCmd(flags))
	return cmd
}

// load merges the config file and flags over the defaults.
func (f *globalFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Defaults()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	var options []config.Option
	if f.tag != "" {
		options = append(options, config.WithTag(f.tag))
	}
	if cmd.Flags().Changed("timeout") {
		options = append(options, config.WithRequestTimeout(f.timeout))
	}
	if cmd.Flags().Changed("sanitize") {
		options = append(options, config.WithSanitize(f.sanitize))
	}
	if f.errorDir != "" {
		options = append(options, config.WithErrorTemplateDir(f.errorDir))
	}
	for _, raw := range f.headers {
		name, value, ok := strings.Cut(raw, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return config.Config{}, fmt.Errorf("invalid header %q, want \"Name: value\"", raw)
		}
		options = append(options, config.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if f.userAgent != "" {
		cfg.UserAgent = f.userAgent
	}
	return cfg, nil
}

func (f *globalFlags) logger() (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if f.verbose {
		level = zapcore.DebugLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
