package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formsequence"
	"github.com/goliatone/go-formsequence/pkg/metrics"
	"github.com/goliatone/go-formsequence/pkg/tui"
)

func walkCmd(flags *globalFlags) *cobra.Command {
	var hostIndex int
	var maxSteps int
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "walk <url>",
		Short: "Load a page and answer its form sequence step by step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			logger, err := flags.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := formsequence.Open(ctx, args[0],
				formsequence.WithConfig(cfg),
				formsequence.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			defer session.Close()

			ctrl, err := pickController(session, hostIndex)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			collector := metrics.NewCollector(metrics.DefaultNamespace, reg, metrics.WithLogger(logger))
			defer collector.Observe(ctrl)()

			walker := tui.NewWalker(ctrl,
				tui.WithLogger(logger),
				tui.WithMaxSteps(maxSteps),
			)
			result, err := walker.Run(ctx)
			if showMetrics {
				if merr := writeMetrics(cmd, reg); merr != nil {
					logger.Sugar().Warnw("write metrics", "error", merr)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "returned to %s after %d step(s)\n", result.ReturnURL, result.Steps)
			return nil
		},
	}
	cmd.Flags().IntVar(&hostIndex, "host", -1, "index of the host element to walk (default first usable)")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 50, "stop after this many activations (0 = unbounded)")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print lifecycle metrics when the walk ends")
	return cmd
}

func pickController(session *formsequence.Session, index int) (*formsequence.Controller, error) {
	if index < 0 {
		ctrl, ok := session.Controller()
		if !ok {
			return nil, fmt.Errorf("no usable %s element on %s", session.Config.Tag, session.Page.Location())
		}
		return ctrl, nil
	}
	if index >= len(session.Controllers) {
		return nil, fmt.Errorf("host index %d out of range (%d hosts)", index, len(session.Controllers))
	}
	return session.Controllers[index], nil
}

func writeMetrics(cmd *cobra.Command, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(cmd.ErrOrStderr(), expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
