package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formsequence"
)

func inspectCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <url>",
		Short: "List the form sequence hosts of a page and their origins",
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

			session, err := formsequence.Open(cmd.Context(), args[0],
				formsequence.WithConfig(cfg),
				formsequence.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			defer session.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HOST\tGROUP\tORIGIN\tHIDDEN\tSTATUS")
			return printHosts(w, session)
		},
	}
}

func printHosts(w *tabwriter.Writer, session *formsequence.Session) error {
	err := session.Page.Loop().Do(func() {
		for i, ctrl := range session.Controllers {
			status := "ready"
			if reason := ctrl.Inert(); reason != nil {
				status = "inert: " + reason.Error()
			}
			origin := ctrl.OriginURL()
			if origin == "" {
				origin = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", i, ctrl.Group(), origin, len(ctrl.HiddenFields()), status)
		}
	})
	if err != nil {
		return err
	}
	return w.Flush()
}
