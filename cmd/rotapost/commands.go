package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"rotapost/internal/app"
	"rotapost/internal/config"
	"rotapost/internal/rotation"
)

var flags struct {
	config  string
	envFile string
	manual  bool
}

func setup() (*app.App, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, fmt.Errorf("env file: %w", err)
	}
	return app.NewApp(flags.config)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one invocation (scheduled unless --manual or a manual trigger is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			manual := flags.manual || config.ManualTrigger(os.LookupEnv)
			sum, err := a.Run(ctx, rotation.ModeFor(manual))
			if err != nil {
				return err
			}
			for _, o := range sum.Outcomes {
				status := string(o.Stage)
				if o.Err != nil {
					status += ": " + o.Err.Error()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", o.TopicID, status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.manual, "manual", false, "post every topic and leave the rotation unchanged")
	return cmd
}

func daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Trigger scheduled runs on schedule.spec until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Daemon(ctx)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the rotation index and the topic the next scheduled run takes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "index:  %d\n", st.CurrentIndex)
			fmt.Fprintf(out, "next:   %s\n", st.Next)
			fmt.Fprintf(out, "topics: %s\n", strings.Join(st.Topics, ", "))
			if st.Stale {
				fmt.Fprintln(out, "note:   stored index is past the topic list and will wrap")
			}
			return nil
		},
	}
}
