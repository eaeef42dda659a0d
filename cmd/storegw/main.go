package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	planFlags := &PlanFlags{}
	applyFlags := &ApplyFlags{}
	statusFlags := &StatusFlags{}
	stopFlags := &StopFlags{}
	serveFlags := &ServeFlags{}

	cmd := command{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createPlanCommand(cmd, globalFlags, planFlags),
		createApplyCommand(cmd, globalFlags, applyFlags),
		createStatusCommand(cmd, statusFlags),
		createStopCommand(cmd, stopFlags),
		createServeCommand(cmd, globalFlags, serveFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "storegw",
		Short: "Declarative supervisor for a Thanos store node",
		Long: `Storegw translates a declarative store node configuration into a concrete
process invocation and keeps the process converged to the desired state.

Examples:
  storegw plan --config=storegw.toml        # Show the computed invocation
  storegw serve --config=storegw.toml       # Start daemon and converge
  storegw apply --config=storegw.toml       # Re-apply config via daemon
  storegw status                            # Current node status`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createPlanCommand(c command, global *GlobalFlags, flags *PlanFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the store invocation without applying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = global.ConfigPath
			return c.Plan(*flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Argv, "argv", false, "print the command line instead of JSON")
	return cmd
}

func createApplyCommand(c command, global *GlobalFlags, flags *ApplyFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the configuration via the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = global.ConfigPath
			return c.Apply(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Ensure, "ensure", "", "override ensure: present or absent")
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default http://127.0.0.1:8440)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return cmd
}

func createStatusCommand(c command, flags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current node status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default http://127.0.0.1:8440)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return cmd
}

func createStopCommand(c command, flags *StopFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the node regardless of the configured state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop(*flags)
		},
	}
	cmd.Flags().DurationVar(&flags.Wait, "wait", 5*time.Second, "how long to wait for graceful exit")
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default http://127.0.0.1:8440)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return cmd
}

func createServeCommand(c command, global *GlobalFlags, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the storegw daemon",
		Long: `Start the storegw daemon, converge the node to the configured state and
serve the HTTP API until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = global.ConfigPath
			if len(args) > 0 {
				flags.ConfigPath = args[0]
			}
			done := make(chan struct{})
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sig
				close(done)
			}()
			return c.Serve(*flags, done)
		},
	}
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "override [server].listen address")
	return cmd
}
