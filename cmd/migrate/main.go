// migrate applies the embedded SQL migrations. Run `go run ./cmd/migrate up` after setting DATABASE_URL.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"otp-relay/internal/config"
	"otp-relay/internal/db/migrate"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back database migrations",
		SilenceUsage: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRunner(func(r *migrate.Runner) error { return r.Up() })
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every applied migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRunner(func(r *migrate.Runner) error { return r.Down() })
			},
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Migrate N steps up (N > 0) or down (N < 0)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("steps: %q is not an integer", args[0])
				}
				return withRunner(func(r *migrate.Runner) error { return r.Steps(n) })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRunner(func(r *migrate.Runner) error {
					v, dirty, err := r.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
					return nil
				})
			},
		},
	)
	return root
}

func withRunner(fn func(r *migrate.Runner) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	r, err := migrate.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	return fn(r)
}
