package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hrreview/internal/domain/auth"
	"hrreview/internal/domain/cycle"
	"hrreview/internal/platform/config"
	"hrreview/internal/platform/jobs"
)

func newServeCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			app, err := env.open(ctx, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(ctx)
		},
	}
}

func newMigrateCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.open(cmd.Context(), func(cfg *config.Config) {
				cfg.RunMigrations = true
				cfg.RunSeed = false
			})
			if err != nil {
				return err
			}
			app.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", app.Config.StoreDriver)
			return nil
		},
	}
}

func newSeedCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the bootstrap administrator from SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.open(cmd.Context(), func(cfg *config.Config) {
				cfg.RunSeed = true
			})
			if err != nil {
				return err
			}
			app.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "seed complete")
			return nil
		},
	}
}

func newSweepCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Recompute overdue flags for every active cycle once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.open(cmd.Context(), func(cfg *config.Config) {
				cfg.RunSeed = false
			})
			if err != nil {
				return err
			}
			defer app.Close()
			result, err := app.Jobs.RunNow(cmd.Context(), jobs.JobOverdueSweep, app.SweepOverdue)
			if err != nil {
				return err
			}
			return env.print(cmd.OutOrStdout(), result)
		},
	}
}

func newCycleSummaryCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle-summary <cycle-id>",
		Short: "Print the progress summary of a cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.open(cmd.Context(), func(cfg *config.Config) {
				cfg.RunSeed = false
			})
			if err != nil {
				return err
			}
			defer app.Close()
			summary, err := app.Services.Cycles.Summary(cmd.Context(), auth.SystemActor(), args[0])
			if err != nil {
				return err
			}
			return env.print(cmd.OutOrStdout(), summary)
		},
	}
}

type stageDeadline struct {
	Stage    string `yaml:"stage" json:"stage"`
	Deadline string `yaml:"deadline,omitempty" json:"deadline,omitempty"`
}

func newPolicyCheckCmd(env *environment) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "policy-check [policy-file]",
		Short: "Validate a deadline policy and print the deadlines it gives a sample cycle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := env.config().DeadlinePolicyFile
			if len(args) == 1 {
				path = args[0]
			}
			policy, err := cycle.LoadPolicy(path)
			if err != nil {
				return err
			}
			startDate, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			endDate, err := time.Parse("2006-01-02", end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if !endDate.After(startDate) {
				return fmt.Errorf("--end must be after --start")
			}
			sample := cycle.Cycle{Type: cycle.TypeSemester, StartDate: startDate, EndDate: endDate, Status: cycle.CycleActive}
			out := make([]stageDeadline, 0, len(cycle.Stages))
			for _, stage := range cycle.Stages {
				row := stageDeadline{Stage: stage}
				if due, ok := policy.Deadline(sample, stage); ok {
					row.Deadline = due.UTC().Format("2006-01-02")
				}
				out = append(out, row)
			}
			return env.print(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&start, "start", "2024-01-01", "sample cycle start date")
	cmd.Flags().StringVar(&end, "end", "2024-06-30", "sample cycle end date")
	return cmd
}

// Execute runs the root command with the process environment.
func Execute(ctx context.Context) error {
	return NewRootCmd(config.Load).ExecuteContext(ctx)
}
