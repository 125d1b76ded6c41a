package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"covidprep/internal/app"
	"covidprep/internal/config"
)

const selectAll = "all"

type RunCmd struct {
	global          *globalFlags
	head            int
	parallel        bool
	maxConcurrency  int
	continueOnError bool
	noManifest      bool
	metricsFile     string
}

func NewRunCmd(global *globalFlags) *RunCmd {
	return &RunCmd{global: global}
}

func (c *RunCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "run [cases|interventions|testing|vaccination|all]...",
		Short:     "Run the selected pipelines, all of them by default",
		ValidArgs: append(config.PipelineIDs(), selectAll),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.global.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("head") {
				cfg.Run.PreviewRows = c.head
			}
			if c.parallel {
				cfg.Run.ExecutionMode = config.ExecutionParallel
			}
			if cmd.Flags().Changed("max-concurrency") {
				cfg.Run.MaxConcurrency = c.maxConcurrency
			}
			if c.continueOnError {
				cfg.Run.ContinueOnError = true
			}
			if c.noManifest {
				cfg.Run.Manifest = false
			}
			if c.metricsFile != "" {
				cfg.Run.MetricsFile = c.metricsFile
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.run(ctx, cmd, cfg, selection(args))
		},
	}
	cmd.Flags().IntVar(&c.head, "head", config.DefaultPreviewRows, "rows of each processed table to print, 0 disables the preview")
	cmd.Flags().BoolVar(&c.parallel, "parallel", false, "run the pipelines concurrently")
	cmd.Flags().IntVar(&c.maxConcurrency, "max-concurrency", 0, "limit on pipelines running at once with --parallel, 0 means no limit")
	cmd.Flags().BoolVar(&c.continueOnError, "continue-on-error", false, "keep running the remaining pipelines after a failure")
	cmd.Flags().BoolVar(&c.noManifest, "no-manifest", false, "do not write manifest.json")
	cmd.Flags().StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	return cmd
}

func (c *RunCmd) run(ctx context.Context, cmd *cobra.Command, cfg *config.Config, pipelines []string) error {
	a, err := app.New(cfg, app.Options{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	result, err := a.Run(ctx, pipelines)
	if result != nil {
		resp := result.Response
		fmt.Fprintf(cmd.OutOrStdout(), "run %s %s in %s\n", resp.ID, resp.Status, resp.Duration)
		if result.ManifestPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "manifest: %s\n", result.ManifestPath)
		}
	}
	return err
}

// selection maps the positional arguments to pipeline ids, nil meaning all
func selection(args []string) []string {
	if len(args) == 0 || slices.Contains(args, selectAll) {
		return nil
	}
	return args
}
