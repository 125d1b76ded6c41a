package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"covidprep/internal/config"
	"covidprep/pkg/contracts"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configFile string
	inputDir   string
	outputDir  string
	verbose    bool
}

// Run executes the command line and returns the process exit code
func Run(args []string, stdout, stderr io.Writer) ExitCode {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

// NewRootCmd builds the covidprep command tree
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:          "covidprep",
		Short:        "Clean the ECDC COVID-19 EU/EEA datasets for analysis.",
		Version:      contracts.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetVersionTemplate(contracts.GetFullVersionString() + "\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.inputDir, "input-dir", "", "directory holding the raw inputs")
	pf.StringVar(&flags.outputDir, "output-dir", "", "directory receiving the processed outputs")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "set debug logging level")

	rootCmd.AddCommand(
		NewRunCmd(flags).Command(),
		NewListCmd(flags).Command(),
	)
	return rootCmd
}

// loadConfig loads the configuration and applies the global flag overrides
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	if f.inputDir != "" {
		cfg.Paths.InputDir = f.inputDir
	}
	if f.outputDir != "" {
		cfg.Paths.OutputDir = f.outputDir
	}
	if f.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
