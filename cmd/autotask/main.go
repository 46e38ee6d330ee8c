package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abatilo/autotask/internal/config"
	"github.com/abatilo/autotask/internal/log"
	"github.com/abatilo/autotask/internal/output"
)

//nolint:gochecknoglobals // CLI flags, config and formatter are package-level by design
var (
	jsonOutput bool
	yamlOutput bool
	logLevel   string
	conf       *config.Config
	formatter  output.Formatter = output.NewHumanFormatter()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "autotask",
		Short: "An in-memory registry of automation tasks",
		Long:  "autotask - Create, run and track security, code and backup automation tasks.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			switch {
			case jsonOutput:
				formatter = output.New("json")
			case yamlOutput:
				formatter = output.New("yaml")
			}

			var err error
			if conf, err = config.Parse(); err != nil {
				printError(err)
			}
			if logLevel == "" {
				logLevel = conf.Logger.Level
			}
			slog.SetDefault(log.New(os.Stderr, log.ParseLevel(logLevel)))
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&yamlOutput, "yaml", false, "Output in YAML format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	rootCmd.AddCommand(
		shellCmd(),
		validateCmd(),
		seedCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printOutput(s string) {
	os.Stdout.WriteString(s) //nolint:gosec // stdout write errors are unrecoverable
}

func printError(err error) {
	slog.Debug("command failed", slog.Any("error", err))
	os.Stdout.WriteString(formatter.FormatError(err)) //nolint:gosec // stdout write errors are unrecoverable
	os.Exit(1)
}
