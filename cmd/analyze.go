package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-health/internal/config"
	"github.com/naka-gawa/repo-health/internal/domain"
	"github.com/naka-gawa/repo-health/internal/gateway"
	"github.com/naka-gawa/repo-health/internal/logging"
	"github.com/naka-gawa/repo-health/internal/report"
	"github.com/naka-gawa/repo-health/internal/usecase"
)

func addAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", config.DefaultOutputPath, "Output file for the report; the extension selects json, yaml, xlsx or prom")
	cmd.Flags().IntP("timeout", "t", int(config.DefaultTimeout/time.Second), "Request timeout in seconds")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries, "Number of retries for failed requests")
	cmd.Flags().Bool("no-file", false, "Skip saving to file, console output only")
	cmd.Flags().String("config", "", "Path to a YAML config file")
	cmd.Flags().String("log-format", config.LogFormatText, "Log format: text or json")
	cmd.Flags().String("api-url", config.DefaultBaseURL, "GitHub API base URL")
}

// runAnalyze fetches, scores and reports on a single repository.
func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ref, err := domain.ParseRepoRef(args[0])
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return &usageError{err: err}
	}

	logger := logging.WithRun(logging.New(cmd.ErrOrStderr(), logging.Options{
		Verbose: cfg.Log.Verbose,
		Format:  cfg.Log.Format,
	}))

	githubGateway, err := gateway.NewGitHubGateway(gateway.Options{
		BaseURL:       cfg.API.BaseURL,
		UserAgent:     cfg.API.UserAgent,
		Timeout:       cfg.API.Timeout,
		MaxRetries:    cfg.API.Retries,
		BackoffFactor: cfg.API.BackoffFactor,
		BackoffMax:    cfg.API.BackoffMax,
	}, logger)
	if err != nil {
		return &usageError{err: err}
	}
	monitor := usecase.NewMonitor(githubGateway, usecase.NewHealthAnalyzer(logger), logger)
	console := report.NewConsole(cmd.OutOrStdout())

	console.Start(ref)
	health, err := monitor.Check(ctx, ref)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled by user")
		}
		return err
	}

	breakdown := usecase.BreakdownOf(health)
	var shownBreakdown *domain.HealthBreakdown
	if cfg.Log.Verbose {
		shownBreakdown = &breakdown
	}
	console.Report(health, shownBreakdown)

	if cfg.Output.Disabled {
		logger.Debug("Skipping snapshot, output disabled")
		logger.Info("Repository analysis completed successfully")
		return nil
	}
	// An interrupt during rendering must not leave a snapshot behind.
	if err := ctx.Err(); err != nil {
		logger.Info("Operation cancelled by user")
		return err
	}

	path, err := report.SaveSnapshot(cfg.Output.Path, health, breakdown)
	if err != nil {
		logger.WithError(err).Error("Failed to save report")
		console.SaveFailed(err)
	} else {
		logger.WithField("path", path).WithField("format", string(report.FormatFor(path))).Info("Report saved")
		console.Saved(path)
	}

	logger.Info("Repository analysis completed successfully")
	return nil
}

// resolveConfig layers explicitly set flags over defaults, the config file and the environment.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	configFile, _ := flags.GetString("config")
	cfg, err := config.Load(config.Options{File: configFile, EnvFile: config.DefaultEnvFile})
	if err != nil {
		return nil, err
	}

	if flags.Changed("output") {
		cfg.Output.Path, _ = flags.GetString("output")
	}
	if flags.Changed("timeout") {
		secs, _ := flags.GetInt("timeout")
		cfg.API.Timeout = time.Duration(secs) * time.Second
	}
	if flags.Changed("retries") {
		cfg.API.Retries, _ = flags.GetInt("retries")
	}
	if flags.Changed("no-file") {
		cfg.Output.Disabled, _ = flags.GetBool("no-file")
	}
	if flags.Changed("verbose") {
		cfg.Log.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("api-url") {
		cfg.API.BaseURL, _ = flags.GetString("api-url")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
