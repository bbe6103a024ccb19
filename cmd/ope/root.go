package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/srdjan/ope"
	"github.com/srdjan/ope/internal/config"
	"go.uber.org/zap"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	mock       bool
	logLevel   string

	cfg      *config.Config
	logger   *zap.Logger
	svc      *ope.Service
	overlays *ope.OverlayTable
	stopLogs func()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ope",
		Short: "Prompt enhancement, compilation and response validation",
		Long: `ope turns a loose natural-language request into a structured,
model-ready prompt, routes it to a model and validates the reply into
{answer, citations}.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path (default ~/.config/ope/config.yaml)")
	root.PersistentFlags().BoolVar(&a.mock, "mock", false, "serve every request with the mock adapter")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(a),
		newRunCmd(a),
		newEnhanceCmd(a),
		newCompileCmd(a),
		newContextsCmd(a),
		newValidateCmd(a),
		newSchemaCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.mock {
		cfg.MockMode = true
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger
	a.stopLogs = forwardEvents(logger)

	svc, overlays, err := cfg.Service()
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	a.cfg = cfg
	a.svc = svc
	a.overlays = overlays
	return nil
}

func (a *app) close() {
	if a.stopLogs != nil {
		a.stopLogs()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
