package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/cropdoc/internal/advisory"
	"github.com/Brownie44l1/cropdoc/internal/config"
	"github.com/Brownie44l1/cropdoc/internal/history"
	"github.com/Brownie44l1/cropdoc/internal/inference"
	"github.com/Brownie44l1/cropdoc/internal/metrics"
	"github.com/Brownie44l1/cropdoc/internal/model"
)

// NewRootCmd creates the root command for cropdoc.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cropdoc",
		Short: "Rice leaf disease detection and advisory",
		Long: `cropdoc classifies rice leaf photos with an ONNX model and suggests a
treatment for the predicted health state. It runs as a web service, a
Telegram bot or a one-shot command line tool.

Settings come from the environment or a .env file in the working directory.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("model", "m", "", "Path to the ONNX model (overrides MODEL_PATH)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewPredictCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewBotCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the set of components shared by the commands that classify images.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	model    *model.Handle
	metrics  *metrics.Metrics
	pipeline *inference.Pipeline
	chatbot  *advisory.Chatbot
	history  *history.Store
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	log := newLogger(cmd, cfg.LogLevel)

	if err := advisory.Validate(); err != nil {
		return nil, err
	}

	chatbot, err := advisory.NewChatbot()
	if err != nil {
		return nil, fmt.Errorf("build chatbot: %w", err)
	}

	handle := model.Open(model.LoadConfig{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.OnnxLibraryPath,
		Classes:     advisory.Names(),
	}, log)

	m := metrics.New()
	m.SetModelLoaded(handle.Loaded())

	a := &app{
		cfg:     cfg,
		log:     log,
		model:   handle,
		metrics: m,
		chatbot: chatbot,
	}

	opts := []inference.Option{inference.WithObserver(m), inference.WithAutoOrient(cfg.AutoOrient)}
	if cfg.History {
		// Predictions still work when the history cannot be opened.
		store, err := history.Open(cfg.HistoryDir)
		if err != nil {
			log.Warn("History disabled", "dir", cfg.HistoryDir, "error", err)
		} else {
			a.history = store
			opts = append(opts, inference.WithRecorder(store))
		}
	}
	a.pipeline = inference.NewPipeline(handle.Scorer, log, opts...)

	return a, nil
}

func (a *app) Close() {
	a.model.Close()
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn("Close history", "error", err)
		}
	}
}

// applyFlags lets command line flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.ModelPath, _ = flags.GetString("model")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	return cfg.Validate()
}

func newLogger(cmd *cobra.Command, level string) *slog.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return logs.GetLoggerFromLevel(slog.LevelDebug)
	}
	return logs.GetLoggerFromString(level)
}
