package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/cropdoc/internal/telegram"
)

// NewBotCmd creates the Telegram bot command.
func NewBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Long: `Run a Telegram bot that classifies leaf photos and answers questions
with the chatbot. TELEGRAM_TOKEN must be set.`,
		Args: cobra.NoArgs,
		RunE: runBot,
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is not set")
	}

	bot, err := telegram.NewBot(a.cfg.TelegramToken, a.pipeline, a.chatbot, a.log, a.cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.log.Info("Bot started", "model_loaded", a.model.Loaded())
	return bot.Run(ctx)
}
