package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/cropdoc/internal/handlers"
	"github.com/Brownie44l1/cropdoc/internal/telegram"
)

var endpoints = []string{
	"GET  /              - Upload page and chatbot",
	"GET  /health        - Health check",
	"POST /predict       - Raw tensor prediction",
	"POST /predict/image - Predict from image upload",
	"POST /chat          - Chatbot reply",
	"GET  /library       - Disease library",
	"GET  /history       - Recent predictions",
	"GET  /metrics       - Prometheus metrics",
}

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web page and JSON API",
		Long: `Run the HTTP server. The page at / uploads a leaf photo or asks the
chatbot; the JSON API is under /predict, /predict/image, /chat, /library
and /history.

The server starts even when the model cannot be loaded; predictions then
answer "Model is not loaded".`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "Listen port (overrides PORT)")
	cmd.Flags().Bool("bot", false, "Also run the Telegram bot (needs TELEGRAM_TOKEN)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []handlers.Option
	if a.history != nil {
		opts = append(opts, handlers.WithHistory(a.history))
	}
	handler := handlers.NewHandler(a.pipeline, a.chatbot, a.model, a.metrics, a.log, a.cfg.MaxUploadBytes, opts...)

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var bot *telegram.Bot
	if withBot, _ := cmd.Flags().GetBool("bot"); withBot {
		if a.cfg.TelegramToken == "" {
			return errors.New("TELEGRAM_TOKEN is not set")
		}
		bot, err = telegram.NewBot(a.cfg.TelegramToken, a.pipeline, a.chatbot, a.log, a.cfg.MaxUploadBytes)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("Server starting", "addr", srv.Addr, "model_loaded", a.model.Loaded())
		a.log.Info("Endpoints:")
		for _, e := range endpoints {
			a.log.Info("  " + e)
		}
		a.log.Info(fmt.Sprintf("Upload test: curl -X POST -F \"image=@leaf.jpg\" http://localhost:%d/predict/image", a.cfg.Port))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("Shutting down", "timeout", a.cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if bot != nil {
		g.Go(func() error {
			a.log.Info("Bot started")
			return bot.Run(ctx)
		})
	}

	return g.Wait()
}
