package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Brownie44l1/cropdoc/internal/advisory"
	"github.com/Brownie44l1/cropdoc/internal/inference"
)

const (
	msgStart = `🌱 Crop Disease Detection

📸 Send me a photo of a rice leaf and I will predict its health state and suggest a solution.
💬 Or ask about Healthy, Leaf Blast, Brown Spot or Sheath Blight.

📋 Commands:
/help - how to use the bot
/library - crop disease library`

	msgHelp = `ℹ️ How to use the bot:

1️⃣ Send a clear photo of a single rice leaf
2️⃣ Wait for the prediction
3️⃣ Read the suggested solution

💡 Tips:
• Take the photo in good light
• Fill the frame with the leaf`

	msgProcessing      = "⏳ Processing image..."
	msgProcessingError = "⚠️ Could not process the image. Please try another photo."
	msgUnknownCommand  = "❓ Unknown command. Use /help."
)

// Bot is a Telegram front end for the classifier and the chatbot.
type Bot struct {
	api       *tgbotapi.BotAPI
	pipeline  *inference.Pipeline
	chatbot   *advisory.Chatbot
	log       *slog.Logger
	client    *http.Client
	maxUpload int64
}

func NewBot(token string, pipeline *inference.Pipeline, chatbot *advisory.Chatbot, log *slog.Logger, maxUpload int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Info("Authorized on Telegram", "account", api.Self.UserName)

	return &Bot{
		api:       api,
		pipeline:  pipeline,
		chatbot:   chatbot,
		log:       log,
		client:    &http.Client{Timeout: 30 * time.Second},
		maxUpload: maxUpload,
	}, nil
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case msg.IsCommand():
		b.sendMessage(msg.Chat.ID, CommandReply(msg.Command()))
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	default:
		b.sendMessage(msg.Chat.ID, b.chatbot.Reply(msg.Text))
	}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	b.sendMessage(msg.Chat.ID, msgProcessing)

	// the last size is the largest
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		b.log.Error("Download photo", "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	result, err := b.pipeline.PredictBytes(ctx, imageData)
	if err != nil {
		b.log.Error("Predict photo", "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	b.sendMessage(msg.Chat.ID, FormatResult(result))
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > b.maxUpload {
		return nil, errors.New("file too large")
	}
	return data, nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("Send message", "chat_id", chatID, "error", err)
	}
}

// CommandReply is the text answer to a bot command.
func CommandReply(command string) string {
	switch command {
	case "start":
		return msgStart
	case "help":
		return msgHelp
	case "library":
		return FormatLibrary(advisory.Library())
	default:
		return msgUnknownCommand
	}
}

// FormatResult renders a prediction as a chat message.
func FormatResult(result inference.Result) string {
	if !result.ModelLoaded {
		return "⚠️ " + result.Class
	}
	return fmt.Sprintf("✅ Prediction: %s (%.0f%%)\n\nSuggested Solution: %s",
		result.Class, result.Confidence*100, result.Solution)
}

// FormatLibrary renders the disease library as a chat message.
func FormatLibrary(entries []advisory.Entry) string {
	var sb strings.Builder
	sb.WriteString("📚 Crop Disease Library\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%s\n%s\nTreatment: %s\n", e.Name, e.Description, e.Treatment)
	}
	return sb.String()
}
