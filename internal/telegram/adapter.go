// Package telegram logs promo texts sent to a bot and answers with the
// themes they matched.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/theo/internal/analytics"
	"github.com/user/theo/internal/delivery"
	"github.com/user/theo/internal/intake"
	"github.com/user/theo/internal/report"
	"github.com/user/theo/internal/types"
)

const maxTelegramMessage = 4096

// TargetPrefix is the delivery target prefix for chats, as in "telegram:12345".
const TargetPrefix = "telegram:"

// Logbook is the part of the workspace the bot needs.
type Logbook interface {
	LogMessage(ctx context.Context, form intake.MessageForm) (types.Message, error)
	Refresh(ctx context.Context)
	Analytics() *analytics.Analytics
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Adapter bridges Telegram to the workspace.
type Adapter struct {
	bot  *tgbotapi.BotAPI
	send sender
	book Logbook
}

// New creates a Telegram adapter.
func New(token string, book Logbook) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{bot: bot, send: bot, book: book}, nil
}

// Start long-polls for updates until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)
	slog.Info("telegram polling started", "bot", a.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	a.sendResponse(msg.Chat.ID, a.reply(ctx, msg))
}

// reply computes the answer to one incoming message.
func (a *Adapter) reply(ctx context.Context, msg *tgbotapi.Message) string {
	if msg.IsCommand() {
		a.book.Refresh(ctx)
		return a.command(msg.Command())
	}

	logged, err := a.book.LogMessage(ctx, intake.MessageForm{Text: msg.Text})
	if err != nil {
		if intake.IsValidation(err) {
			return "Nothing to log."
		}
		slog.Error("telegram log message failed", "chat_id", msg.Chat.ID, "error", err)
		return "Sorry, I could not save that message."
	}
	slog.Debug("telegram message logged", "id", logged.ID, "chat_id", msg.Chat.ID)

	themes := analytics.Themes(logged.Text, a.book.Analytics().Rules())
	if len(themes) == 0 {
		return "Logged. No themes matched."
	}
	return "Logged. Themes: " + strings.Join(themes, ", ")
}

func (a *Adapter) command(name string) string {
	an := a.book.Analytics()
	switch name {
	case "start":
		return "Send me promo texts and I will tag their themes.\nCommands: /themes, /weekly, /total"
	case "themes":
		return report.Themes(an.ThemeView())
	case "weekly":
		return report.Weekly(an.WeeklyView())
	case "total":
		return fmt.Sprintf("Messages logged: %d", an.Total())
	default:
		return "Unknown command. Available: /start, /themes, /weekly, /total"
	}
}

// SendTo delivers text to a "telegram:<chat id>" target. Bad targets and
// client errors reported by the Bot API are marked delivery.Permanent.
func (a *Adapter) SendTo(_ context.Context, target, text string) error {
	chatID, err := ParseTarget(target)
	if err != nil {
		return delivery.Permanent(err)
	}
	for _, part := range splitMessage(text) {
		if _, err := a.send.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			err = fmt.Errorf("send to %d: %w", chatID, err)
			if isClientError(err) {
				return delivery.Permanent(err)
			}
			return err
		}
	}
	return nil
}

// isClientError reports a 4xx Bot API error other than rate limiting.
func isClientError(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != 429
}

// ParseTarget extracts the chat id from a "telegram:<chat id>" target.
func ParseTarget(target string) (int64, error) {
	raw, ok := strings.CutPrefix(target, TargetPrefix)
	if !ok {
		return 0, fmt.Errorf("not a telegram target: %s", target)
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", raw, err)
	}
	return chatID, nil
}

func (a *Adapter) sendResponse(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.send.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.send.Send(msg); err != nil {
				slog.Warn("telegram send failed", "chat_id", chatID, "error", err)
			}
		}
	}
}

// splitMessage cuts text into chunks Telegram accepts, preferring line
// breaks and never splitting a UTF-8 sequence.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > maxTelegramMessage {
		end := strings.LastIndexByte(text[:maxTelegramMessage], '\n') + 1
		if end <= 0 {
			end = maxTelegramMessage
			for end > 0 && !isRuneStart(text[end]) {
				end--
			}
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	if len(text) > 0 {
		parts = append(parts, text)
	}
	return parts
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
