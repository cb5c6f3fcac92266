// Package bot implements the Telegram command surface: sign-in and
// sign-out, alert management, ad-hoc search, favorites, and the tax
// calendar.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"secop_bot/internal/checker"
	"secop_bot/internal/config"
	"secop_bot/internal/model"
	"secop_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// procurementAPI is the slice of the open-data client the bot needs.
type procurementAPI interface {
	Query(ctx context.Context, filters model.SearchFilters, limit int) ([]model.ProcurementItem, error)
	GetProcess(ctx context.Context, id string) (*model.ProcurementItem, error)
}

// Bot handles user commands and delivers notification messages.
type Bot struct {
	api    telegramAPI
	store  storage.Storage
	client procurementAPI
	runner *checker.Runner
	cfg    *config.Config
	log    *slog.Logger
}

// New creates a Bot with the given Telegram token. The check runner is
// attached afterwards with SetRunner.
func New(token string, store storage.Storage, client procurementAPI, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:    api,
		store:  store,
		client: client,
		cfg:    cfg,
		log:    log,
	}, nil
}

// SetRunner attaches the check runner after construction. Breaks the
// construction cycle between the bot (which the notifier wraps) and
// the runner (which needs the notifier).
func (b *Bot) SetRunner(runner *checker.Runner) {
	b.runner = runner
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat. Implements the
// notification dispatcher's Sender.
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	_ = b.SendMessage(chatID, text)
}

// userIDFor maps a Telegram chat to the stored owner id.
func userIDFor(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "stop":
		b.handleStop(ctx, chatID)
	case "help":
		b.handleHelp(chatID)
	case "newalert":
		b.handleNewAlert(ctx, chatID, args)
	case "alerts":
		b.handleAlerts(ctx, chatID)
	case "info":
		b.handleInfo(ctx, chatID, args)
	case "delete":
		b.handleDelete(ctx, chatID, args)
	case "rename":
		b.handleRename(ctx, chatID, args)
	case "freq":
		b.handleFreq(ctx, chatID, args)
	case "pause":
		b.handleSetActive(ctx, chatID, args, false)
	case "resume":
		b.handleSetActive(ctx, chatID, args, true)
	case "check":
		b.handleCheck(ctx, chatID, args)
	case "search":
		b.handleSearch(ctx, chatID, args)
	case "fav":
		b.handleFav(ctx, chatID, args)
	case "favs":
		b.handleFavs(ctx, chatID)
	case "unfav":
		b.handleUnfav(ctx, chatID, args)
	case "taxes":
		b.handleTaxes(chatID)
	}
}
