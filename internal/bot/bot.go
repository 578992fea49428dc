package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tgbridge/internal/config"
	"tgbridge/internal/fetcher"
	"tgbridge/internal/lifecycle"
	"tgbridge/internal/settings"
	"tgbridge/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMembersCount(config tgbotapi.ChatMemberCountConfig) (int, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot handles commands from destination chats, reacts to membership
// changes and delivers bridged messages.
type Bot struct {
	api       telegramAPI
	self      int64
	store     storage.Store
	cfg       *config.Config
	settings  *settings.Settings
	fetcher   *fetcher.Fetcher
	lifecycle *lifecycle.Manager
	log       *slog.Logger
}

// New creates a Bot connected to the Bot API with the given token.
func New(token string, store storage.Store, cfg *config.Config, sets *settings.Settings, f *fetcher.Fetcher, lc *lifecycle.Manager, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:       api,
		self:      api.Self.ID,
		store:     store,
		cfg:       cfg,
		settings:  sets,
		fetcher:   f,
		lifecycle: lc,
		log:       log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is
// cancelled. One bad update never stops the loop.
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
			if update.Message == nil {
				continue
			}
			if update.Message.LeftChatMember != nil {
				b.handleMemberRemoved(ctx, update.Message)
				continue
			}
			if !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "subscribe":
		if !b.mayManage(msg) {
			b.reply(chatID, "Access denied.")
			return
		}
		b.handleSubscribe(ctx, msg, args)
	case "unsubscribe":
		if !b.mayManage(msg) {
			b.reply(chatID, "Access denied.")
			return
		}
		b.handleUnsubscribe(ctx, chatID, args)
	case "login":
		if !b.cfg.IsAdmin(msg.From.ID) {
			b.reply(chatID, "Access denied.")
			return
		}
		b.handleLogin(chatID, args)
	default:
		if id, ok := ParseUnsubscribeShortcut(cmd); ok {
			if !b.mayManage(msg) {
				b.reply(chatID, "Access denied.")
				return
			}
			b.removeSubscription(ctx, chatID, id)
			return
		}
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

// mayManage checks whether the sender may change subscriptions: any
// user when open subscribing is enabled, admins otherwise.
func (b *Bot) mayManage(msg *tgbotapi.Message) bool {
	return b.cfg.OpenSubscribe || b.cfg.IsAdmin(msg.From.ID)
}

// handleMemberRemoved fires when someone leaves a destination chat. If
// the bot itself was removed, or the chat is down to a single member,
// the destination can no longer receive bridged content and all its
// subscriptions are dropped.
func (b *Bot) handleMemberRemoved(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.LeftChatMember.ID != b.self {
		count, err := b.api.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{
			ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		})
		if err != nil {
			b.log.Error("member count", "chat_id", chatID, "error", err)
			return
		}
		if count > 1 {
			return
		}
	}

	if err := b.lifecycle.DestinationEmptied(ctx, chatID); err != nil {
		b.log.Error("purge destination", "chat_id", chatID, "error", err)
	}
}
