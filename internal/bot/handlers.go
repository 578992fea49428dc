package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tgbridge/internal/fetcher"
	"tgbridge/internal/model"
	"tgbridge/internal/settings"
	"tgbridge/internal/storage"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to the Telegram channel bridge!

Mirror broadcast channels into this group chat.

Quick start:
1. /subscribe <channel> — mirror a channel here
2. /subscribe <channel> <word> — mirror only posts containing a word
3. /unsubscribe — list subscriptions

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Subscriptions:
/subscribe <channel> [filter] — mirror a channel into this chat;
  the channel may be @name, a t.me link or an invite link. With a
  filter only posts containing it verbatim are delivered.
/unsubscribe <channel_id> — stop mirroring a channel
/unsubscribe — list subscriptions with ready-to-use shortcuts

Setup:
/login <session> — set the saved Telegram session (admin only)`)
}

func (b *Bot) handleSubscribe(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID

	if b.settings.Get(settings.KeySession) == "" {
		b.reply(chatID, "You must log in first. Use /login <session>.")
		return
	}
	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		b.reply(chatID, "Subscribing works in group chats only.")
		return
	}

	ref, filter := ParseSubscribeArgs(args)
	if ref == "" {
		b.reply(chatID, "Usage: /subscribe <channel> [filter]")
		return
	}

	chat, err := b.fetcher.Join(ctx, ref)
	if err != nil {
		if errors.Is(err, fetcher.ErrNotBroadcast) {
			b.reply(chatID, fmt.Sprintf("%s is not a broadcast channel.", ref))
			return
		}
		b.log.Error("join channel", "ref", ref, "error", err)
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	err = b.store.Scope(ctx, func(tx storage.Tx) error {
		ch := &model.Channel{ID: chat.ID, Title: chat.Title, LastMsg: chat.TopMessage}
		if err := tx.AddChannel(ch); err != nil {
			return err
		}
		return tx.AddSubscription(&model.Subscription{
			DestID: chatID,
			ChanID: chat.ID,
			Filter: filter,
		})
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			b.reply(chatID, "This chat is already subscribed to that channel.")
			return
		}
		b.log.Error("save subscription", "ref", ref, "chat_id", chatID, "error", err)
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	title := chat.Title
	if title == "" {
		title = ref
	}
	if filter != "" {
		b.reply(chatID, fmt.Sprintf("Subscribed to %s (filter: %q).", title, filter))
	} else {
		b.reply(chatID, fmt.Sprintf("Subscribed to %s.", title))
	}
}

func (b *Bot) handleUnsubscribe(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.listSubscriptions(ctx, chatID)
		return
	}

	id, err := ParseChannelIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /unsubscribe <channel_id>")
		return
	}
	b.removeSubscription(ctx, chatID, id)
}

func (b *Bot) removeSubscription(ctx context.Context, chatID, chanID int64) {
	removed, err := b.lifecycle.Unsubscribe(ctx, chatID, chanID)
	if err != nil {
		b.log.Error("unsubscribe", "chat_id", chatID, "channel_id", chanID, "error", err)
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !removed {
		b.reply(chatID, fmt.Sprintf("This chat is not subscribed to channel #%d.", chanID))
		return
	}
	b.reply(chatID, fmt.Sprintf("Unsubscribed from channel #%d.", chanID))
}

func (b *Bot) listSubscriptions(ctx context.Context, chatID int64) {
	var entries []SubEntry
	err := b.store.Scope(ctx, func(tx storage.Tx) error {
		subs, err := tx.ListSubscriptionsForDestination(chatID)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			entry := SubEntry{ChanID: sub.ChanID, Filter: sub.Filter}
			if ch, err := tx.Channel(sub.ChanID); err == nil {
				entry.Title = ch.Title
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		b.log.Error("list subscriptions", "chat_id", chatID, "error", err)
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	b.reply(chatID, FormatSubscriptionList(entries))
}

func (b *Bot) handleLogin(chatID int64, args string) {
	if args == "" {
		b.reply(chatID, `Usage: /login <session>

Provide a saved Telegram session string for the account that will
follow the channels. The session is stored and used by the poll loop.`)
		return
	}

	if err := b.settings.Set(settings.KeySession, args); err != nil {
		b.log.Error("save session", "error", err)
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, "Session saved.")
}
