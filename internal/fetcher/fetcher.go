// Package fetcher bridges poll-cycle network operations to short-lived
// MTProto clients.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"tgbridge/internal/telegram"
)

// ErrNotBroadcast is returned when a subscribe target resolves to a
// group or a one-to-one chat instead of a broadcast channel.
var ErrNotBroadcast = errors.New("not a broadcast channel")

// Fetcher wraps the provider client for one bridge deployment.
type Fetcher struct {
	dial     telegram.Dial
	maxMedia int64
	log      *slog.Logger
}

// New creates a Fetcher. maxMedia bounds attachment downloads in bytes;
// zero disables the bound.
func New(dial telegram.Dial, maxMedia int64, log *slog.Logger) *Fetcher {
	return &Fetcher{dial: dial, maxMedia: maxMedia, log: log}
}

// Join resolves ref, joins the channel on the provider side and
// validates that it is a broadcast channel. Nothing is persisted here,
// so a failed join leaves all state untouched.
func (f *Fetcher) Join(ctx context.Context, ref string) (*telegram.Chat, error) {
	invite, name := ParseRef(ref)

	client, err := f.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = client.Close() }()

	var chat *telegram.Chat
	if invite != "" {
		chat, err = client.JoinInvite(ctx, invite)
	} else {
		chat, err = client.JoinPublic(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("join %q: %w", ref, err)
	}
	if !chat.Broadcast {
		return nil, fmt.Errorf("%q: %w", ref, ErrNotBroadcast)
	}
	return chat, nil
}

// ParseRef splits a channel reference into an invite hash or a public
// name. Accepts t.me links, invite links and bare @names.
func ParseRef(ref string) (invite, name string) {
	last := ref[strings.LastIndex(ref, "/")+1:]
	if strings.Contains(ref, "/joinchat/") {
		return last, ""
	}
	if strings.HasPrefix(last, "+") {
		return strings.TrimPrefix(last, "+"), ""
	}
	return "", strings.ReplaceAll(strings.Trim(last, "@"), " ", "_")
}

// ListNew returns messages newer than sinceID in ascending id order,
// reversing the provider's newest-first answers when needed.
func (f *Fetcher) ListNew(ctx context.Context, client telegram.Client, channelID, sinceID int64, limit int) ([]telegram.Message, error) {
	msgs, err := client.Messages(ctx, channelID, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, nil
}

// Acknowledge marks msgs as read on the provider side. msgs must be in
// ascending id order.
func (f *Fetcher) Acknowledge(ctx context.Context, client telegram.Client, channelID int64, msgs []telegram.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := client.MarkRead(ctx, channelID, msgs[len(msgs)-1].ID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// Media downloads one attachment, enforcing the size bound. Oversized
// media is skipped and reported as nil bytes so the message still goes
// out as text.
func (f *Fetcher) Media(ctx context.Context, client telegram.Client, media telegram.Media) ([]byte, error) {
	if f.maxMedia > 0 && media.Size > f.maxMedia {
		f.log.Debug("media exceeds size limit",
			"media_id", media.ID, "size", media.Size, "limit", f.maxMedia)
		return nil, nil
	}
	data, err := client.DownloadMedia(ctx, media)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	return data, nil
}

// Leave departs the given channels on the provider side using its own
// short-lived client. Leaving is best effort; failures are logged.
func (f *Fetcher) Leave(ctx context.Context, channelIDs []int64) {
	if len(channelIDs) == 0 {
		return
	}
	client, err := f.dial(ctx)
	if err != nil {
		f.log.Error("connect for leave", "error", err)
		return
	}
	defer func() { _ = client.Close() }()

	for _, id := range channelIDs {
		if err := client.LeaveChannel(ctx, id); err != nil {
			f.log.Error("leave channel", "channel_id", id, "error", err)
		}
	}
}
