// Package telegram defines the boundary to the external Telegram MTProto
// client. The bridge talks to the provider only through Client instances
// obtained from a Dial, one short-lived client per operation, closed when
// the operation finishes. Connection, authentication and session handling
// belong to the concrete implementation behind NewDial.
package telegram

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by dials when no MTProto client
// implementation has been wired in or no session is available.
var ErrNotConfigured = errors.New("telegram client not configured")

// Client is a connected MTProto session.
type Client interface {
	// JoinPublic joins a public channel by username and returns it.
	JoinPublic(ctx context.Context, name string) (*Chat, error)
	// JoinInvite joins a private channel through an invite hash.
	JoinInvite(ctx context.Context, hash string) (*Chat, error)
	// Channel returns current information about a joined channel.
	Channel(ctx context.Context, id int64) (*Chat, error)
	// Messages returns up to limit messages with ids greater than
	// sinceID. Order is unspecified; most servers answer newest-first.
	Messages(ctx context.Context, channelID, sinceID int64, limit int) ([]Message, error)
	// MarkRead acknowledges messages up to and including upToID.
	MarkRead(ctx context.Context, channelID, upToID int64) error
	// DownloadMedia fetches the raw bytes of a photo or document.
	DownloadMedia(ctx context.Context, media Media) ([]byte, error)
	// LeaveChannel leaves a previously joined channel.
	LeaveChannel(ctx context.Context, channelID int64) error
	// Close disconnects the session.
	Close() error
}

// Dial connects a fresh client. Every bridge operation dials its own
// client and closes it when done; clients are never shared or pooled.
type Dial func(ctx context.Context) (Client, error)

// Options carries the provider credentials and the saved session used
// to build a Dial. Session is read on every dial so a token saved at
// runtime takes effect without a restart.
type Options struct {
	APIID   int
	APIHash string
	Session func() string
}

// NewDial builds the Dial used for all provider operations. The default
// always fails with ErrNotConfigured, which keeps the command surface
// and the store fully usable while the poll loop idles; linking in an
// MTProto client package replaces it at init time.
var NewDial = func(opts Options) Dial {
	return func(context.Context) (Client, error) {
		return nil, ErrNotConfigured
	}
}
