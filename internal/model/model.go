// Package model defines the domain types used across the application.
package model

// Channel is an external broadcast channel mirrored into destination chats.
type Channel struct {
	ID      int64
	Title   string
	LastMsg int64 // highest message id already processed, never decreases
}

// Subscription binds a destination chat to a channel. A destination may
// subscribe to a channel at most once.
type Subscription struct {
	DestID int64
	ChanID int64
	Filter string // substring a message text must contain; empty matches everything
}

// MediaKind classifies bridged media attachments.
type MediaKind string

// Supported media kinds.
const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaFile  MediaKind = "file"
)

// BridgeMessage is the normalized representation of one channel post,
// ready for delivery to destination chats.
type BridgeMessage struct {
	Text      string
	HTML      string // rendered instant-view article, empty when the post has none
	Media     []byte
	MediaKind MediaKind
	MediaName string
	Sender    string // display label, the channel title
}
