package bot

import (
	"fmt"
	"strings"

	"tgbridge/internal/model"
)

// SubEntry is one row of the subscription listing.
type SubEntry struct {
	ChanID int64
	Title  string
	Filter string
}

// FormatPost formats a bridged message for a destination chat, labelled
// with the originating channel.
func FormatPost(m model.BridgeMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", m.Sender)
	if m.Text != "" {
		b.WriteString("\n\n")
		b.WriteString(m.Text)
	}
	return b.String()
}

// FormatSubscriptionList formats a chat's subscriptions with ready-to-use
// unsubscribe shortcuts.
func FormatSubscriptionList(entries []SubEntry) string {
	if len(entries) == 0 {
		return "No subscriptions in this chat. Use /subscribe <channel> to add one."
	}

	var b strings.Builder
	b.WriteString("Subscriptions in this chat:\n")
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "\n#%d %s", e.ChanID, title)
		if e.Filter != "" {
			fmt.Fprintf(&b, " (filter: %q)", e.Filter)
		}
		fmt.Fprintf(&b, "\n/unsubscribe_%d\n", e.ChanID)
	}
	return b.String()
}
