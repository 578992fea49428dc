package bot

import (
	"strings"
	"testing"

	"tgbridge/internal/model"
)

func TestFormatPost(t *testing.T) {
	tests := []struct {
		name string
		msg  model.BridgeMessage
		want string
	}{
		{
			name: "text with sender",
			msg:  model.BridgeMessage{Sender: "News", Text: "hello"},
			want: "[News]\n\nhello",
		},
		{
			name: "media only post keeps the label",
			msg:  model.BridgeMessage{Sender: "News"},
			want: "[News]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPost(tt.msg); got != tt.want {
				t.Errorf("FormatPost = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSubscriptionList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got := FormatSubscriptionList(nil)
		if !strings.Contains(got, "No subscriptions") {
			t.Errorf("got %q, want empty-list notice", got)
		}
	})

	t.Run("entries with shortcuts", func(t *testing.T) {
		got := FormatSubscriptionList([]SubEntry{
			{ChanID: 100, Title: "News"},
			{ChanID: 200, Title: "Tech", Filter: "golang"},
			{ChanID: 300},
		})
		for _, want := range []string{
			"#100 News",
			"/unsubscribe_100",
			`#200 Tech (filter: "golang")`,
			"/unsubscribe_200",
			"#300 (untitled)",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("listing missing %q, got:\n%s", want, got)
			}
		}
	})
}
