package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSubscribeArgs splits /subscribe arguments into a channel
// reference and an optional filter. The filter is everything after the
// first word and may contain spaces.
func ParseSubscribeArgs(args string) (ref, filter string) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	ref = parts[0]
	if len(parts) == 2 {
		filter = strings.TrimSpace(parts[1])
	}
	return ref, filter
}

// ParseChannelIDArg extracts a numeric channel ID from a command
// argument string.
func ParseChannelIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("channel ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid channel ID %q", s)
	}
	return id, nil
}

// ParseUnsubscribeShortcut recognizes the /unsubscribe_<id> commands
// emitted by the subscription listing.
func ParseUnsubscribeShortcut(cmd string) (int64, bool) {
	rest, ok := strings.CutPrefix(cmd, "unsubscribe_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
