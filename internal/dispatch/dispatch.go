// Package dispatch fans one bridged message out to every matching
// subscription of its channel.
package dispatch

import (
	"context"
	"log/slog"
	"strings"

	"tgbridge/internal/model"
	"tgbridge/internal/storage"
)

// Sender delivers a bridged message to one destination chat.
type Sender interface {
	Send(ctx context.Context, destID int64, msg model.BridgeMessage) error
}

// Dispatcher enumerates subscriptions and delivers independently to each
// destination. One failing destination never blocks the others.
type Dispatcher struct {
	store  storage.Store
	sender Sender
	log    *slog.Logger
}

// New creates a Dispatcher.
func New(store storage.Store, sender Sender, log *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, sender: sender, log: log}
}

// Dispatch delivers msg to every subscription of chanID whose filter
// matches. Returns the number of successful deliveries. The store lock
// is held only while reading subscriptions, not during delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, chanID int64, msg model.BridgeMessage) int {
	var subs []model.Subscription
	err := d.store.Scope(ctx, func(tx storage.Tx) error {
		var err error
		subs, err = tx.ListSubscriptionsForChannel(chanID)
		return err
	})
	if err != nil {
		d.log.Error("list subscriptions", "channel_id", chanID, "error", err)
		return 0
	}

	delivered := 0
	for _, sub := range subs {
		if !Match(sub.Filter, msg.Text) {
			continue
		}
		if err := d.sender.Send(ctx, sub.DestID, msg); err != nil {
			d.log.Error("deliver message",
				"channel_id", chanID, "destination", sub.DestID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Match reports whether a message text passes a subscription filter.
// The empty filter matches everything; a non-empty filter must occur
// verbatim in the text.
func Match(filter, text string) bool {
	return filter == "" || strings.Contains(text, filter)
}
