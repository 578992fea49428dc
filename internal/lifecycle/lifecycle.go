// Package lifecycle reconciles subscriptions with destination membership
// and keeps provider-side channel membership in sync.
package lifecycle

import (
	"context"
	"log/slog"

	"tgbridge/internal/storage"
)

// Leaver departs channels on the provider side.
type Leaver interface {
	Leave(ctx context.Context, channelIDs []int64)
}

// Manager owns the subscription and channel deletion rules.
type Manager struct {
	store  storage.Store
	leaver Leaver
	log    *slog.Logger
}

// New creates a Manager.
func New(store storage.Store, leaver Leaver, log *slog.Logger) *Manager {
	return &Manager{store: store, leaver: leaver, log: log}
}

// Unsubscribe removes one subscription and deletes the channel when it
// was the last one. Reports whether the subscription existed.
func (m *Manager) Unsubscribe(ctx context.Context, destID, chanID int64) (bool, error) {
	var removed, orphaned bool
	err := m.store.Scope(ctx, func(tx storage.Tx) error {
		var err error
		removed, err = tx.RemoveSubscription(destID, chanID)
		if err != nil || !removed {
			return err
		}
		orphaned, err = tx.RemoveChannelIfOrphaned(chanID)
		return err
	})
	if err != nil {
		return false, err
	}
	if orphaned {
		m.leaveAsync([]int64{chanID})
	}
	return removed, nil
}

// DestinationEmptied drops every subscription of a destination that lost
// its members, deleting channels left without subscribers.
func (m *Manager) DestinationEmptied(ctx context.Context, destID int64) error {
	var orphaned []int64
	err := m.store.Scope(ctx, func(tx storage.Tx) error {
		subs, err := tx.ListSubscriptionsForDestination(destID)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			if _, err := tx.RemoveSubscription(destID, sub.ChanID); err != nil {
				return err
			}
			gone, err := tx.RemoveChannelIfOrphaned(sub.ChanID)
			if err != nil {
				return err
			}
			if gone {
				orphaned = append(orphaned, sub.ChanID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(orphaned) > 0 {
		m.log.Info("leaving orphaned channels",
			"destination", destID, "count", len(orphaned))
		m.leaveAsync(orphaned)
	}
	return nil
}

// leaveAsync departs channels after the deleting transaction has
// committed, on its own goroutine and its own context so a provider
// failure stays out of the deletion's failure domain.
func (m *Manager) leaveAsync(channelIDs []int64) {
	go m.leaver.Leave(context.Background(), channelIDs)
}
