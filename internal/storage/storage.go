// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"tgbridge/internal/model"
)

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint, notably subscribing a chat to the same channel twice.
var ErrDuplicate = errors.New("already exists")

// Tx exposes the operations available inside a transactional scope.
type Tx interface {
	// AddChannel inserts a channel if it does not exist yet. An existing
	// row keeps its watermark; only the title is refreshed.
	AddChannel(ch *model.Channel) error
	Channel(id int64) (*model.Channel, error)
	ListChannels() ([]model.Channel, error)
	// UpdateWatermark advances a channel's watermark. Values at or below
	// the current watermark are ignored.
	UpdateWatermark(chanID, msgID int64) error
	UpdateTitle(chanID int64, title string) error
	// RemoveChannelIfOrphaned deletes the channel when no subscriptions
	// reference it and reports whether a row was deleted.
	RemoveChannelIfOrphaned(chanID int64) (bool, error)

	// AddSubscription fails with ErrDuplicate when the (destination,
	// channel) pair already exists.
	AddSubscription(sub *model.Subscription) error
	// RemoveSubscription reports whether the subscription existed.
	RemoveSubscription(destID, chanID int64) (bool, error)
	ListSubscriptionsForChannel(chanID int64) ([]model.Subscription, error)
	ListSubscriptionsForDestination(destID int64) ([]model.Subscription, error)
}

// Store provides serialized transactional access to the bridge state.
// Scope runs fn inside a single transaction guarded by a process-wide
// lock: it commits when fn returns nil and rolls back otherwise, so no
// partial writes survive a failure even though the command handlers and
// the poll loop touch the store concurrently.
type Store interface {
	Scope(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
