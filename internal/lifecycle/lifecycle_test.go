package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tgbridge/internal/model"
	"tgbridge/internal/storage"
)

type fakeLeaver struct {
	mu     sync.Mutex
	calls  [][]int64
	notify chan struct{}
}

func newFakeLeaver() *fakeLeaver {
	return &fakeLeaver{notify: make(chan struct{}, 8)}
}

func (l *fakeLeaver) Leave(_ context.Context, channelIDs []int64) {
	l.mu.Lock()
	l.calls = append(l.calls, channelIDs)
	l.mu.Unlock()
	l.notify <- struct{}{}
}

func (l *fakeLeaver) wait(t *testing.T) {
	t.Helper()
	select {
	case <-l.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for leave")
	}
}

func (l *fakeLeaver) snapshot() [][]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]int64(nil), l.calls...)
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, store *storage.SQLite, channels []model.Channel, subs []model.Subscription) {
	t.Helper()
	err := store.Scope(context.Background(), func(tx storage.Tx) error {
		for i := range channels {
			if err := tx.AddChannel(&channels[i]); err != nil {
				return err
			}
		}
		for i := range subs {
			if err := tx.AddSubscription(&subs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func listChannels(t *testing.T, store *storage.SQLite) []model.Channel {
	t.Helper()
	var channels []model.Channel
	err := store.Scope(context.Background(), func(tx storage.Tx) error {
		var err error
		channels, err = tx.ListChannels()
		return err
	})
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	return channels
}

func TestUnsubscribeKeepsSharedChannel(t *testing.T) {
	store := newTestStore(t)
	seed(t, store,
		[]model.Channel{{ID: 100, Title: "News"}},
		[]model.Subscription{
			{DestID: 1, ChanID: 100},
			{DestID: 2, ChanID: 100},
		})

	leaver := newFakeLeaver()
	m := New(store, leaver, slog.New(slog.NewTextHandler(io.Discard, nil)))

	removed, err := m.Unsubscribe(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}

	if got := listChannels(t, store); len(got) != 1 {
		t.Errorf("channels = %v, want the shared channel kept", got)
	}
	if calls := leaver.snapshot(); len(calls) != 0 {
		t.Errorf("leave calls = %v, want none", calls)
	}
}

func TestUnsubscribeLastRemovesChannel(t *testing.T) {
	store := newTestStore(t)
	seed(t, store,
		[]model.Channel{{ID: 100, Title: "News"}},
		[]model.Subscription{{DestID: 1, ChanID: 100}})

	leaver := newFakeLeaver()
	m := New(store, leaver, slog.New(slog.NewTextHandler(io.Discard, nil)))

	removed, err := m.Unsubscribe(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	leaver.wait(t)

	if got := listChannels(t, store); len(got) != 0 {
		t.Errorf("channels = %v, want none", got)
	}
	want := [][]int64{{100}}
	if diff := cmp.Diff(want, leaver.snapshot()); diff != "" {
		t.Errorf("leave calls mismatch (-want +got):\n%s", diff)
	}
}

func TestUnsubscribeMissing(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, []model.Channel{{ID: 100, Title: "News"}}, nil)

	leaver := newFakeLeaver()
	m := New(store, leaver, slog.New(slog.NewTextHandler(io.Discard, nil)))

	removed, err := m.Unsubscribe(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if removed {
		t.Error("expected no removal for missing subscription")
	}
	// The channel was never orphaned by this destination, so it stays.
	if got := listChannels(t, store); len(got) != 1 {
		t.Errorf("channels = %v, want the channel kept", got)
	}
}

func TestDestinationEmptied(t *testing.T) {
	store := newTestStore(t)
	seed(t, store,
		[]model.Channel{
			{ID: 100, Title: "News"},
			{ID: 200, Title: "Tech"},
			{ID: 300, Title: "Shared"},
		},
		[]model.Subscription{
			{DestID: 1, ChanID: 100},
			{DestID: 1, ChanID: 200},
			{DestID: 1, ChanID: 300},
			{DestID: 2, ChanID: 300},
		})

	leaver := newFakeLeaver()
	m := New(store, leaver, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := m.DestinationEmptied(context.Background(), 1); err != nil {
		t.Fatalf("destination emptied: %v", err)
	}
	leaver.wait(t)

	got := listChannels(t, store)
	want := []model.Channel{{ID: 300, Title: "Shared"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}

	calls := leaver.snapshot()
	wantCalls := [][]int64{{100, 200}}
	if diff := cmp.Diff(wantCalls, calls); diff != "" {
		t.Errorf("leave calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDestinationEmptiedNoSubscriptions(t *testing.T) {
	store := newTestStore(t)
	leaver := newFakeLeaver()
	m := New(store, leaver, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := m.DestinationEmptied(context.Background(), 1); err != nil {
		t.Fatalf("destination emptied: %v", err)
	}
	if calls := leaver.snapshot(); len(calls) != 0 {
		t.Errorf("leave calls = %v, want none", calls)
	}
}
