// Package scheduler drives the periodic poll cycle across all known
// channels.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"tgbridge/internal/dispatch"
	"tgbridge/internal/fetcher"
	"tgbridge/internal/model"
	"tgbridge/internal/render"
	"tgbridge/internal/storage"
	"tgbridge/internal/telegram"
)

// Scheduler polls every known channel on a timed loop, rendering and
// fanning out new messages. Per-channel and per-message failures are
// contained; the loop itself never stops until the context is cancelled.
type Scheduler struct {
	store    storage.Store
	dial     telegram.Dial
	fetch    *fetcher.Fetcher
	render   *render.Renderer
	dispatch *dispatch.Dispatcher
	log      *slog.Logger

	interval   time.Duration
	minSleep   time.Duration
	chanPause  time.Duration
	batchLimit int
}

// New creates a Scheduler with default timing: a five minute interval,
// a ten second sleep floor and a one second pause between channels.
func New(store storage.Store, dial telegram.Dial, f *fetcher.Fetcher, r *render.Renderer, d *dispatch.Dispatcher, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:      store,
		dial:       dial,
		fetch:      f,
		render:     r,
		dispatch:   d,
		log:        log,
		interval:   5 * time.Minute,
		minSleep:   10 * time.Second,
		chanPause:  time.Second,
		batchLimit: 100,
	}
}

// SetInterval overrides the delay between poll cycles.
func (s *Scheduler) SetInterval(d time.Duration) { s.interval = d }

// SetMinSleep overrides the sleep floor applied after slow cycles.
func (s *Scheduler) SetMinSleep(d time.Duration) { s.minSleep = d }

// SetChannelPause overrides the pause between channels within a cycle.
func (s *Scheduler) SetChannelPause(d time.Duration) { s.chanPause = d }

// SetBatchLimit overrides the per-channel message fetch limit.
func (s *Scheduler) SetBatchLimit(n int) { s.batchLimit = n }

// Run starts the poll loop, blocking until ctx is cancelled. The sleep
// after each cycle is the configured interval minus the time the cycle
// took, floored so slow cycles cannot hammer the provider back to back.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		start := time.Now()
		s.cycle(ctx)

		sleep := s.interval - time.Since(start)
		if sleep < s.minSleep {
			sleep = s.minSleep
		}
		s.log.Debug("cycle done", "took", time.Since(start), "sleep", sleep)

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// cycle connects one client, visits every channel and always disconnects.
// A connect failure abandons the cycle; it is retried on the next one.
func (s *Scheduler) cycle(ctx context.Context) {
	client, err := s.dial(ctx)
	if err != nil {
		s.log.Error("connect telegram", "error", err)
		return
	}
	defer func() { _ = client.Close() }()

	var channels []model.Channel
	err = s.store.Scope(ctx, func(tx storage.Tx) error {
		var err error
		channels, err = tx.ListChannels()
		return err
	})
	if err != nil {
		s.log.Error("list channels", "error", err)
		return
	}

	for i, ch := range channels {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			// Provider rate limit.
			time.Sleep(s.chanPause)
		}
		s.pollChannel(ctx, client, ch)
	}
}

func (s *Scheduler) pollChannel(ctx context.Context, client telegram.Client, ch model.Channel) {
	info, err := client.Channel(ctx, ch.ID)
	if err != nil {
		s.log.Error("channel info", "channel_id", ch.ID, "error", err)
		return
	}
	title := ch.Title
	if info.Title != "" && info.Title != ch.Title {
		title = info.Title
		err := s.store.Scope(ctx, func(tx storage.Tx) error {
			return tx.UpdateTitle(ch.ID, title)
		})
		if err != nil {
			s.log.Error("update title", "channel_id", ch.ID, "error", err)
		}
	}

	msgs, err := s.fetch.ListNew(ctx, client, ch.ID, ch.LastMsg, s.batchLimit)
	if err != nil {
		s.log.Error("fetch messages", "channel_id", ch.ID, "error", err)
		return
	}
	if len(msgs) == 0 {
		return
	}
	s.log.Debug("new messages", "channel_id", ch.ID, "count", len(msgs))

	for i := range msgs {
		s.processMessage(ctx, client, ch.ID, title, &msgs[i])
	}

	if err := s.fetch.Acknowledge(ctx, client, ch.ID, msgs); err != nil {
		s.log.Error("acknowledge", "channel_id", ch.ID, "error", err)
	}
}

// processMessage renders, fans out and advances the watermark. The
// watermark moves even when rendering or delivery failed: a message is
// processed exactly once, with no redelivery.
func (s *Scheduler) processMessage(ctx context.Context, client telegram.Client, chanID int64, title string, msg *telegram.Message) {
	if msg.Text != "" || msg.Media != nil || msg.Page != nil {
		bm := s.render.Message(ctx, client, title, msg)
		if msg.Media != nil {
			data, err := s.fetch.Media(ctx, client, *msg.Media)
			if err != nil {
				s.log.Error("fetch media",
					"channel_id", chanID, "msg_id", msg.ID, "error", err)
			} else if data != nil {
				bm.Media = data
				bm.MediaKind = msg.Media.Kind
				bm.MediaName = msg.Media.Name
			}
		}
		s.dispatch.Dispatch(ctx, chanID, bm)
	}

	err := s.store.Scope(ctx, func(tx storage.Tx) error {
		return tx.UpdateWatermark(chanID, msg.ID)
	})
	if err != nil {
		s.log.Error("advance watermark",
			"channel_id", chanID, "msg_id", msg.ID, "error", err)
	}
}
