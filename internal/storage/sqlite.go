package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"tgbridge/internal/model"
	"tgbridge/migrations"
)

// SQLite implements Store backed by a SQLite database.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Scope acquires the store lock, opens a transaction and hands it to fn.
// Only one scope runs at a time across the whole process; callers must
// keep network I/O out of fn.
func (s *SQLite) Scope(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&sqliteTx{ctx: ctx, tx: dbtx}); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqliteTx) AddChannel(ch *model.Channel) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO channels (id, title, last_msg) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET title = excluded.title`,
		ch.ID, ch.Title, ch.LastMsg,
	)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (t *sqliteTx) Channel(id int64) (*model.Channel, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT id, title, last_msg FROM channels WHERE id = ?`, id,
	)
	var ch model.Channel
	if err := row.Scan(&ch.ID, &ch.Title, &ch.LastMsg); err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	return &ch, nil
}

func (t *sqliteTx) ListChannels() ([]model.Channel, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT id, title, last_msg FROM channels ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []model.Channel
	for rows.Next() {
		var ch model.Channel
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.LastMsg); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (t *sqliteTx) UpdateWatermark(chanID, msgID int64) error {
	_, err := t.tx.ExecContext(t.ctx,
		`UPDATE channels SET last_msg = ? WHERE id = ? AND last_msg < ?`,
		msgID, chanID, msgID,
	)
	if err != nil {
		return fmt.Errorf("update watermark: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateTitle(chanID int64, title string) error {
	_, err := t.tx.ExecContext(t.ctx,
		`UPDATE channels SET title = ? WHERE id = ?`, title, chanID,
	)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return nil
}

func (t *sqliteTx) RemoveChannelIfOrphaned(chanID int64) (bool, error) {
	var count int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE chan_id = ?`, chanID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count subscriptions: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM channels WHERE id = ?`, chanID)
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (t *sqliteTx) AddSubscription(sub *model.Subscription) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO subscriptions (dest_id, chan_id, filter) VALUES (?, ?, ?)`,
		sub.DestID, sub.ChanID, sub.Filter,
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("insert subscription: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// isConstraint reports whether err is a SQLite constraint violation.
// The primary code is in the low byte; extended codes carry detail above it.
func isConstraint(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func (t *sqliteTx) RemoveSubscription(destID, chanID int64) (bool, error) {
	res, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM subscriptions WHERE dest_id = ? AND chan_id = ?`,
		destID, chanID,
	)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (t *sqliteTx) ListSubscriptionsForChannel(chanID int64) ([]model.Subscription, error) {
	return t.listSubscriptions(`SELECT dest_id, chan_id, filter FROM subscriptions WHERE chan_id = ? ORDER BY dest_id`, chanID)
}

func (t *sqliteTx) ListSubscriptionsForDestination(destID int64) ([]model.Subscription, error) {
	return t.listSubscriptions(`SELECT dest_id, chan_id, filter FROM subscriptions WHERE dest_id = ? ORDER BY chan_id`, destID)
}

func (t *sqliteTx) listSubscriptions(query string, arg int64) ([]model.Subscription, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(&sub.DestID, &sub.ChanID, &sub.Filter); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
