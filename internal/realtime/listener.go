package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	listenRetryDelay = 2 * time.Second
	unlistenTimeout  = 5 * time.Second
)

// listenConn is the pooled connection a listen loop holds.
type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Release()
	Discard(ctx context.Context)
}

type pooledConn struct {
	*pgxpool.Conn
}

// Discard takes the connection out of the pool and closes it.
func (c pooledConn) Discard(ctx context.Context) {
	_ = c.Hijack().Close(ctx)
}

// Listener bridges Postgres LISTEN/NOTIFY into a Hub. The notify_change
// trigger installed by the schema emits the payload parsed here.
type Listener struct {
	pool    *pgxpool.Pool
	hub     *Hub
	channel string
	logger  logrus.FieldLogger
}

func NewListener(pool *pgxpool.Pool, hub *Hub, channel string, logger logrus.FieldLogger) *Listener {
	return &Listener{
		pool:    pool,
		hub:     hub,
		channel: channel,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled, reconnecting after connection errors.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}

		l.logger.WithError(err).WithField("channel", l.channel).Warn("realtime listener interrupted, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(listenRetryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	conn := pooledConn{pooled}
	defer l.release(conn)

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}

	l.logger.WithField("channel", l.channel).Info("realtime listener started")

	for {
		notification, err := conn.Conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("failed to wait for notification: %w", err)
		}

		event, err := ParseEvent(notification.Payload)
		if err != nil {
			l.logger.WithError(err).WithField("payload", notification.Payload).Warn("discarding malformed change notification")
			continue
		}

		l.hub.Publish(event)
	}
}

// release hands conn back to the pool only after it stops listening, so no
// later borrower inherits the subscription. Connections that cannot be
// cleaned are closed instead.
func (l *Listener) release(conn listenConn) {
	ctx, cancel := context.WithTimeout(context.Background(), unlistenTimeout)
	defer cancel()

	if _, err := conn.Exec(ctx, "UNLISTEN *"); err != nil {
		l.logger.WithError(err).WithField("channel", l.channel).Debug("discarding listen connection")
		conn.Discard(ctx)
		return
	}

	conn.Release()
}

func ParseEvent(payload string) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, fmt.Errorf("failed to decode change payload: %w", err)
	}

	if event.Table == "" {
		return Event{}, fmt.Errorf("change payload missing table")
	}

	return event, nil
}
