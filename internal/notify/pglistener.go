package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Channel is the Postgres NOTIFY channel written by the trip_basecamps trigger.
// The payload is the trip id.
const Channel = "basecamp_changed"

// Publisher receives one call per change notification.
type Publisher interface {
	Publish(tripID uuid.UUID)
}

// Waiter is the part of a dedicated Postgres connection PGListener needs.
type Waiter interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

// Acquirer hands out dedicated connections. *pgxpool.Pool satisfies it via
// PoolAcquirer.
type Acquirer interface {
	AcquireWaiter(ctx context.Context) (Waiter, error)
}

// PoolAcquirer adapts a pgxpool.Pool to Acquirer.
type PoolAcquirer struct {
	Pool *pgxpool.Pool
}

// AcquireWaiter checks out one pooled connection for LISTEN.
func (a PoolAcquirer) AcquireWaiter(ctx context.Context) (Waiter, error) {
	conn, err := a.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return pooledWaiter{conn}, nil
}

type pooledWaiter struct {
	*pgxpool.Conn
}

func (w pooledWaiter) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return w.Conn.Conn().WaitForNotification(ctx)
}

// PGListener forwards Postgres change notifications to a Publisher.
type PGListener struct {
	src     Acquirer
	pub     Publisher
	log     *slog.Logger
	backoff time.Duration
}

// NewPGListener returns a PGListener reading from src and publishing to pub.
func NewPGListener(src Acquirer, pub Publisher, logger *slog.Logger) *PGListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGListener{
		src:     src,
		pub:     pub,
		log:     logger.With("component", "notify.pglistener"),
		backoff: time.Second,
	}
}

// Run listens until ctx is cancelled, reconnecting after connection errors.
// It returns nil on cancellation.
func (l *PGListener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.log.WarnContext(ctx, "listen connection lost, retrying", "error", err, "backoff", l.backoff)

		t := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := l.src.AcquireWaiter(ctx)
	if err != nil {
		return fmt.Errorf("notify.PGListener.listen: acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("notify.PGListener.listen: %w", err)
	}
	l.log.InfoContext(ctx, "listening for basecamp changes", "channel", Channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("notify.PGListener.listen: wait: %w", err)
		}
		tripID, err := uuid.Parse(n.Payload)
		if err != nil {
			l.log.WarnContext(ctx, "ignoring malformed notification", "payload", n.Payload, "error", err)
			continue
		}
		l.pub.Publish(tripID)
	}
}
