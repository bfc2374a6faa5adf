package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/pkordes/trip-basecamp/internal/basecamp"
)

// SubscribeShared opens the trip's event stream and calls onChange once per
// frame. If the stream drops it is reopened after the reconnect delay and
// onChange is called once, since events sent in between are lost.
//
// The first connection is made before returning, so a bad URL or unknown trip
// is reported as an error.
func (c *Client) SubscribeShared(ctx context.Context, tripID uuid.UUID, onChange func()) (basecamp.Subscription, error) {
	wsURL := c.eventsURL(tripID)
	conn, err := c.dial(ctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("client.Client.SubscribeShared: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{cancel: cancel}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.stream(ctx, tripID, wsURL, conn, onChange)
	}()
	return s, nil
}

type subscription struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (c *Client) stream(ctx context.Context, tripID uuid.UUID, wsURL string, conn *websocket.Conn, onChange func()) {
	for {
		err := readFrames(ctx, conn, onChange)
		conn.CloseNow()
		if ctx.Err() != nil {
			return
		}
		c.log.WarnContext(ctx, "basecamp event stream lost", "trip_id", tripID, "error", err)

		conn = c.redial(ctx, tripID, wsURL)
		if conn == nil {
			return
		}
		onChange()
	}
}

func readFrames(ctx context.Context, conn *websocket.Conn, onChange func()) error {
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return err
		}
		onChange()
	}
}

// redial retries until it connects or ctx is done, in which case it returns nil.
func (c *Client) redial(ctx context.Context, tripID uuid.UUID, wsURL string) *websocket.Conn {
	for {
		t := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}

		conn, err := c.dial(ctx, wsURL)
		if err == nil {
			c.log.InfoContext(ctx, "basecamp event stream reconnected", "trip_id", tripID)
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}
		c.log.WarnContext(ctx, "basecamp event stream reconnect failed", "trip_id", tripID, "error", err)
	}
}

func (c *Client) dial(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) eventsURL(tripID uuid.UUID) string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += sharedPath(tripID) + "/events"
	return u.String()
}
