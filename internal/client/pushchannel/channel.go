// Package pushchannel wraps the client side of the live event connection.
// It is deliberately dumb transport: events come out of a channel, frames go
// in, and conversation filtering stays an explicit predicate the caller
// applies with its own key. Delivery is at-most-once, best-effort; nothing
// here retries or acknowledges.
package pushchannel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/artinalushaku/onlineStore-sub000/internal/push"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type Channel struct {
	conn   *websocket.Conn
	events chan push.Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial opens the authenticated connection. baseURL is the ws:// form of the
// service address; the bearer token rides in the query string, same as a
// browser client.
func Dial(ctx context.Context, baseURL, token string) (*Channel, error) {
	url := fmt.Sprintf("%s/ws?token=%s", baseURL, token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("pushchannel: dial: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("pushchannel: dial: %w", err)
	}
	ch := &Channel{
		conn:   conn,
		events: make(chan push.Event, 64),
		done:   make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

// Events delivers inbound frames. Closed when the connection drops.
func (ch *Channel) Events() <-chan push.Event { return ch.events }

// Done is closed when the connection is gone, however it went.
func (ch *Channel) Done() <-chan struct{} { return ch.done }

func (ch *Channel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		err = ch.conn.Close()
	})
	return err
}

func (ch *Channel) readLoop() {
	defer func() {
		ch.Close()
		close(ch.events)
		close(ch.done)
	}()
	for {
		var ev push.Event
		if err := ch.conn.ReadJSON(&ev); err != nil {
			return
		}
		select {
		case ch.events <- ev:
		default:
			// backpressured consumer; drop rather than stall the socket
		}
	}
}

// SendEvent writes an outbound frame (typing presence only; messages go
// through the history API).
func (ch *Channel) SendEvent(ev push.Event) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ch.conn.WriteJSON(ev)
}

// Matches reports whether an event belongs to the conversation identified by
// key. Message events for other conversations are dropped by the views but
// still trigger a console summary refresh.
func Matches(ev push.Event, key uint64) bool {
	switch ev.Type {
	case push.EventMessage:
		if ev.Message == nil {
			return false
		}
		return ev.Message.SenderID == key || ev.Message.ReceiverID == key
	case push.EventTyping, push.EventStopTyping:
		return ev.Sender == key
	default:
		return false
	}
}
