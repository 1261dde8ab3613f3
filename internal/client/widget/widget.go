// Package widget holds the shopper-facing chat state machine. It owns no
// transport: the caller feeds it push events and drives its operations, the
// widget keeps conversation state consistent.
package widget

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/history"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/identity"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/session"
	"github.com/artinalushaku/onlineStore-sub000/internal/push"
)

type State int

const (
	StateIdle State = iota
	StateComposing
	StateLive
)

var (
	ErrSendInFlight = errors.New("widget: a send is already in flight")
	ErrEmptyDraft   = errors.New("widget: draft is empty")
)

type Widget struct {
	userID   uint64
	api      history.API
	resolver *identity.Resolver
	sessions *session.Store

	mu            sync.Mutex
	gen           int // bumped on unmount; stale fetch results are discarded
	state         State
	key           uint64
	keySet        bool
	messages      []chat.Message
	draft         string
	sendInFlight  bool
	staffTyping   bool
	resolveFailed bool
}

func New(userID uint64, api history.API, resolver *identity.Resolver, sessions *session.Store) *Widget {
	return &Widget{
		userID:   userID,
		api:      api,
		resolver: resolver,
		sessions: sessions,
		state:    StateIdle,
	}
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Widget) Key() (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.key, w.keySet
}

func (w *Widget) Messages() []chat.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]chat.Message(nil), w.messages...)
}

func (w *Widget) StaffTyping() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.staffTyping
}

// ComposeDisabled reports that identity resolution failed outright; the
// composer should be presented disabled rather than crash or retry blindly.
func (w *Widget) ComposeDisabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resolveFailed
}

func (w *Widget) SetDraft(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = s
}

func (w *Widget) Draft() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Mount resumes the persisted conversation if one exists and still has
// history. An empty transcript invalidates the stored key and falls back to
// the start flow; a transport failure leaves the widget in Idle with the
// stored key intact, to be retried on the next mount.
func (w *Widget) Mount(ctx context.Context) error {
	w.mu.Lock()
	gen := w.gen
	w.mu.Unlock()

	key, ok := w.sessions.Resume()
	if !ok {
		return nil
	}

	msgs, err := w.api.GetMessages(ctx, key)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return nil // unmounted while the fetch was in flight
	}
	if len(msgs) == 0 {
		// ghost session: the conversation is gone (staff delete, data reset)
		_ = w.sessions.Clear()
		w.resolver.Invalidate()
		w.state = StateIdle
		return nil
	}
	w.key = key
	w.keySet = true
	w.messages = sortByCreatedAt(msgs)
	w.state = StateLive
	return nil
}

func (w *Widget) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
}

// StartCompose moves an idle widget into the first-message flow.
func (w *Widget) StartCompose() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateIdle {
		w.state = StateComposing
	}
}

// Submit sends the buffered first message: resolve the counterpart, post to
// the history API, persist the session, go Live. On any failure the widget
// stays in Composing with the draft preserved.
func (w *Widget) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateComposing {
		w.mu.Unlock()
		return errors.New("widget: not composing")
	}
	if w.sendInFlight {
		w.mu.Unlock()
		return ErrSendInFlight
	}
	draft := w.draft
	if strings.TrimSpace(draft) == "" {
		w.mu.Unlock()
		return ErrEmptyDraft
	}
	w.sendInFlight = true
	gen := w.gen
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.sendInFlight = false
		w.mu.Unlock()
	}()

	key, err := w.resolver.Resolve(ctx)
	if err != nil {
		w.mu.Lock()
		w.resolveFailed = true
		w.mu.Unlock()
		return err
	}

	m, err := w.api.SendMessage(ctx, key, draft)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return nil
	}
	w.resolveFailed = false
	w.key = key
	w.keySet = true
	w.draft = ""
	w.state = StateLive
	w.appendOnce(*m) // optimistic: the echo reconciles by id
	if err := w.sessions.Save(key); err != nil {
		return err
	}
	return nil
}

// Send posts a message from the Live state. The stored response is applied
// optimistically so the sender's own transcript does not depend on the push
// echo surviving a dropped connection.
func (w *Widget) Send(ctx context.Context, content string) error {
	w.mu.Lock()
	if w.state != StateLive {
		w.mu.Unlock()
		return errors.New("widget: not live")
	}
	if w.sendInFlight {
		w.mu.Unlock()
		return ErrSendInFlight
	}
	if strings.TrimSpace(content) == "" {
		w.mu.Unlock()
		return ErrEmptyDraft
	}
	w.sendInFlight = true
	key := w.key
	gen := w.gen
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.sendInFlight = false
		w.mu.Unlock()
	}()

	m, err := w.api.SendMessage(ctx, key, content)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return nil
	}
	w.appendOnce(*m)
	return nil
}

// ApplyEvent folds one push-channel event into the widget. A shopper has a
// single conversation, so any message addressed to or sent by this user
// belongs to it; a staff reply with a new concrete sender rebinds the
// conversation key so it cannot split from the sentinel.
func (w *Widget) ApplyEvent(ev push.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateLive {
		return
	}
	switch ev.Type {
	case push.EventMessage:
		m := ev.Message
		if m == nil || (m.SenderID != w.userID && m.ReceiverID != w.userID && m.ReceiverID != chat.StaffSentinel) {
			return
		}
		w.appendOnce(*m)
		if m.SenderID != w.userID && m.SenderID != w.key {
			w.key = m.SenderID
			_ = w.resolver.Rebind(m.SenderID)
		}
	case push.EventTyping:
		if ev.Sender == w.key || w.key == chat.StaffSentinel {
			w.staffTyping = true
		}
	case push.EventStopTyping:
		if ev.Sender == w.key || w.key == chat.StaffSentinel {
			w.staffTyping = false
		}
	}
}

// Refetch reloads the full transcript, masking any ordering gap left by a
// dropped push connection.
func (w *Widget) Refetch(ctx context.Context) error {
	w.mu.Lock()
	if !w.keySet {
		w.mu.Unlock()
		return nil
	}
	key := w.key
	gen := w.gen
	w.mu.Unlock()

	msgs, err := w.api.GetMessages(ctx, key)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return nil
	}
	w.messages = sortByCreatedAt(msgs)
	return nil
}

// appendOnce adds a message unless a row with the same server id is already
// visible (send response vs. push echo). Callers hold w.mu.
func (w *Widget) appendOnce(m chat.Message) {
	for _, existing := range w.messages {
		if existing.ID == m.ID {
			return
		}
	}
	w.messages = append(w.messages, m)
}

func sortByCreatedAt(msgs []chat.Message) []chat.Message {
	out := append([]chat.Message(nil), msgs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
