package pushchannel

import (
	"sync"
	"time"

	"github.com/artinalushaku/onlineStore-sub000/internal/push"
)

// TypingIdle is how long after the last keystroke the stop_typing frame
// fires.
const TypingIdle = 1000 * time.Millisecond

// EventSender is the outbound half of the channel the typist needs.
type EventSender interface {
	SendEvent(ev push.Event) error
}

// Typist turns raw keystrokes into debounced typing presence: one typing
// frame when composing starts, exactly one stop_typing frame per idle
// period, driven by a single-shot timer that resets (never stacks) on each
// keystroke.
type Typist struct {
	sender EventSender
	key    uint64

	mu     sync.Mutex
	timer  *time.Timer
	typing bool
}

func NewTypist(sender EventSender, conversationKey uint64) *Typist {
	return &Typist{sender: sender, key: conversationKey}
}

func (t *Typist) Keystroke() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.typing {
		t.typing = true
		_ = t.sender.SendEvent(push.Event{Type: push.EventTyping, Receiver: t.key})
	}
	if t.timer == nil {
		t.timer = time.AfterFunc(TypingIdle, t.expire)
		return
	}
	t.timer.Reset(TypingIdle)
}

func (t *Typist) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.typing {
		return
	}
	t.typing = false
	_ = t.sender.SendEvent(push.Event{Type: push.EventStopTyping, Receiver: t.key})
}

// Stop flushes a pending stop_typing immediately. Called on unmount so the
// counterpart never sees a stuck indicator.
func (t *Typist) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.typing {
		t.typing = false
		_ = t.sender.SendEvent(push.Event{Type: push.EventStopTyping, Receiver: t.key})
	}
}
