// Package console holds the staff-facing conversation state machine:
// a summary list, a read-only review step, and a live reply view. Like the
// shopper widget it owns no transport; the caller feeds it events.
package console

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/history"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/pushchannel"
	"github.com/artinalushaku/onlineStore-sub000/internal/push"
)

type State int

const (
	StateList State = iota
	StateReview
	StateChat
)

var ErrSendInFlight = errors.New("console: a send is already in flight")

type Console struct {
	userID uint64
	api    history.API

	mu            sync.Mutex
	gen           int
	state         State
	summaries     []chat.ConversationSummary
	selected      uint64 // shopper id of the open conversation
	selectedSet   bool
	messages      []chat.Message
	shopperTyping bool
	sendInFlight  bool
}

func New(userID uint64, api history.API) *Console {
	return &Console{userID: userID, api: api, state: StateList}
}

func (c *Console) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Console) Summaries() []chat.ConversationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.ConversationSummary(nil), c.summaries...)
}

func (c *Console) Selected() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selectedSet
}

func (c *Console) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.messages...)
}

func (c *Console) ShopperTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shopperTyping
}

func (c *Console) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
}

// RefreshList reloads the conversation summaries. Called on mount and after
// every message event so previews stay current even for closed
// conversations.
func (c *Console) RefreshList(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	summaries, err := c.api.ListConversations(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil
	}
	c.summaries = summaries
	return nil
}

// Open enters the review step for one conversation: transcript loaded, no
// composer until Accept.
func (c *Console) Open(ctx context.Context, shopperID uint64) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	msgs, err := c.api.GetMessages(ctx, shopperID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil
	}
	c.selected = shopperID
	c.selectedSet = true
	c.messages = sortByCreatedAt(msgs)
	c.shopperTyping = false
	c.state = StateReview
	return nil
}

// Accept commits to replying: Review -> Chat.
func (c *Console) Accept() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReview {
		c.state = StateChat
	}
}

// Back returns to the list and drops the open selection.
func (c *Console) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearSelection()
}

// Send posts a staff reply from the Chat state; the response is applied
// optimistically, the push echo reconciles by id.
func (c *Console) Send(ctx context.Context, content string) error {
	c.mu.Lock()
	if c.state != StateChat || !c.selectedSet {
		c.mu.Unlock()
		return errors.New("console: no accepted conversation")
	}
	if c.sendInFlight {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	if strings.TrimSpace(content) == "" {
		c.mu.Unlock()
		return errors.New("console: empty message")
	}
	c.sendInFlight = true
	shopperID := c.selected
	gen := c.gen
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sendInFlight = false
		c.mu.Unlock()
	}()

	m, err := c.api.SendMessage(ctx, shopperID, content)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil
	}
	c.appendOnce(*m)
	return nil
}

// Delete removes the conversation server-side. If it is the one currently
// open in Review or Chat the console falls back to the list with no dangling
// selection.
func (c *Console) Delete(ctx context.Context, shopperID uint64) error {
	if err := c.api.DeleteConversation(ctx, shopperID); err != nil {
		return err
	}
	c.mu.Lock()
	if c.selectedSet && c.selected == shopperID {
		c.clearSelection()
	}
	kept := c.summaries[:0]
	for _, s := range c.summaries {
		if s.Counterpart.ID != shopperID {
			kept = append(kept, s)
		}
	}
	c.summaries = kept
	c.mu.Unlock()
	return nil
}

// ApplyEvent folds one push event into the console. Message events for the
// open conversation are appended; every message event, open conversation or
// not, reports refreshList=true so the caller re-queries the summaries.
func (c *Console) ApplyEvent(ev push.Event) (refreshList bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Type {
	case push.EventMessage:
		if ev.Message == nil {
			return false
		}
		if c.selectedSet && pushchannel.Matches(ev, c.selected) {
			c.appendOnce(*ev.Message)
		}
		return true
	case push.EventTyping:
		if c.selectedSet && pushchannel.Matches(ev, c.selected) {
			c.shopperTyping = true
		}
	case push.EventStopTyping:
		if c.selectedSet && pushchannel.Matches(ev, c.selected) {
			c.shopperTyping = false
		}
	}
	return false
}

// callers hold c.mu
func (c *Console) clearSelection() {
	c.state = StateList
	c.selected = 0
	c.selectedSet = false
	c.messages = nil
	c.shopperTyping = false
}

func (c *Console) appendOnce(m chat.Message) {
	for _, existing := range c.messages {
		if existing.ID == m.ID {
			return
		}
	}
	c.messages = append(c.messages, m)
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
