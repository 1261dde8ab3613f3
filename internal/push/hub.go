package push

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/models"
)

// Presence is the slice of the redis store the hub needs to keep staff
// availability current while their connections live.
type Presence interface {
	MarkStaffOnline(ctx context.Context, staffID uint64, ttl time.Duration) error
	MarkStaffOffline(ctx context.Context, staffID uint64) error
}

type Hub struct {
	mu      sync.Mutex
	clients map[uint64][]*client // keyed by user id, many tabs per user

	register   chan *client
	unregister chan *client

	presence    Presence
	presenceTTL time.Duration
}

func NewHub(presence Presence, presenceTTL time.Duration) *Hub {
	return &Hub{
		clients:     make(map[uint64][]*client),
		register:    make(chan *client),
		unregister:  make(chan *client),
		presence:    presence,
		presenceTTL: presenceTTL,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.userID] = append(h.clients[c.userID], c)
			h.mu.Unlock()
			if c.role == models.RoleStaff && h.presence != nil {
				if err := h.presence.MarkStaffOnline(context.Background(), c.userID, h.presenceTTL); err != nil {
					log.Printf("push: mark staff %d online: %v", c.userID, err)
				}
			}

		case c := <-h.unregister:
			h.mu.Lock()
			conns := h.clients[c.userID]
			for i, other := range conns {
				if other == c {
					h.clients[c.userID] = append(conns[:i], conns[i+1:]...)
					break
				}
			}
			last := len(h.clients[c.userID]) == 0
			if last {
				delete(h.clients, c.userID)
			}
			// close under h.mu: senders hold the same lock, so a frame can
			// never race a close on c.send
			c.closeSend()
			h.mu.Unlock()
			if last && c.role == models.RoleStaff && h.presence != nil {
				if err := h.presence.MarkStaffOffline(context.Background(), c.userID); err != nil {
					log.Printf("push: mark staff %d offline: %v", c.userID, err)
				}
			}
		}
	}
}

// SendToUser delivers the event to every live connection of one user.
// Delivery is fire-and-forget: a slow or gone connection drops the frame.
// The non-blocking sends happen under h.mu so they cannot race the
// unregister path closing c.send.
func (h *Hub) SendToUser(userID uint64, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("push: marshal event: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			log.Printf("push: dropping frame for slow client %d", userID)
		}
	}
}

// SendToStaff fans the event out to every connected staff member. Used when
// the receiver is the generic staff sentinel.
func (h *Hub) SendToStaff(ev Event) {
	h.mu.Lock()
	var ids []uint64
	for id, conns := range h.clients {
		if len(conns) > 0 && conns[0].role == models.RoleStaff {
			ids = append(ids, id)
		}
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.SendToUser(id, ev)
	}
}

// Deliver routes a canonical message event to both parties.
func (h *Hub) Deliver(m *chat.Message) {
	ev := Event{Type: EventMessage, Sender: m.SenderID, Receiver: m.ReceiverID, Message: m}
	h.SendToUser(m.SenderID, ev)
	if m.ReceiverID == chat.StaffSentinel {
		h.SendToStaff(ev)
		return
	}
	h.SendToUser(m.ReceiverID, ev)
}

// relay forwards a typing frame read from one connection to its counterpart.
func (h *Hub) relay(from *client, ev Event) {
	if ev.Type != EventTyping && ev.Type != EventStopTyping {
		return
	}
	out := Event{Type: ev.Type, Sender: from.userID, Receiver: ev.Receiver}
	if ev.Receiver == chat.StaffSentinel && from.role == models.RoleShopper {
		h.SendToStaff(out)
		return
	}
	h.SendToUser(ev.Receiver, out)
}
