package chat

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/artinalushaku/onlineStore-sub000/internal/models"
	"github.com/artinalushaku/onlineStore-sub000/internal/store/rabbitmq"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

var (
	ErrEmptyContent = errors.New("chat: message content is empty")
	ErrBadReceiver  = errors.New("chat: receiver is not a valid counterpart")
	ErrNoStaff      = errors.New("chat: no staff member available")
)

// Deliverer pushes the canonical message echo to live connections.
type Deliverer interface {
	Deliver(m *Message)
}

// EventPublisher emits integration events for the rest of the storefront.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev rabbitmq.ChatEvent) error
}

// CounterStore serves staff availability and per-conversation unread counts.
type CounterStore interface {
	OnlineStaffIDs(ctx context.Context) ([]uint64, error)
	ResetUnread(ctx context.Context, shopperID uint64) error
	Unread(ctx context.Context, shopperID uint64) (int64, error)
}

type Service struct {
	repo     *Repo
	hub      Deliverer
	events   EventPublisher
	counters CounterStore
}

func NewService(repo *Repo, hub Deliverer, events EventPublisher, counters CounterStore) *Service {
	return &Service{repo: repo, hub: hub, events: events, counters: counters}
}

// SendMessage persists the message, echoes it over the push channel to both
// parties and publishes a message_stored event. The push echo and the event
// are best-effort; persistence is the only hard requirement.
func (s *Service) SendMessage(ctx context.Context, sender *models.User, receiverID uint64, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	var shopperID uint64
	switch sender.Role {
	case models.RoleShopper:
		// receiver is a concrete staff id or the sentinel
		if receiverID != StaffSentinel {
			recv, err := s.repo.GetUser(ctx, receiverID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrBadReceiver
				}
				return nil, err
			}
			if recv.Role != models.RoleStaff {
				return nil, ErrBadReceiver
			}
		}
		shopperID = sender.ID
	case models.RoleStaff:
		// staff always address a concrete shopper
		recv, err := s.repo.GetUser(ctx, receiverID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBadReceiver
			}
			return nil, err
		}
		if recv.Role != models.RoleShopper {
			return nil, ErrBadReceiver
		}
		shopperID = receiverID
	default:
		return nil, ErrBadReceiver
	}

	m := &Message{
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		ShopperID:  shopperID,
		Content:    content,
	}
	if err := s.repo.InsertMessage(ctx, m); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Deliver(m)
	}
	s.publish(ctx, rabbitmq.ChatEvent{
		EventID:    ulid.Make().String(),
		Type:       rabbitmq.EventMessageStored,
		ShopperID:  shopperID,
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		MessageID:  m.ID,
	})
	return m, nil
}

// History returns the requester's view of one conversation, oldest first.
// A staff fetch marks the conversation read.
func (s *Service) History(ctx context.Context, requester *models.User, counterpartID uint64) ([]Message, error) {
	shopperID := requester.ID
	if requester.Role == models.RoleStaff {
		shopperID = counterpartID
	}
	msgs, err := s.repo.ListConversationMessages(ctx, shopperID)
	if err != nil {
		return nil, err
	}
	if requester.Role == models.RoleStaff && s.counters != nil {
		if err := s.counters.ResetUnread(ctx, shopperID); err != nil {
			log.Printf("chat: reset unread for shopper %d: %v", shopperID, err)
		}
	}
	return msgs, nil
}

// Summaries lists every conversation, newest activity first, with the
// counterpart shopper and an unread count.
func (s *Service) Summaries(ctx context.Context) ([]ConversationSummary, error) {
	last, err := s.repo.ListLastMessages(ctx)
	if err != nil {
		return nil, err
	}
	if len(last) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := make([]uint64, 0, len(last))
	for _, m := range last {
		ids = append(ids, m.ShopperID)
	}
	users, err := s.repo.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, 0, len(last))
	for _, m := range last {
		summary := ConversationSummary{
			Counterpart: users[m.ShopperID],
			LastMessage: m,
		}
		if s.counters != nil {
			if n, err := s.counters.Unread(ctx, m.ShopperID); err == nil {
				summary.Unread = n
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

// DeleteConversation removes the shopper's transcript. Irreversible; the
// shopper only learns of it on their next resume fetch.
func (s *Service) DeleteConversation(ctx context.Context, shopperID uint64) error {
	if err := s.repo.DeleteConversation(ctx, shopperID); err != nil {
		return err
	}
	s.publish(ctx, rabbitmq.ChatEvent{
		EventID:   ulid.Make().String(),
		Type:      rabbitmq.EventConversationDeleted,
		ShopperID: shopperID,
	})
	return nil
}

// AnyStaff picks an available staff member: online presence first, any
// staff row as fallback.
func (s *Service) AnyStaff(ctx context.Context) (*models.User, error) {
	if s.counters != nil {
		ids, err := s.counters.OnlineStaffIDs(ctx)
		if err != nil {
			log.Printf("chat: online staff lookup: %v", err)
		}
		for _, id := range ids {
			u, err := s.repo.GetUser(ctx, id)
			if err == nil && u.Role == models.RoleStaff {
				return u, nil
			}
		}
	}
	u, err := s.repo.FirstStaff(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoStaff
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) publish(ctx context.Context, ev rabbitmq.ChatEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		log.Printf("chat: publish %s event: %v", ev.Type, err)
	}
}
