package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/artinalushaku/onlineStore-sub000/internal/models"
	"github.com/artinalushaku/onlineStore-sub000/internal/store/rabbitmq"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeHub struct {
	delivered []*Message
}

func (f *fakeHub) Deliver(m *Message) { f.delivered = append(f.delivered, m) }

type fakeEvents struct {
	published []rabbitmq.ChatEvent
}

func (f *fakeEvents) PublishEvent(ctx context.Context, ev rabbitmq.ChatEvent) error {
	_ = ctx
	f.published = append(f.published, ev)
	return nil
}

type fakeCounters struct {
	online []uint64
	unread map[uint64]int64
	resets []uint64
}

func (f *fakeCounters) OnlineStaffIDs(ctx context.Context) ([]uint64, error) {
	_ = ctx
	return f.online, nil
}

func (f *fakeCounters) ResetUnread(ctx context.Context, shopperID uint64) error {
	_ = ctx
	f.resets = append(f.resets, shopperID)
	return nil
}

func (f *fakeCounters) Unread(ctx context.Context, shopperID uint64) (int64, error) {
	_ = ctx
	return f.unread[shopperID], nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUsers(t *testing.T, db *gorm.DB) (shopper, staff *models.User) {
	t.Helper()
	shopper = &models.User{Role: models.RoleShopper, DisplayName: "Arta"}
	staff = &models.User{Role: models.RoleStaff, DisplayName: "Support Team"}
	if err := db.Create(shopper).Error; err != nil {
		t.Fatalf("seed shopper: %v", err)
	}
	if err := db.Create(staff).Error; err != nil {
		t.Fatalf("seed staff: %v", err)
	}
	return shopper, staff
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeHub, *fakeEvents, *fakeCounters) {
	t.Helper()
	db := openTestDB(t)
	hub := &fakeHub{}
	events := &fakeEvents{}
	counters := &fakeCounters{unread: map[uint64]int64{}}
	return NewService(NewRepo(db), hub, events, counters), db, hub, events, counters
}

func TestSendMessage_StoresDeliversAndPublishes(t *testing.T) {
	svc, db, hub, events, _ := newTestService(t)
	shopper, staff := seedUsers(t, db)

	m, err := svc.SendMessage(context.Background(), shopper, staff.ID, "Hello, is this in stock?")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if m.ID == 0 {
		t.Fatalf("expected server-assigned message id")
	}
	if m.ShopperID != shopper.ID {
		t.Fatalf("expected shopper grouping %d, got %d", shopper.ID, m.ShopperID)
	}

	if len(hub.delivered) != 1 || hub.delivered[0].ID != m.ID {
		t.Fatalf("expected message delivered over push hub")
	}
	if len(events.published) != 1 || events.published[0].Type != rabbitmq.EventMessageStored {
		t.Fatalf("expected one message_stored event, got %+v", events.published)
	}
	if events.published[0].EventID == "" {
		t.Fatalf("expected event id to be set")
	}
}

func TestSendMessage_EmptyContentRejected(t *testing.T) {
	svc, db, _, _, _ := newTestService(t)
	shopper, staff := seedUsers(t, db)

	if _, err := svc.SendMessage(context.Background(), shopper, staff.ID, "   "); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestSendMessage_SentinelReceiverAllowedForShopper(t *testing.T) {
	svc, db, _, _, _ := newTestService(t)
	shopper, _ := seedUsers(t, db)

	m, err := svc.SendMessage(context.Background(), shopper, StaffSentinel, "anyone there?")
	if err != nil {
		t.Fatalf("send to sentinel: %v", err)
	}
	if m.ReceiverID != StaffSentinel || m.ShopperID != shopper.ID {
		t.Fatalf("unexpected routing: %+v", m)
	}
}

func TestSendMessage_StaffMustAddressShopper(t *testing.T) {
	svc, db, _, _, _ := newTestService(t)
	_, staff := seedUsers(t, db)

	if _, err := svc.SendMessage(context.Background(), staff, StaffSentinel, "hi"); !errors.Is(err, ErrBadReceiver) {
		t.Fatalf("expected ErrBadReceiver for sentinel target, got %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), staff, staff.ID, "hi"); !errors.Is(err, ErrBadReceiver) {
		t.Fatalf("expected ErrBadReceiver for staff target, got %v", err)
	}
}

func TestHistory_StaffFetchGroupsBySenderAndResetsUnread(t *testing.T) {
	svc, db, _, _, counters := newTestService(t)
	shopper, staff := seedUsers(t, db)

	// shopper opens with the sentinel, staff answers concretely
	if _, err := svc.SendMessage(context.Background(), shopper, StaffSentinel, "first"); err != nil {
		t.Fatalf("shopper send: %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), staff, shopper.ID, "second"); err != nil {
		t.Fatalf("staff send: %v", err)
	}

	msgs, err := svc.History(context.Background(), staff, shopper.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected both sides in one conversation, got %d messages", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Fatalf("expected ASC order, got %q then %q", msgs[0].Content, msgs[1].Content)
	}
	if len(counters.resets) != 1 || counters.resets[0] != shopper.ID {
		t.Fatalf("expected staff fetch to reset unread for shopper %d", shopper.ID)
	}

	// shopper's own fetch does not reset anything
	if _, err := svc.History(context.Background(), shopper, staff.ID); err != nil {
		t.Fatalf("shopper history: %v", err)
	}
	if len(counters.resets) != 1 {
		t.Fatalf("shopper fetch must not reset unread")
	}
}

func TestSummaries_NewestFirstWithUnread(t *testing.T) {
	svc, db, _, _, counters := newTestService(t)
	shopper, staff := seedUsers(t, db)
	other := &models.User{Role: models.RoleShopper, DisplayName: "Blerim"}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("seed second shopper: %v", err)
	}

	if _, err := svc.SendMessage(context.Background(), shopper, staff.ID, "older"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), other, staff.ID, "newer"); err != nil {
		t.Fatalf("send: %v", err)
	}
	counters.unread[other.ID] = 3

	summaries, err := svc.Summaries(context.Background())
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(summaries))
	}
	if summaries[0].Counterpart.ID != other.ID || summaries[0].LastMessage.Content != "newer" {
		t.Fatalf("expected newest conversation first, got %+v", summaries[0])
	}
	if summaries[0].Unread != 3 || summaries[1].Unread != 0 {
		t.Fatalf("unexpected unread counts: %+v", summaries)
	}
}

func TestDeleteConversation_RemovesTranscriptAndPublishes(t *testing.T) {
	svc, db, _, events, _ := newTestService(t)
	shopper, staff := seedUsers(t, db)

	if _, err := svc.SendMessage(context.Background(), shopper, staff.ID, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := svc.DeleteConversation(context.Background(), shopper.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	msgs, err := svc.History(context.Background(), staff, shopper.ID)
	if err != nil {
		t.Fatalf("history after delete: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty transcript after delete, got %d", len(msgs))
	}
	last := events.published[len(events.published)-1]
	if last.Type != rabbitmq.EventConversationDeleted || last.ShopperID != shopper.ID {
		t.Fatalf("expected conversation_deleted event, got %+v", last)
	}
}

func TestAnyStaff_PrefersOnlineThenFallsBack(t *testing.T) {
	svc, db, _, _, counters := newTestService(t)
	_, staff := seedUsers(t, db)
	second := &models.User{Role: models.RoleStaff, DisplayName: "Night Shift"}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("seed staff: %v", err)
	}

	counters.online = []uint64{second.ID}
	u, err := svc.AnyStaff(context.Background())
	if err != nil {
		t.Fatalf("any staff: %v", err)
	}
	if u.ID != second.ID {
		t.Fatalf("expected online staff %d, got %d", second.ID, u.ID)
	}

	counters.online = nil
	u, err = svc.AnyStaff(context.Background())
	if err != nil {
		t.Fatalf("any staff fallback: %v", err)
	}
	if u.ID != staff.ID {
		t.Fatalf("expected first staff row %d, got %d", staff.ID, u.ID)
	}
}

func TestAnyStaff_NoneAvailable(t *testing.T) {
	svc, db, _, _, _ := newTestService(t)
	shopper := &models.User{Role: models.RoleShopper, DisplayName: "Arta"}
	if err := db.Create(shopper).Error; err != nil {
		t.Fatalf("seed shopper: %v", err)
	}

	if _, err := svc.AnyStaff(context.Background()); !errors.Is(err, ErrNoStaff) {
		t.Fatalf("expected ErrNoStaff, got %v", err)
	}
}
