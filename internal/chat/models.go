package chat

import (
	"time"

	"github.com/artinalushaku/onlineStore-sub000/internal/models"
)

// StaffSentinel is the conversation key a shopper addresses before any
// concrete staff member is known. The service fans messages for it out to
// the staff collective.
const StaffSentinel uint64 = 0

type Message struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   uint64 `gorm:"index:idx_chat_msg_sender;not null" json:"sender"`
	ReceiverID uint64 `gorm:"index:idx_chat_msg_receiver" json:"receiver"`
	// ShopperID is the shopper-side participant, the grouping key of the
	// conversation regardless of which staff id (or the sentinel) sits on
	// the other side.
	ShopperID uint64    `gorm:"index;not null" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// ConversationSummary is derived per staff request, never persisted.
type ConversationSummary struct {
	Counterpart models.User `json:"counterpart"`
	LastMessage Message     `json:"last_message"`
	Unread      int64       `json:"unread"`
}
