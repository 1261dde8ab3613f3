package chat

import (
	"context"

	"github.com/artinalushaku/onlineStore-sub000/internal/models"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListConversationMessages returns the full transcript of one shopper's
// conversation in ASC created_at order (oldest -> newest).
func (r *Repo) ListConversationMessages(ctx context.Context, shopperID uint64) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("shopper_id = ?", shopperID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListLastMessages returns the newest message of every conversation,
// newest conversation first.
func (r *Repo) ListLastMessages(ctx context.Context) ([]Message, error) {
	sub := r.db.Model(&Message{}).
		Select("MAX(id)").
		Group("shopper_id")

	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) DeleteConversation(ctx context.Context, shopperID uint64) error {
	return r.db.WithContext(ctx).
		Where("shopper_id = ?", shopperID).
		Delete(&Message{}).Error
}

func (r *Repo) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetUsers(ctx context.Context, ids []uint64) (map[uint64]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	out := make(map[uint64]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// FirstStaff is the DB fallback when no staff member is marked online.
func (r *Repo) FirstStaff(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).
		Where("role = ?", models.RoleStaff).
		Order("id ASC").
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
