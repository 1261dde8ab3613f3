package models

import "time"

const (
	RoleShopper = "shopper"
	RoleStaff   = "staff"
)

// User is owned by the storefront's auth service; the chat subsystem only
// reads it.
type User struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Role        string    `gorm:"type:varchar(16);index;not null" json:"role"`
	DisplayName string    `gorm:"type:varchar(64);not null" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
