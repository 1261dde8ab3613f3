package db

import (
	"log"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db: open: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &chat.Message{}); err != nil {
		log.Fatalf("db: automigrate: %v", err)
	}
	return gdb
}
