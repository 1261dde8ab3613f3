package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/config"
	"github.com/artinalushaku/onlineStore-sub000/internal/db"
	"github.com/artinalushaku/onlineStore-sub000/internal/httpapi"
	"github.com/artinalushaku/onlineStore-sub000/internal/push"
	"github.com/artinalushaku/onlineStore-sub000/internal/store/rabbitmq"
	"github.com/artinalushaku/onlineStore-sub000/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(context.Background()); err != nil {
		log.Fatalf("redis ping: %v", err)
	}
	defer rds.Close()

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit connect: %v", err)
	}
	defer publisher.Close()

	hub := push.NewHub(rds, time.Duration(cfg.PresenceTTL)*time.Second)
	go hub.Run()

	repo := chat.NewRepo(gdb)
	svc := chat.NewService(repo, hub, publisher, rds)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: httpapi.NewRouter(cfg, svc, hub),
	}

	go func() {
		log.Printf("chat service listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("server stopped")
}
