package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/artinalushaku/onlineStore-sub000/internal/config"
	"github.com/artinalushaku/onlineStore-sub000/internal/store/rabbitmq"
	"github.com/artinalushaku/onlineStore-sub000/internal/store/redisstore"
	amqp "github.com/rabbitmq/amqp091-go"
)

// counterStore is the slice of the redis store the worker writes.
type counterStore interface {
	IncrUnread(ctx context.Context, shopperID uint64) error
	ResetUnread(ctx context.Context, shopperID uint64) error
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

// The worker consumes the chat-event stream and maintains per-conversation
// unread counters in redis: a message sent by a shopper bumps the counter,
// a conversation delete clears it. Staff history fetches reset counters on
// the service side.
func main() {
	cfg := config.Load()

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(context.Background()); err != nil {
		log.Fatalf("redis ping: %v", err)
	}
	defer rds.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						return
					}
					handle(ctx, rds, d)
				}
			}
		}()
	}

	log.Printf("worker consuming %q with concurrency %d", cfg.RabbitQueue, concurrency)
	<-ctx.Done()
	wg.Wait()
	log.Println("worker stopped")
}

func handle(ctx context.Context, counters counterStore, d amqp.Delivery) {
	var ev rabbitmq.ChatEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		log.Printf("worker: bad event payload: %v", err)
		_ = d.Nack(false, false) // dead-letter, never parseable
		return
	}

	var err error
	switch ev.Type {
	case rabbitmq.EventMessageStored:
		// only shopper-sent messages count as unread for the console
		if ev.SenderID == ev.ShopperID {
			err = counters.IncrUnread(ctx, ev.ShopperID)
		}
	case rabbitmq.EventConversationDeleted:
		err = counters.ResetUnread(ctx, ev.ShopperID)
	default:
		log.Printf("worker: ignoring event type %q", ev.Type)
	}
	if err != nil {
		log.Printf("worker: event %s (%s): %v", ev.EventID, ev.Type, err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
