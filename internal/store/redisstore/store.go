package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const staffPresenceKey = "chat:staff_online"

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error { return s.rdb.Close() }

// MarkStaffOnline refreshes the staff member's presence lease. Called on
// websocket connect and again on every heartbeat.
func (s *Store) MarkStaffOnline(ctx context.Context, staffID uint64, ttl time.Duration) error {
	expiry := float64(time.Now().Add(ttl).Unix())
	return s.rdb.ZAdd(ctx, staffPresenceKey, redis.Z{Score: expiry, Member: strconv.FormatUint(staffID, 10)}).Err()
}

func (s *Store) MarkStaffOffline(ctx context.Context, staffID uint64) error {
	return s.rdb.ZRem(ctx, staffPresenceKey, strconv.FormatUint(staffID, 10)).Err()
}

// OnlineStaffIDs prunes expired leases and returns the remaining staff ids.
func (s *Store) OnlineStaffIDs(ctx context.Context) ([]uint64, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.rdb.ZRemRangeByScore(ctx, staffPresenceKey, "-inf", "("+now).Err(); err != nil {
		return nil, err
	}
	members, err := s.rdb.ZRange(ctx, staffPresenceKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func unreadKey(shopperID uint64) string {
	return fmt.Sprintf("chat:unread:%d", shopperID)
}

func (s *Store) IncrUnread(ctx context.Context, shopperID uint64) error {
	return s.rdb.Incr(ctx, unreadKey(shopperID)).Err()
}

func (s *Store) ResetUnread(ctx context.Context, shopperID uint64) error {
	return s.rdb.Del(ctx, unreadKey(shopperID)).Err()
}

func (s *Store) Unread(ctx context.Context, shopperID uint64) (int64, error) {
	n, err := s.rdb.Get(ctx, unreadKey(shopperID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
