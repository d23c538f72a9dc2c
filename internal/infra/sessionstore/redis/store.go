// Package redis persists the shared session in Redis and broadcasts
// change notifications over pub/sub, so independent execution contexts
// sharing the store observe each other's session writes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/session"
)

// The four session fields, written atomically as a group.
const (
	keyUser         = "session:user"
	keyToken        = "session:token"
	keyRefreshToken = "session:refresh_token"
	keyExpiresAt    = "session:expires_at"

	changeChannel = "session:changes"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Store implements session.Store on Redis.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a Redis-backed session store.
func NewStore(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Load reads the persisted session. Returns (nil, nil) when the fields
// are absent or incomplete.
func (s *Store) Load(ctx context.Context) (*domain.Session, error) {
	vals, err := s.rdb.MGet(ctx, keyUser, keyToken, keyRefreshToken, keyExpiresAt).Result()
	if err != nil {
		return nil, fmt.Errorf("mget session fields: %w", err)
	}

	userRaw, _ := vals[0].(string)
	token, _ := vals[1].(string)
	refreshToken, _ := vals[2].(string)
	expiresRaw, _ := vals[3].(string)

	if userRaw == "" || token == "" || expiresRaw == "" {
		return nil, nil
	}

	var user domain.User
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	expiresMs, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse session expiry: %w", err)
	}

	return &domain.Session{
		User:         &user,
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    time.UnixMilli(expiresMs),
	}, nil
}

// Save writes all four session fields in one MULTI/EXEC transaction and
// publishes an update notification.
func (s *Store) Save(ctx context.Context, sess *domain.Session, origin string) error {
	userRaw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyUser, string(userRaw), 0)
	pipe.Set(ctx, keyToken, sess.Token, 0)
	pipe.Set(ctx, keyRefreshToken, sess.RefreshToken, 0)
	pipe.Set(ctx, keyExpiresAt, strconv.FormatInt(sess.ExpiresAt.UnixMilli(), 10), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist session fields: %w", err)
	}

	return s.publish(ctx, session.Change{Kind: session.ChangeUpdated, Origin: origin})
}

// Clear deletes all four session fields atomically and publishes a
// cleared notification.
func (s *Store) Clear(ctx context.Context, origin string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keyUser, keyToken, keyRefreshToken, keyExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("clear session fields: %w", err)
	}

	return s.publish(ctx, session.Change{Kind: session.ChangeCleared, Origin: origin})
}

func (s *Store) publish(ctx context.Context, change session.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode session change: %w", err)
	}
	if err := s.rdb.Publish(ctx, changeChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish session change: %w", err)
	}
	return nil
}

// Watch subscribes to session change notifications until ctx is
// cancelled.
func (s *Store) Watch(ctx context.Context) (<-chan session.Change, error) {
	sub := s.rdb.Subscribe(ctx, changeChannel)
	// Force the subscription to establish before we return.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe session changes: %w", err)
	}

	out := make(chan session.Change, 16)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change session.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
