package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	redisKeyPrefix    = "sweetshop:session:"
	redisNotifChannel = "sweetshop:session:changed"
)

// RedisStore keeps the session entries in Redis. Change notification rides
// on pub/sub so every gateway process sharing the instance observes a login
// or logout from any of them.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger

	mu       sync.Mutex
	watchers []chan struct{}
	pubsub   *redis.PubSub
	quit     chan struct{}
	once     sync.Once
}

func NewRedisStore(addr string, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	s := &RedisStore{
		client: client,
		logger: logger,
		quit:   make(chan struct{}),
	}

	s.pubsub = client.Subscribe(context.Background(), redisNotifChannel)
	go s.listen()

	logger.Info().Str("addr", addr).Msg("Connected to redis session storage")
	return s, nil
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	ctx, cancel := s.opContext()
	defer cancel()

	v, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(key, value string) error {
	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return s.publish(ctx)
}

func (s *RedisStore) Delete(key string) error {
	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return s.publish(ctx)
}

func (s *RedisStore) Watch() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.watchers = append(s.watchers, ch)
	return ch
}

func (s *RedisStore) Close() error {
	s.once.Do(func() { close(s.quit) })
	if err := s.pubsub.Close(); err != nil {
		return err
	}
	return s.client.Close()
}

func (s *RedisStore) publish(ctx context.Context) error {
	if err := s.client.Publish(ctx, redisNotifChannel, "changed").Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish storage change")
	}
	return nil
}

func (s *RedisStore) listen() {
	ch := s.pubsub.Channel()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.mu.Lock()
			for _, w := range s.watchers {
				select {
				case w <- struct{}{}:
				default:
				}
			}
			s.mu.Unlock()
		case <-s.quit:
			return
		}
	}
}

func (s *RedisStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
