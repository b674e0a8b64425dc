package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// Client — используемые хранилищем методы клиента go-redis.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Store — хранилище посетителей в Redis; ключи вида <prefix>visitor:<id>:<key>.
type Store struct {
	Client Client
	Prefix string
	// TTL продлевается при каждой записи; ноль — без срока.
	TTL time.Duration
}

func NewStore(client Client, prefix string, ttl time.Duration) *Store {
	return &Store{Client: client, Prefix: prefix, TTL: ttl}
}

func (s *Store) Storage(visitorID string) domain.LocalStorage {
	return scoped{store: s, prefix: s.Prefix + "visitor:" + visitorID + ":"}
}

func (s *Store) Flash(visitorID string) domain.FlashMessages {
	return flash{client: s.Client, key: s.Prefix + "flash:" + visitorID}
}

type scoped struct {
	store  *Store
	prefix string
}

func (s scoped) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := s.store.Client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s scoped) SetItem(ctx context.Context, key, value string) error {
	if err := s.store.Client.Set(ctx, s.prefix+key, value, s.store.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s scoped) RemoveItem(ctx context.Context, key string) error {
	if err := s.store.Client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

type flash struct {
	client Client
	key    string
}

// Notify: удаление происходит по истечении срока ключа.
func (f flash) Notify(ctx context.Context, text string, ttl time.Duration) error {
	return f.client.Set(ctx, f.key, text, ttl).Err()
}

// Take читает и удаляет сообщение одним GETDEL.
func (f flash) Take(ctx context.Context) (string, bool, error) {
	v, err := f.client.GetDel(ctx, f.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Counter — счётчик посещений через INCR: атомарно, отсутствующий ключ равен нулю.
type Counter struct {
	Client Client
	Key    string
}

func (c Counter) Bump(ctx context.Context) (int64, error) {
	n, err := c.Client.Incr(ctx, c.Key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", c.Key, err)
	}
	return n, nil
}

var (
	_ domain.VisitorStorage = (*Store)(nil)
	_ domain.VisitorCounter = Counter{}
	_ Client                = (*redis.Client)(nil)
)
