package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/coocood/freecache"
	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const keyPrefix = "ctfwatch:"

var ErrMiss = errors.New("cache: miss")

type Cacher interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Purge drops every entry this process has written.
	Purge(ctx context.Context) error
}

// NewCache picks redis when an address is configured and an in-process
// freecache otherwise. The redis client is returned so callers can ping it.
func NewCache(conf *config.CacheConfig) (Cacher, *redis.Client) {
	if conf.RedisAddr == "" {
		return NewMemoryCache(conf.MaxSize), nil
	}
	client := NewRedisClient(conf)
	return NewRedisCache(client), client
}

func NewRedisClient(conf *config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            conf.RedisAddr,
		Password:        conf.RedisPass,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolSize:        10,
		MinIdleConns:    2,
		MaxIdleConns:    10,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: time.Hour,
	})
}

type MemoryCache struct {
	cache  *freecache.Cache
	prefix string
	mu     sync.RWMutex
}

func NewMemoryCache(size int) *MemoryCache {
	return &MemoryCache{
		cache:  freecache.NewCache(size),
		prefix: keyPrefix,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string, value any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, err := m.cache.Get([]byte(m.prefix + key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return ErrMiss
		}
		return err
	}
	return msgpack.Unmarshal(data, value)
}

func (m *MemoryCache) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache.Set([]byte(m.prefix+key), data, int(expiration.Seconds()))
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, key := range keys {
		m.cache.Del([]byte(m.prefix + key))
	}
	return nil
}

func (m *MemoryCache) Purge(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Clear()
	return nil
}

type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: keyPrefix,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string, value any) error {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return msgpack.Unmarshal(data, value)
}

func (r *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, data, expiration).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i := range keys {
		prefixed[i] = r.prefix + keys[i]
	}
	return r.client.Del(ctx, prefixed...).Err()
}

func (r *RedisCache) Purge(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// Fetch returns the cached value for key, computing and storing it with fn on
// a miss. Cache write failures are ignored.
func Fetch[T any](ctx context.Context, cache Cacher, key string, expiration time.Duration, fn func() (T, error)) (T, error) {
	var zero, value T
	err := cache.Get(ctx, key, &value)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrMiss) {
		return zero, err
	}
	value, err = fn()
	if err != nil {
		return zero, err
	}
	_ = cache.Set(ctx, key, &value, expiration)
	return value, nil
}

func Key(args ...any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatValue(arg)
	}
	return strings.Join(parts, ":")
}

func formatValue(v any) string {
	if v == nil {
		return "nil"
	}

	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Ptr:
		if val.IsNil() {
			return "nil"
		}
		return formatValue(val.Elem().Interface())
	case reflect.Array, reflect.Slice:
		parts := make([]string, val.Len())
		for i := 0; i < val.Len(); i++ {
			parts[i] = formatValue(val.Index(i).Interface())
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ","))
	case reflect.Struct:
		return fmt.Sprintf("%+v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
