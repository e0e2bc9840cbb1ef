package cache

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vpetrenko/courtbooking/config"
	"github.com/vpetrenko/courtbooking/internal/domain"
)

// CodeTTL bounds the lifetime of an issued one-time code.
const CodeTTL = 5 * time.Minute

type RedisCache struct {
	client    *redis.Client
	courtsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, courtsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		courtsTTL: courtsTTL,
	}
}

func (c *RedisCache) GetCourts(ctx context.Context) ([]domain.Court, error) {
	data, err := c.client.Get(ctx, courtsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var courts []domain.Court
	if err := json.Unmarshal(data, &courts); err != nil {
		return nil, err
	}
	return courts, nil
}

func (c *RedisCache) SetCourts(ctx context.Context, courts []domain.Court) error {
	payload, err := json.Marshal(courts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, courtsKey(), payload, c.courtsTTL).Err()
}

func (c *RedisCache) InvalidateCourts(ctx context.Context) error {
	return c.client.Del(ctx, courtsKey()).Err()
}

// Issue generates a six-digit one-time code for the destination and stores
// it under a bounded TTL. A new issue replaces any outstanding code.
func (c *RedisCache) Issue(ctx context.Context, channel, destination string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	if err := c.client.Set(ctx, codeKey(channel, destination), code, CodeTTL).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the outstanding code for the destination and invalidates it
// after one successful use.
func (c *RedisCache) Verify(ctx context.Context, channel, destination, code string) (bool, error) {
	key := codeKey(channel, destination)
	stored, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if stored != code {
		return false, nil
	}
	return true, c.client.Del(ctx, key).Err()
}

func courtsKey() string {
	return "cache:courts"
}

func codeKey(channel, destination string) string {
	return fmt.Sprintf("otp:%s:%s", channel, destination)
}
