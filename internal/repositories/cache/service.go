package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coinledger/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService is a JSON-serializing wrapper around redis, used to keep
// hot wallet rows off the read path. Writers invalidate after commit.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// GetWallet implements the ledger engine's cache read path.
func (s *CacheService) GetWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, bool, error) {
	var wallet models.Wallet
	found, err := s.Get(ctx, walletKey(userID, currency), &wallet)
	if err != nil || !found {
		return nil, false, err
	}
	return &wallet, true, nil
}

func (s *CacheService) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	return s.Set(ctx, walletKey(wallet.UserID, wallet.Currency), wallet)
}

func (s *CacheService) InvalidateWallet(ctx context.Context, userID uint, currency string) error {
	return s.Delete(ctx, walletKey(userID, currency))
}

func walletKey(userID uint, currency string) string {
	return fmt.Sprintf("wallet:%d:%s", userID, currency)
}

// FlushAll clears the cache, used on startup so stale wallet snapshots
// never outlive a schema change.
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *CacheService) Close() error {
	return s.client.Close()
}
