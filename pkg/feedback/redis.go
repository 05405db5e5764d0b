package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists invalid-token reports in Redis so multiple client
// instances share one pruning view. Tokens live in a sorted set scored by
// invalidation time (unix milliseconds); per-token report details live in
// a hash alongside it.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ownClient bool
}

// RedisConfig contains Redis connection settings for a store-managed
// client.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`

	// KeyPrefix namespaces the store's keys; defaults to "pushgate".
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// NewRedisStore creates a store with its own Redis connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	store := NewRedisStoreWithClient(client, cfg.KeyPrefix)
	store.ownClient = true
	return store, nil
}

// NewRedisStoreWithClient creates a store on an externally managed Redis
// client. The caller keeps ownership of the client's lifetime.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "pushgate"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + ":invalid_tokens"
}

func (s *RedisStore) reportKey() string {
	return s.keyPrefix + ":invalid_token_reports"
}

// RecordInvalidToken stores one report, keeping the most recent
// invalidation time for a re-reported token.
func (s *RedisStore) RecordInvalidToken(ctx context.Context, report InvalidToken) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal invalid-token report: %w", err)
	}

	// GT keeps the newest invalidation time when a token is re-reported.
	changed, err := s.client.ZAddArgs(ctx, s.indexKey(), redis.ZAddArgs{
		GT: true,
		Ch: true,
		Members: []redis.Z{{
			Score:  float64(report.InvalidatedAt.UnixMilli()),
			Member: report.Token,
		}},
	}).Result()
	if err != nil {
		return fmt.Errorf("record invalid token: %w", err)
	}
	if changed == 0 {
		return nil
	}

	if err := s.client.HSet(ctx, s.reportKey(), report.Token, payload).Err(); err != nil {
		return fmt.Errorf("record invalid-token report: %w", err)
	}
	return nil
}

// InvalidTokens returns reports at or after since, oldest first.
func (s *RedisStore) InvalidTokens(ctx context.Context, since time.Time) ([]InvalidToken, error) {
	tokens, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.UnixMilli()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list invalid tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	raw, err := s.client.HMGet(ctx, s.reportKey(), tokens...).Result()
	if err != nil {
		return nil, fmt.Errorf("load invalid-token reports: %w", err)
	}

	reports := make([]InvalidToken, 0, len(tokens))
	for i, entry := range raw {
		encoded, ok := entry.(string)
		if !ok {
			// Index and report hash drifted; fall back to the index entry.
			reports = append(reports, InvalidToken{Token: tokens[i]})
			continue
		}
		var report InvalidToken
		if err := json.Unmarshal([]byte(encoded), &report); err != nil {
			return nil, fmt.Errorf("decode invalid-token report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Forget removes a token's report.
func (s *RedisStore) Forget(ctx context.Context, token string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, s.indexKey(), token)
	pipe.HDel(ctx, s.reportKey(), token)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("forget invalid token: %w", err)
	}
	return nil
}

// Close releases the Redis connection when the store owns it.
func (s *RedisStore) Close() error {
	if !s.ownClient {
		return nil
	}
	return s.client.Close()
}
