package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	repo "lotmarket/internal/repository"
)

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
}

// リセットコードのハッシュをTTL付きで保存する
type ResetCodeRedisStore struct {
	client *redis.Client
	prefix string
}

func NewResetCodeRedisStore(client *redis.Client, serviceName string) *ResetCodeRedisStore {
	return &ResetCodeRedisStore{client: client, prefix: serviceName}
}

func (s *ResetCodeRedisStore) key(email string) string {
	return fmt.Sprintf("%s:password-reset:%s", s.prefix, strings.ToLower(strings.TrimSpace(email)))
}

func (s *ResetCodeRedisStore) attemptsKey(email string) string {
	return s.key(email) + ":attempts"
}

// 前のコードと失敗回数は破棄
func (s *ResetCodeRedisStore) Save(ctx context.Context, email string, codeHash string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(email), codeHash, ttl).Err(); err != nil {
		return fmt.Errorf("reset code save: %w", err)
	}
	if err := s.client.Del(ctx, s.attemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("reset code save: %w", err)
	}
	return nil
}

func (s *ResetCodeRedisStore) Peek(ctx context.Context, email string) (string, error) {
	v, err := s.client.Get(ctx, s.key(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reset code peek: %w", err)
	}
	return v, nil
}

// INCRで数え、初回だけコードと同じ残り時間を付ける
func (s *ResetCodeRedisStore) RecordFailure(ctx context.Context, email string, maxAttempts int) (bool, error) {
	key, attempts := s.key(email), s.attemptsKey(email)

	n, err := s.client.Incr(ctx, attempts).Result()
	if err != nil {
		return false, fmt.Errorf("reset code failure: %w", err)
	}
	if n >= int64(maxAttempts) {
		if err := s.client.Del(ctx, key, attempts).Err(); err != nil {
			return false, fmt.Errorf("reset code lock: %w", err)
		}
		return true, nil
	}
	if n == 1 {
		ttl, err := s.client.PTTL(ctx, key).Result()
		if err != nil {
			return false, fmt.Errorf("reset code failure: %w", err)
		}
		if ttl > 0 {
			if err := s.client.PExpire(ctx, attempts, ttl).Err(); err != nil {
				return false, fmt.Errorf("reset code failure: %w", err)
			}
		}
	}
	return false, nil
}

// GETDELで取り出しと削除を1コマンドで行う（2回目はredis.Nil）
func (s *ResetCodeRedisStore) Consume(ctx context.Context, email string) (string, error) {
	v, err := s.client.GetDel(ctx, s.key(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reset code consume: %w", err)
	}
	return v, nil
}
