package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Revoker 记录已注销的令牌 ID，直到令牌自然过期
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevoker 将吊销记录写入 Redis，TTL 与令牌剩余有效期一致
type RedisRevoker struct {
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisRevoker 构造 RedisRevoker，logger 可为 nil
func NewRedisRevoker(rdb *redis.Client, logger *zap.Logger) *RedisRevoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRevoker{rdb: rdb, logger: logger, now: time.Now}
}

func revokedKey(tokenID string) string {
	return fmt.Sprintf("revoked:%s", tokenID)
}

// Revoke 写入吊销标记；已过期的令牌无需记录
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedKey(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked 查询吊销标记。Redis 不可用时放行请求，只记录告警
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		r.logger.Warn("Redis revocation check failed, allowing token",
			zap.String("token_id", tokenID),
			zap.Error(err),
		)
		return false, nil
	}
	return n > 0, nil
}

// MemoryRevoker 为单实例部署提供进程内吊销表
type MemoryRevoker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevoker 构造 MemoryRevoker
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke 记录吊销，并顺带清理已过期条目
func (r *MemoryRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.entries {
		if !exp.After(now) {
			delete(r.entries, id)
		}
	}
	if expiresAt.After(now) {
		r.entries[tokenID] = expiresAt
	}
	return nil
}

// IsRevoked 判断令牌是否已吊销
func (r *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.entries[tokenID]
	return ok && exp.After(r.now()), nil
}
