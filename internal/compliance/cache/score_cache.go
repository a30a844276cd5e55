package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/scoring"
	"github.com/redis/go-redis/v9"
)

const (
	scoreKeyPrefix   = "compliance:audit_score:"
	versionKeyPrefix = "compliance:audit_score_ver:"
	versionTTL       = 24 * time.Hour
)

// ScoreCache 审核得分缓存；rdb 为空时所有操作为空操作
type ScoreCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewScoreCache(rdb *redis.Client, ttl time.Duration) *ScoreCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ScoreCache{rdb: rdb, ttl: ttl}
}

// Key 审核得分缓存键
func Key(auditID string) string {
	return scoreKeyPrefix + auditID
}

func versionKey(auditID string) string {
	return versionKeyPrefix + auditID
}

// Version 当前失效版本号，每次 Invalidate 递增；计算得分前读取，配合 SetIfUnchanged 使用
func (c *ScoreCache) Version(ctx context.Context, auditID string) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, nil
	}
	v, err := c.rdb.Get(ctx, versionKey(auditID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get 读取缓存，未命中返回 false
func (c *ScoreCache) Get(ctx context.Context, auditID string) (*scoring.AuditScore, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, Key(auditID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var score scoring.AuditScore
	if err := json.Unmarshal(raw, &score); err != nil {
		return nil, false, err
	}
	return &score, true, nil
}

// SetIfUnchanged 版本号与 version 一致时才写入；期间发生过失效则放弃，返回 false
func (c *ScoreCache) SetIfUnchanged(ctx context.Context, auditID string, version int64, score scoring.AuditScore) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	raw, err := json.Marshal(score)
	if err != nil {
		return false, err
	}

	stored := false
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, versionKey(auditID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, Key(auditID), raw, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, versionKey(auditID))
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate 应答变更后清除缓存并递增版本号
func (c *ScoreCache) Invalidate(ctx context.Context, auditID string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(auditID))
		pipe.Expire(ctx, versionKey(auditID), versionTTL)
		pipe.Del(ctx, Key(auditID))
		return nil
	})
	return err
}
