/*
 * @module service/standard/cache
 * @description 参考标准缓存，优先使用Redis，未配置Redis时退化为进程内缓存
 * @architecture 适配器模式 - 统一缓存接口下的Redis/内存双实现
 * @documentReference ai_docs/reference_standard_req.md
 * @stateFlow 查询 -> 缓存命中/回源 -> 写缓存(带TTL)
 * @rules 缓存仅作加速，标准以数据库为准；标准更新时按型号失效
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/standard/service.go
 */

package standard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"columnqc-service/service/models"
)

// DefaultCacheTTL 标准缓存默认过期时间
const DefaultCacheTTL = 10 * time.Minute

// Cache 参考标准缓存接口
type Cache interface {
	Get(ctx context.Context, columnModel string) (*models.ReferenceStandard, bool)
	Set(ctx context.Context, columnModel string, std *models.ReferenceStandard)
	Invalidate(ctx context.Context, columnModel string)
}

// RedisCache Redis缓存实现
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 创建Redis标准缓存
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) cacheKey(columnModel string) string {
	return fmt.Sprintf("columnqc:standard:%s", columnModel)
}

// Get 查询缓存
func (c *RedisCache) Get(ctx context.Context, columnModel string) (*models.ReferenceStandard, bool) {
	data, err := c.client.Get(ctx, c.cacheKey(columnModel)).Result()
	if err != nil {
		return nil, false
	}

	var std models.ReferenceStandard
	if err := json.Unmarshal([]byte(data), &std); err != nil {
		return nil, false
	}
	return &std, true
}

// Set 写入缓存
func (c *RedisCache) Set(ctx context.Context, columnModel string, std *models.ReferenceStandard) {
	data, err := json.Marshal(std)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.cacheKey(columnModel), data, c.ttl)
}

// Invalidate 失效指定型号的缓存
func (c *RedisCache) Invalidate(ctx context.Context, columnModel string) {
	c.client.Del(ctx, c.cacheKey(columnModel))
}

// MemoryCache 进程内缓存实现，单页面实例级别的加速，无跨实例一致性保证
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	std       *models.ReferenceStandard
	expiresAt time.Time
}

// NewMemoryCache 创建进程内标准缓存
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryCacheEntry),
	}
}

// Get 查询缓存
func (c *MemoryCache) Get(ctx context.Context, columnModel string) (*models.ReferenceStandard, bool) {
	c.mu.RLock()
	entry, ok := c.entries[columnModel]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.std, true
}

// Set 写入缓存
func (c *MemoryCache) Set(ctx context.Context, columnModel string, std *models.ReferenceStandard) {
	c.mu.Lock()
	c.entries[columnModel] = memoryCacheEntry{std: std, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate 失效指定型号的缓存
func (c *MemoryCache) Invalidate(ctx context.Context, columnModel string) {
	c.mu.Lock()
	delete(c.entries, columnModel)
	c.mu.Unlock()
}
