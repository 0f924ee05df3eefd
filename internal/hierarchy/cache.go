package hierarchy

import (
	"sync"
	"time"
)

// CacheKey 判定缓存的键
// 按 (组织, 请求者, 目标, 数据范围, 动作) 五元组区分
type CacheKey struct {
	OrganizationID string
	RequesterID    string
	TargetID       string
	DataScope      string
	Action         string
}

// cacheEntry 缓存条目
type cacheEntry struct {
	decision  *Decision
	expiresAt time.Time
}

// DecisionCache 判定缓存
// 纯派生状态,任何时刻清空都是安全的;条目独立过期
type DecisionCache struct {
	cache *sync.Map
	ttl   time.Duration
}

// NewDecisionCache 创建判定缓存
func NewDecisionCache(ttl time.Duration) *DecisionCache {
	return &DecisionCache{
		cache: &sync.Map{},
		ttl:   ttl,
	}
}

// Get 获取缓存的判定
func (c *DecisionCache) Get(key CacheKey) (*Decision, bool) {
	val, found := c.cache.Load(key)
	if !found {
		return nil, false
	}

	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		// 已过期,删除
		c.cache.Delete(key)
		return nil, false
	}

	return entry.decision, true
}

// Put 写入判定
func (c *DecisionCache) Put(key CacheKey, decision *Decision) {
	c.cache.Store(key, &cacheEntry{
		decision:  decision,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// InvalidateEntity 清除请求者或目标为指定实体的所有条目
func (c *DecisionCache) InvalidateEntity(entityID string) {
	c.cache.Range(func(key, value interface{}) bool {
		k := key.(CacheKey)
		if k.RequesterID == entityID || k.TargetID == entityID {
			c.cache.Delete(key)
		}
		return true
	})
}

// InvalidateOrganization 清除指定组织的所有条目
// 批量变更时优先使用,避免逐实体失效风暴
func (c *DecisionCache) InvalidateOrganization(organizationID string) {
	c.cache.Range(func(key, value interface{}) bool {
		if key.(CacheKey).OrganizationID == organizationID {
			c.cache.Delete(key)
		}
		return true
	})
}

// Clear 清空缓存
func (c *DecisionCache) Clear() {
	c.cache.Range(func(key, value interface{}) bool {
		c.cache.Delete(key)
		return true
	})
}

// Len 返回当前条目数(含未被惰性清理的过期条目)
func (c *DecisionCache) Len() int {
	count := 0
	c.cache.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// TTL 返回条目存活时间
func (c *DecisionCache) TTL() time.Duration {
	return c.ttl
}
