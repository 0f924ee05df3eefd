package hierarchy_test

import (
	"testing"
	"time"

	"github.com/streamwork/hierarchy-gin/internal/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKey 构建测试缓存键
func testKey(org, requester, target string) hierarchy.CacheKey {
	return hierarchy.CacheKey{
		OrganizationID: org,
		RequesterID:    requester,
		TargetID:       target,
		DataScope:      "TASKS",
		Action:         "VIEW",
	}
}

// testDecision 构建测试判定
func testDecision(granted bool) *hierarchy.Decision {
	return &hierarchy.Decision{
		ID:        "dec-001",
		Granted:   granted,
		DecidedAt: time.Now(),
	}
}

// TestDecisionCache_PutGet 测试基本读写
func TestDecisionCache_PutGet(t *testing.T) {
	cache := hierarchy.NewDecisionCache(time.Minute)
	key := testKey("org-1", "u1", "u2")

	_, found := cache.Get(key)
	assert.False(t, found)

	cache.Put(key, testDecision(true))
	decision, found := cache.Get(key)
	require.True(t, found)
	assert.True(t, decision.Granted)
	assert.Equal(t, 1, cache.Len())
}

// TestDecisionCache_Expiry 测试条目过期后不可见
func TestDecisionCache_Expiry(t *testing.T) {
	cache := hierarchy.NewDecisionCache(10 * time.Millisecond)
	key := testKey("org-1", "u1", "u2")

	cache.Put(key, testDecision(true))
	time.Sleep(20 * time.Millisecond)

	_, found := cache.Get(key)
	assert.False(t, found)
}

// TestDecisionCache_InvalidateEntity 测试按实体失效
// 请求者或目标命中实体的条目都被清除
func TestDecisionCache_InvalidateEntity(t *testing.T) {
	cache := hierarchy.NewDecisionCache(time.Minute)
	cache.Put(testKey("org-1", "u1", "u2"), testDecision(true))
	cache.Put(testKey("org-1", "u3", "u1"), testDecision(true))
	cache.Put(testKey("org-1", "u3", "u4"), testDecision(false))

	cache.InvalidateEntity("u1")

	_, found := cache.Get(testKey("org-1", "u1", "u2"))
	assert.False(t, found)
	_, found = cache.Get(testKey("org-1", "u3", "u1"))
	assert.False(t, found)
	_, found = cache.Get(testKey("org-1", "u3", "u4"))
	assert.True(t, found)
}

// TestDecisionCache_InvalidateOrganization 测试按组织失效
func TestDecisionCache_InvalidateOrganization(t *testing.T) {
	cache := hierarchy.NewDecisionCache(time.Minute)
	cache.Put(testKey("org-1", "u1", "u2"), testDecision(true))
	cache.Put(testKey("org-2", "u1", "u2"), testDecision(true))

	cache.InvalidateOrganization("org-1")

	_, found := cache.Get(testKey("org-1", "u1", "u2"))
	assert.False(t, found)
	_, found = cache.Get(testKey("org-2", "u1", "u2"))
	assert.True(t, found)
}

// TestDecisionCache_Clear 测试清空
func TestDecisionCache_Clear(t *testing.T) {
	cache := hierarchy.NewDecisionCache(time.Minute)
	cache.Put(testKey("org-1", "u1", "u2"), testDecision(true))
	cache.Put(testKey("org-2", "u3", "u4"), testDecision(true))

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}
