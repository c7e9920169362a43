package knowledge

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// CachedResult 一次检索的缓存值。"无结果"也是合法缓存值，
// 重复的无解查询不会重走瀑布。
type CachedResult struct {
	Docs      []cachedDoc `json:"docs,omitempty"`
	NoResult  bool        `json:"no_result"`
	CreatedAt time.Time   `json:"created_at"`
}

// cachedDoc 与 types.RankedDocument 同构，独立定义以稳定缓存的
// JSON 布局
type cachedDoc struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords,omitempty"`
	Score    float64  `json:"score"`
	Tier     string   `json:"tier"`
}

// ResultCache 检索结果缓存接口
type ResultCache interface {
	Get(ctx context.Context, key string) (*CachedResult, error)
	Set(ctx context.Context, key string, result *CachedResult) error
	Clear(ctx context.Context) error
}

// ============================================================
// LRU 本地缓存（双向链表实现 O(1) 操作）
// ============================================================

// LRUCache 有界本地缓存。超出容量时淘汰最久未使用的条目，
// 永不无界增长。
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruNode
	head     *lruNode // 最近使用
	tail     *lruNode // 最久未使用
}

type lruNode struct {
	key       string
	result    *CachedResult
	expiresAt time.Time
	prev      *lruNode
	next      *lruNode
}

// NewLRUCache 创建本地 LRU 缓存。ttl 为零表示条目不过期。
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 2000
	}
	return &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruNode),
	}
}

// Get 获取缓存
func (c *LRUCache) Get(_ context.Context, key string) (*CachedResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	if c.ttl > 0 && time.Now().After(node.expiresAt) {
		c.removeNode(node)
		delete(c.items, key)
		return nil, ErrCacheMiss
	}

	c.moveToHead(node)
	return node.result, nil
}

// Set 设置缓存
func (c *LRUCache) Set(_ context.Context, key string, result *CachedResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[key]; ok {
		node.result = result
		node.expiresAt = time.Now().Add(c.ttl)
		c.moveToHead(node)
		return nil
	}

	if len(c.items) >= c.capacity {
		c.evictTail()
	}

	node := &lruNode{
		key:       key,
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[key] = node
	c.addToHead(node)
	return nil
}

// Clear 清空缓存
func (c *LRUCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruNode)
	c.head = nil
	c.tail = nil
	return nil
}

// Len 当前条目数
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// addToHead 添加节点到头部 O(1)
func (c *LRUCache) addToHead(node *lruNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

// removeNode 从链表中移除节点 O(1)
func (c *LRUCache) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
}

// moveToHead 移动节点到头部 O(1)
func (c *LRUCache) moveToHead(node *lruNode) {
	if node == c.head {
		return
	}
	c.removeNode(node)
	c.addToHead(node)
}

// evictTail 淘汰尾部节点 O(1)
func (c *LRUCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.items, c.tail.key)
	c.removeNode(c.tail)
}
