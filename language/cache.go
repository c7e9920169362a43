package language

import (
	"container/list"
	"sync"

	"github.com/BaSui01/queryflow/types"
)

// memoCache 有界检测结果缓存。并发写入是常态（每次未命中都会写），
// 因此用互斥锁保护；重复写同一键是可接受的，损坏映射不可接受。
type memoCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // 头部最近使用
}

type memoEntry struct {
	key  string
	lang types.Language
}

func newMemoCache(capacity int) *memoCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &memoCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *memoCache) get(key string) (types.Language, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*memoEntry).lang, true
}

func (c *memoCache) set(key string, lang types.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*memoEntry).lang = lang
		c.order.MoveToFront(el)
		return
	}

	if len(c.items) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*memoEntry).key)
		}
	}

	c.items[key] = c.order.PushFront(&memoEntry{key: key, lang: lang})
}

func (c *memoCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
