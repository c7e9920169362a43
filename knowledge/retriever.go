package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/types"

	"go.uber.org/zap"
)

// ErrNoRelevantMatch 每一层都拒绝了全部候选。
// 这是预期的显式结果，调用方不得用低相关度候选兜底。
var ErrNoRelevantMatch = errors.New("no relevant match")

// usageThreshold 触发使用计数递增的最低文档分
const usageThreshold = 0.5

// Retriever 三层检索瀑布。所有层都先穿过有界结果缓存，
// 未命中才逐层计算并回写（包括"无结果"哨兵值）。
type Retriever struct {
	store    *Store
	handlers map[string]Handler
	semantic *SemanticIndex
	lexical  atomic.Pointer[LexicalIndex]
	cache    ResultCache
	usage    *UsageStore

	tiers    config.TierConfig
	cacheCfg config.CacheConfig
	logger   *zap.Logger
}

// NewRetriever 创建检索器并构建各层索引。
// embedder、cache、usage 均可为 nil：语义层跳过、缓存退化为
// 本地 LRU、使用计数不落盘。
func NewRetriever(ctx context.Context, store *Store, embedder Embedder, cache ResultCache, usage *UsageStore, tiers config.TierConfig, cacheCfg config.CacheConfig, logger *zap.Logger) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("knowledge store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewLRUCache(cacheCfg.MaxSize, cacheCfg.TTL)
	}

	r := &Retriever{
		store:    store,
		handlers: defaultHandlers(),
		semantic: NewSemanticIndex(embedder, tiers.SemanticThreshold, tiers.TopK, logger),
		cache:    cache,
		usage:    usage,
		tiers:    tiers,
		cacheCfg: cacheCfg,
		logger:   logger.With(zap.String("component", "knowledge_retriever")),
	}

	if err := r.rebuildIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Retrieve 执行检索瀑布，返回降序排名的文档集。
// 全层拒绝返回 ErrNoRelevantMatch。
func (r *Retriever) Retrieve(ctx context.Context, intent, queryText string) ([]types.RankedDocument, error) {
	key := r.cacheKey(intent, queryText)

	if cached, err := r.cache.Get(ctx, key); err == nil {
		if cached.NoResult {
			return nil, ErrNoRelevantMatch
		}
		return fromCached(cached), nil
	}

	docs := r.waterfall(ctx, intent, queryText)
	if len(docs) == 0 {
		_ = r.cache.Set(ctx, key, &CachedResult{NoResult: true, CreatedAt: time.Now()})
		return nil, ErrNoRelevantMatch
	}

	_ = r.cache.Set(ctx, key, toCached(docs))
	r.notifyUsage(docs[0])
	return docs, nil
}

// waterfall 严格有序的三层检索。某层拒绝不阻止尝试下一层。
func (r *Retriever) waterfall(ctx context.Context, intent, queryText string) []types.RankedDocument {
	// 第一层：结构化规则处理器
	if answer, ok := r.structuredAnswer(intent, queryText); ok {
		return []types.RankedDocument{{
			Entry: types.KnowledgeEntry{
				ID:       "structured:" + intent,
				Answer:   answer,
				Category: intent,
			},
			Score: 1.0,
			Tier:  types.TierStructured,
		}}
	}

	// 第二层：语义向量检索
	if r.semantic.Available() {
		docs, err := r.semantic.Search(ctx, queryText)
		if err != nil {
			r.logger.Warn("semantic tier failed, falling through", zap.Error(err))
		} else if len(docs) > 0 {
			return docs
		}
	}

	// 第三层：词法 TF-IDF 回退
	if idx := r.lexical.Load(); idx != nil {
		if docs := idx.Search(queryText); len(docs) > 0 {
			return docs
		}
	}

	r.logger.Debug("all retrieval tiers rejected",
		zap.String("intent", intent))
	return nil
}

// StructuredAnswer 只执行第一层，返回直接答案
func (r *Retriever) StructuredAnswer(_ context.Context, intent, queryText string) (string, bool) {
	return r.structuredAnswer(intent, queryText)
}

func (r *Retriever) structuredAnswer(intent, queryText string) (string, bool) {
	handler, ok := r.handlers[intent]
	if !ok {
		return "", false
	}
	return handler(r.store.Current(), queryText)
}

// Refresh 重载事实库、重建索引并失效缓存
func (r *Retriever) Refresh(ctx context.Context) error {
	if err := r.store.Reload(); err != nil {
		return err
	}
	return r.RebuildAndInvalidate(ctx)
}

// RebuildAndInvalidate 对当前快照重建索引并清空缓存。
// 快照被程序化替换（Store.Swap）后也需要调用。
func (r *Retriever) RebuildAndInvalidate(ctx context.Context) error {
	if err := r.rebuildIndexes(ctx); err != nil {
		return err
	}
	if err := r.cache.Clear(ctx); err != nil {
		r.logger.Warn("cache invalidation failed", zap.Error(err))
	}
	return nil
}

func (r *Retriever) rebuildIndexes(ctx context.Context) error {
	entries := r.store.Current().Entries()

	if err := r.semantic.Build(ctx, entries); err != nil {
		// 语义层构建失败只损失一层，瀑布仍可用
		r.logger.Warn("semantic index build failed, tier disabled", zap.Error(err))
	}
	r.lexical.Store(NewLexicalIndex(entries, r.tiers.LexicalThreshold, r.tiers.TopK, r.logger))
	return nil
}

// notifyUsage 高置信度命中时异步递增使用计数
func (r *Retriever) notifyUsage(top types.RankedDocument) {
	if r.usage == nil || top.Score < usageThreshold || top.Entry.ID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.usage.Increment(ctx, top.Entry.ID, top.Entry.Category); err != nil {
			r.logger.Warn("usage increment failed", zap.Error(err))
		}
	}()
}

// cacheKey 由意图与归一化文本前缀派生
func (r *Retriever) cacheKey(intent, queryText string) string {
	text := strings.ToLower(strings.TrimSpace(queryText))
	prefixLen := r.cacheCfg.KeyPrefixLen
	if prefixLen <= 0 {
		prefixLen = 200
	}
	if len(text) > prefixLen {
		text = text[:prefixLen]
	}
	sum := sha256.Sum256([]byte(intent + "\x00" + text))
	return hex.EncodeToString(sum[:16])
}

func toCached(docs []types.RankedDocument) *CachedResult {
	out := &CachedResult{CreatedAt: time.Now()}
	for _, d := range docs {
		out.Docs = append(out.Docs, cachedDoc{
			ID:       d.Entry.ID,
			Question: d.Entry.Question,
			Answer:   d.Entry.Answer,
			Category: d.Entry.Category,
			Keywords: d.Entry.Keywords,
			Score:    d.Score,
			Tier:     string(d.Tier),
		})
	}
	return out
}

func fromCached(cached *CachedResult) []types.RankedDocument {
	out := make([]types.RankedDocument, 0, len(cached.Docs))
	for _, d := range cached.Docs {
		out = append(out, types.RankedDocument{
			Entry: types.KnowledgeEntry{
				ID:       d.ID,
				Question: d.Question,
				Answer:   d.Answer,
				Category: d.Category,
				Keywords: d.Keywords,
			},
			Score: d.Score,
			Tier:  types.RetrievalTier(d.Tier),
		})
	}
	return out
}
