package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/BaSui01/queryflow/types"

	"go.uber.org/zap"
)

// Embedder 可选的向量化后端。nil 或 Build 失败时语义层整体跳过，
// 瀑布直接落到词法层。
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// SemanticIndex 语义层：对候选条目的 question 字段建向量索引，
// 按余弦相似度排序，只有最高分超过阈值才接受。
type SemanticIndex struct {
	embedder  Embedder
	threshold float64
	topK      int

	mu      sync.RWMutex
	entries []types.KnowledgeEntry
	vectors [][]float64

	logger *zap.Logger
}

// NewSemanticIndex 创建语义索引
func NewSemanticIndex(embedder Embedder, threshold float64, topK int, logger *zap.Logger) *SemanticIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = 3
	}
	return &SemanticIndex{
		embedder:  embedder,
		threshold: threshold,
		topK:      topK,
		logger:    logger.With(zap.String("component", "semantic_index")),
	}
}

// Available 报告语义层是否可用
func (s *SemanticIndex) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embedder != nil && len(s.vectors) > 0
}

// Build 对候选条目重建向量索引。候选池为空或后端缺失时索引为空，
// 语义层在检索时被跳过。
func (s *SemanticIndex) Build(ctx context.Context, entries []types.KnowledgeEntry) error {
	if s.embedder == nil || len(entries) == 0 {
		s.mu.Lock()
		s.entries, s.vectors = nil, nil
		s.mu.Unlock()
		return nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Question
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed candidate pool: %w", err)
	}
	if len(vectors) != len(entries) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(entries))
	}

	s.mu.Lock()
	s.entries = entries
	s.vectors = vectors
	s.mu.Unlock()

	s.logger.Info("semantic index built", zap.Int("entries", len(entries)))
	return nil
}

// Search 返回超过阈值的 Top-K 候选，降序稳定排序。
// 无候选超阈值时返回空集，由调用方落入下一层。
func (s *SemanticIndex) Search(ctx context.Context, query string) ([]types.RankedDocument, error) {
	s.mu.RLock()
	entries, vectors := s.entries, s.vectors
	s.mu.RUnlock()

	if s.embedder == nil || len(vectors) == 0 {
		return nil, nil
	}

	qv, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qv) == 0 {
		return nil, nil
	}

	results := make([]types.RankedDocument, 0, len(entries))
	for i, vec := range vectors {
		score := cosineSimilarity(qv[0], vec)
		if score < s.threshold {
			continue
		}
		results = append(results, types.RankedDocument{
			Entry: entries[i],
			Score: score,
			Tier:  types.TierSemantic,
		})
	}

	if len(results) == 0 {
		s.logger.Debug("semantic tier rejected all candidates",
			zap.Float64("threshold", s.threshold))
		return nil, nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > s.topK {
		results = results[:s.topK]
	}
	return results, nil
}

// cosineSimilarity 余弦相似度，维度不符或零向量返回 0
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
