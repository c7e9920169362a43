package knowledge

import (
	"math"
	"sort"
	"strings"

	"github.com/BaSui01/queryflow/types"

	"go.uber.org/zap"
)

// LexicalIndex 词法层：经典 TF-IDF 词袋向量 + 余弦相似度。
// 不依赖任何学习向量，是语义层拒绝后的最后一道回退。
type LexicalIndex struct {
	threshold float64
	topK      int

	entries    []types.KnowledgeEntry
	vocabulary map[string]int
	idf        []float64
	docVectors []map[int]float64

	logger *zap.Logger
}

// NewLexicalIndex 对候选条目构建 TF-IDF 索引。
// 索引建成后不可变，重建产生新实例（快照交换语义）。
func NewLexicalIndex(entries []types.KnowledgeEntry, threshold float64, topK int, logger *zap.Logger) *LexicalIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = 3
	}

	idx := &LexicalIndex{
		threshold:  threshold,
		topK:       topK,
		entries:    entries,
		vocabulary: make(map[string]int),
		logger:     logger.With(zap.String("component", "lexical_index")),
	}

	// 文档文本 = 问题 + 关键词 + 类别
	docTokens := make([][]string, len(entries))
	for i, e := range entries {
		text := e.Question + " " + strings.Join(e.Keywords, " ") + " " + e.Category
		docTokens[i] = tokenize(text)
		for _, tok := range docTokens[i] {
			if _, ok := idx.vocabulary[tok]; !ok {
				idx.vocabulary[tok] = len(idx.vocabulary)
			}
		}
	}

	// IDF：log((N+1)/(df+1)) + 1，平滑避免除零
	df := make([]int, len(idx.vocabulary))
	for _, tokens := range docTokens {
		seen := make(map[int]struct{})
		for _, tok := range tokens {
			seen[idx.vocabulary[tok]] = struct{}{}
		}
		for id := range seen {
			df[id]++
		}
	}
	n := float64(len(entries))
	idx.idf = make([]float64, len(df))
	for i, d := range df {
		idx.idf[i] = math.Log((n+1)/(float64(d)+1)) + 1
	}

	idx.docVectors = make([]map[int]float64, len(entries))
	for i, tokens := range docTokens {
		idx.docVectors[i] = idx.vectorize(tokens)
	}

	return idx
}

// Search 返回超过阈值的 Top-K 候选；全部被拒绝时记录日志并返回空集
func (idx *LexicalIndex) Search(query string) []types.RankedDocument {
	if len(idx.entries) == 0 {
		return nil
	}

	qv := idx.vectorize(tokenize(query))
	if len(qv) == 0 {
		return nil
	}

	results := make([]types.RankedDocument, 0, 4)
	for i, dv := range idx.docVectors {
		score := sparseCosine(qv, dv)
		if score < idx.threshold {
			continue
		}
		results = append(results, types.RankedDocument{
			Entry: idx.entries[i],
			Score: score,
			Tier:  types.TierLexical,
		})
	}

	if len(results) == 0 {
		idx.logger.Debug("lexical tier rejected all candidates",
			zap.Float64("threshold", idx.threshold))
		return nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > idx.topK {
		results = results[:idx.topK]
	}
	return results
}

// vectorize 稀疏 TF-IDF 向量，词表外的 token 忽略
func (idx *LexicalIndex) vectorize(tokens []string) map[int]float64 {
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[int]float64)
	total := 0.0
	for _, tok := range tokens {
		id, ok := idx.vocabulary[tok]
		if !ok {
			continue
		}
		counts[id]++
		total++
	}
	if total == 0 {
		return nil
	}
	for id := range counts {
		counts[id] = counts[id] / total * idx.idf[id]
	}
	return counts
}

func sparseCosine(a, b map[int]float64) float64 {
	var dot, normA, normB float64
	for id, v := range a {
		normA += v * v
		if w, ok := b[id]; ok {
			dot += v * w
		}
	}
	for _, w := range b {
		normB += w * w
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// tokenize 小写化并按非字母数字切分
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 0x80
	})
}
