package knowledge

import (
	"context"
	"math"
	"testing"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder 按预设相似度返回向量：查询向量固定为 [1,0]，
// 文档向量构造为与其余弦相似度恰为 score 的单位向量
type stubEmbedder struct {
	docScore float64
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{s.docScore, math.Sqrt(1 - s.docScore*s.docScore)}
	}
	return out, nil
}

// 查询单独编码时覆盖为基准向量
type queryAwareEmbedder struct {
	stubEmbedder
	queryText string
}

func (q *queryAwareEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 1 && texts[0] == q.queryText {
		return [][]float64{{1, 0}}, nil
	}
	return q.stubEmbedder.Embed(ctx, texts)
}

func newTestRetriever(t *testing.T, snap *Snapshot, embedder Embedder) *Retriever {
	t.Helper()
	cfg := config.DefaultConfig()
	store := NewStoreFromSnapshot(snap, nil)
	r, err := NewRetriever(context.Background(), store, embedder, nil, nil, cfg.Tiers, cfg.Cache, nil)
	require.NoError(t, err)
	return r
}

func TestTier1StructuredFees(t *testing.T) {
	r := newTestRetriever(t, DefaultSnapshot(), nil)

	docs, err := r.Retrieve(context.Background(), "fees", "how much are the fees")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, types.TierStructured, docs[0].Tier)
	assert.Equal(t, 1.0, docs[0].Score)
	assert.Contains(t, docs[0].Entry.Answer, "RM 1,500.00")
}

func TestTier1StaffWhitelist(t *testing.T) {
	r := newTestRetriever(t, DefaultSnapshot(), nil)

	answer, ok := r.StructuredAnswer(context.Background(), "staff_contact", "how do i contact the dean")
	require.True(t, ok)
	assert.Contains(t, answer, "Aminah")
	assert.Contains(t, answer, "dean@faculty.edu.my")

	// 目录之外的名字绝不编造
	_, ok = r.StructuredAnswer(context.Background(), "staff_contact", "contact professor zulkifli")
	assert.False(t, ok)
}

func TestTier1NeverFabricatesProgramme(t *testing.T) {
	r := newTestRetriever(t, DefaultSnapshot(), nil)

	answer, ok := r.StructuredAnswer(context.Background(), "program_info", "tell me about BITZ")
	require.True(t, ok)
	assert.Contains(t, answer, "Software Development")
}

// 语义层 0.22 < 0.3，词法层无词汇重叠 → 整体 NoRelevantMatch，
// 绝不退回低相关度猜测
func TestWaterfallRejectsBelowThresholds(t *testing.T) {
	snap := &Snapshot{
		FAQs: []types.KnowledgeEntry{
			{ID: "faq-1", Question: "How much are the tuition fees?", Answer: "RM 1,500 per semester.", Category: "fees"},
		},
	}
	query := "zxqv wvnm pqrs"
	r := newTestRetriever(t, snap, &queryAwareEmbedder{stubEmbedder{docScore: 0.22}, query})

	docs, err := r.Retrieve(context.Background(), "fees", query)
	assert.ErrorIs(t, err, ErrNoRelevantMatch)
	assert.Empty(t, docs)
}

func TestSemanticTierAccepts(t *testing.T) {
	snap := &Snapshot{
		FAQs: []types.KnowledgeEntry{
			{ID: "faq-1", Question: "How much are the tuition fees?", Answer: "RM 1,500 per semester.", Category: "fees"},
		},
	}
	query := "zxqv wvnm pqrs"
	r := newTestRetriever(t, snap, &queryAwareEmbedder{stubEmbedder{docScore: 0.85}, query})

	docs, err := r.Retrieve(context.Background(), "fees", query)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, types.TierSemantic, docs[0].Tier)
	assert.GreaterOrEqual(t, docs[0].Score, 0.3)
}

func TestLexicalFallback(t *testing.T) {
	snap := &Snapshot{
		FAQs: []types.KnowledgeEntry{
			{ID: "faq-fees", Question: "How much are the tuition fees per semester?", Answer: "RM 1,500.", Category: "fees", Keywords: []string{"fees", "tuition"}},
			{ID: "faq-intake", Question: "When is the next student intake?", Answer: "September.", Category: "admission", Keywords: []string{"intake"}},
		},
	}
	// 无向量后端：语义层不可用，词法层接住
	r := newTestRetriever(t, snap, nil)

	docs, err := r.Retrieve(context.Background(), "fees", "how much are the tuition fees")
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, types.TierLexical, docs[0].Tier)
	assert.GreaterOrEqual(t, docs[0].Score, 0.15)
	assert.Equal(t, "faq-fees", docs[0].Entry.ID)
}

func TestRankedOrderDescending(t *testing.T) {
	snap := &Snapshot{
		FAQs: []types.KnowledgeEntry{
			{ID: "a", Question: "tuition fees amount", Category: "fees"},
			{ID: "b", Question: "tuition fees amount per semester exactly", Category: "fees"},
			{ID: "c", Question: "library opening hours", Category: "facility_info"},
		},
	}
	r := newTestRetriever(t, snap, nil)

	docs, err := r.Retrieve(context.Background(), "fees", "tuition fees amount")
	require.NoError(t, err)
	for i := 1; i < len(docs); i++ {
		assert.GreaterOrEqual(t, docs[i-1].Score, docs[i].Score)
	}
}

func TestNoResultIsCached(t *testing.T) {
	snap := &Snapshot{}
	r := newTestRetriever(t, snap, nil)

	_, err := r.Retrieve(context.Background(), "fees", "asdkjhaskjdh")
	require.ErrorIs(t, err, ErrNoRelevantMatch)

	// 第二次命中缓存中的无结果哨兵
	_, err = r.Retrieve(context.Background(), "fees", "asdkjhaskjdh")
	assert.ErrorIs(t, err, ErrNoRelevantMatch)
}

func TestRepeatedRetrieveIdentical(t *testing.T) {
	r := newTestRetriever(t, DefaultSnapshot(), nil)

	first, err := r.Retrieve(context.Background(), "fees", "how much are the fees")
	require.NoError(t, err)
	second, err := r.Retrieve(context.Background(), "fees", "how much are the fees")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	r := newTestRetriever(t, DefaultSnapshot(), nil)

	docs, err := r.Retrieve(context.Background(), "fees", "how much are the fees")
	require.NoError(t, err)
	assert.Contains(t, docs[0].Entry.Answer, "RM 1,500.00")

	updated := DefaultSnapshot()
	updated.Admission["fees"] = "Tuition fees are RM 2,000.00 per semester."
	r.store.Swap(updated)
	require.NoError(t, r.RebuildAndInvalidate(context.Background()))

	docs, err = r.Retrieve(context.Background(), "fees", "how much are the fees")
	require.NoError(t, err)
	assert.Contains(t, docs[0].Entry.Answer, "RM 2,000.00")
}
