package pipeline

import (
	"context"
	"testing"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/knowledge"
	"github.com/BaSui01/queryflow/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(context.Background(), config.DefaultConfig(), opts)
	require.NoError(t, err)
	return e
}

func TestProcessQueryGreeting(t *testing.T) {
	e := newTestEngine(t, Options{})

	resp, err := e.ProcessQuery(context.Background(), "hello")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, types.LangEnglish, resp.Language)
	assert.Equal(t, "greeting", resp.Intent)
	assert.GreaterOrEqual(t, resp.Confidence, 0.5)
	require.NotEmpty(t, resp.Documents)
	assert.Equal(t, types.TierStructured, resp.Documents[0].Tier)
	assert.NotEmpty(t, resp.Answer)
}

// 马来语缩写 → 归一化 → 优先短语 → 结构化费用答案，全链路
func TestProcessQueryMalayFees(t *testing.T) {
	e := newTestEngine(t, Options{})

	resp, err := e.ProcessQuery(context.Background(), "berapakah yuran pengajian")
	require.NoError(t, err)

	assert.Equal(t, types.LangMalay, resp.Language)
	assert.Equal(t, "fees", resp.Intent)
	assert.GreaterOrEqual(t, resp.Confidence, 0.8)
	assert.Equal(t, types.LevelVeryHigh, resp.Level)
	assert.Contains(t, resp.Answer, "RM 1,500")
}

func TestProcessQueryStaffPriority(t *testing.T) {
	e := newTestEngine(t, Options{})

	resp, err := e.ProcessQuery(context.Background(), "how do i contact the dean")
	require.NoError(t, err)

	assert.Equal(t, "staff", resp.Domain)
	require.NotEmpty(t, resp.PriorityMatched)
	assert.Contains(t, resp.PriorityMatched[0].Answer, "Dean")
}

// 实体抽取基于原始文本，大写课程代码在响应里原样保留
func TestProcessQueryEntitiesFromRawText(t *testing.T) {
	e := newTestEngine(t, Options{})

	resp, err := e.ProcessQuery(context.Background(), "info abt BITZ 1234 pls")
	require.NoError(t, err)

	require.True(t, resp.Entities.Has("course_code"))
	assert.Equal(t, "BITZ 1234", resp.Entities["course_code"][0])
	// 归一化展开了缩写
	assert.Contains(t, resp.Normalized, "about")
	assert.Contains(t, resp.Normalized, "please")
}

func TestProcessQueryGibberishLowConfidence(t *testing.T) {
	e := newTestEngine(t, Options{})

	resp, err := e.ProcessQuery(context.Background(), "zzxqv wvnmx qqpl")
	require.NoError(t, err)

	assert.Less(t, resp.Confidence, 0.4)
	assert.Equal(t, "about_faculty", resp.Intent)
}

func TestProcessBatchPreservesOrder(t *testing.T) {
	e := newTestEngine(t, Options{})

	texts := []string{"hello", "berapakah yuran pengajian", "thanks a lot"}
	responses, err := e.ProcessBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, responses, len(texts))

	assert.Equal(t, "greeting", responses[0].Intent)
	assert.Equal(t, "fees", responses[1].Intent)
	assert.Equal(t, "thanks", responses[2].Intent)
}

// 快照替换 + Refresh 后，新事实立即生效且旧缓存失效
func TestRefreshAfterSnapshotSwap(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()

	resp, err := e.ProcessQuery(ctx, "how much are the tuition fees")
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, "RM 1,500")

	snap := knowledge.DefaultSnapshot()
	snap.Admission["fees"] = "RM 2,000.00 per semester."
	e.Store().Swap(snap)
	require.NoError(t, e.Refresh(ctx))

	resp, err = e.ProcessQuery(ctx, "how much are the tuition fees")
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, "RM 2,000")
}
