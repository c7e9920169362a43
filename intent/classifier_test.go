package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/types"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier(t *testing.T, backend ModelBackend) *Classifier {
	t.Helper()
	cfg := config.DefaultConfig()
	c, err := NewClassifier(DefaultTable(), cfg.Scoring, cfg.Model, backend, nil)
	require.NoError(t, err)
	return c
}

type stubBackend struct {
	pred Prediction
	err  error
	slow time.Duration
}

func (s *stubBackend) Classify(ctx context.Context, text string, labels map[string]string) (Prediction, error) {
	if s.slow > 0 {
		select {
		case <-time.After(s.slow):
		case <-ctx.Done():
			return Prediction{}, ctx.Err()
		}
	}
	return s.pred, s.err
}

func TestClassifyGreeting(t *testing.T) {
	c := newTestClassifier(t, nil)

	r := c.Classify(context.Background(), "hello", types.LangEnglish)
	assert.Equal(t, "greeting", r.Intent)
	assert.GreaterOrEqual(t, r.Confidence, 0.5)
}

func TestClassifyPriorityPhrase(t *testing.T) {
	c := newTestClassifier(t, nil)

	r := c.Classify(context.Background(), "what programs does the faculty offer", types.LangEnglish)
	assert.Equal(t, "program_info", r.Intent)
	assert.Equal(t, PassPriority, r.Pass)
	assert.GreaterOrEqual(t, r.Confidence, 0.8)
}

// 优先短语必须压过其它意图更高的加权原始分
func TestPriorityOverrideWins(t *testing.T) {
	cfg := config.DefaultConfig()
	table := &Table{
		Fallback: "other",
		Categories: []Category{
			{
				ID:              "target",
				Keywords:        []Keyword{{Term: "nothing", Weight: 1}},
				PriorityPhrases: []string{"magic phrase"},
			},
			{
				ID: "other",
				Keywords: []Keyword{
					{Term: "magic", Weight: 4}, {Term: "phrase", Weight: 4},
					{Term: "stacked", Weight: 4}, {Term: "keywords", Weight: 4},
				},
			},
		},
	}
	c, err := NewClassifier(table, cfg.Scoring, cfg.Model, nil, nil)
	require.NoError(t, err)

	r := c.Classify(context.Background(), "magic phrase with stacked keywords", types.LangEnglish)
	assert.Equal(t, "target", r.Intent)
	assert.Equal(t, PassPriority, r.Pass)
	assert.Equal(t, cfg.Scoring.PriorityConfidence, r.Confidence)
}

func TestClassifyFallbackOnZeroMatches(t *testing.T) {
	c := newTestClassifier(t, nil)

	r := c.Classify(context.Background(), "asdkjhaskjdh", types.LangEnglish)
	assert.Equal(t, "about_faculty", r.Intent)
	assert.Equal(t, PassFallback, r.Pass)
	assert.Less(t, r.Confidence, 0.4)

	// zh 的回退置信度按语言覆盖更低
	rz := c.Classify(context.Background(), "呜呜呜", types.LangChinese)
	assert.Equal(t, PassFallback, rz.Pass)
	assert.InDelta(t, 0.2, rz.Confidence, 1e-9)
}

func TestClassifyMalayFees(t *testing.T) {
	c := newTestClassifier(t, nil)

	r := c.Classify(context.Background(), "berapakah yuran pengajian", types.LangMalay)
	assert.Equal(t, "fees", r.Intent)
}

func TestModelArbitration(t *testing.T) {
	tests := []struct {
		name string
		pred Prediction
		text string
		want string
	}{
		{
			// 加权结果高置信度且高于模型时直接胜出
			name: "weighted wins at high confidence",
			pred: Prediction{Intent: "facility_info", Confidence: 0.55},
			text: "how much are the tuition fees and payment and scholarship",
			want: "fees",
		},
		{
			// 两者接近时采用模型结果
			name: "model wins when close",
			pred: Prediction{Intent: "admission", Confidence: 0.7},
			text: "entry study info",
			want: "admission",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(t, &stubBackend{pred: tt.pred})
			r := c.Classify(context.Background(), tt.text, types.LangEnglish)
			assert.Equal(t, tt.want, r.Intent)
		})
	}
}

func TestModelUnavailableDegradesToWeighted(t *testing.T) {
	c := newTestClassifier(t, &stubBackend{err: errors.New("backend down")})

	r := c.Classify(context.Background(), "admission requirements for the bachelor degree", types.LangEnglish)
	assert.NotEmpty(t, r.Intent)
	assert.NotEqual(t, PassModel, r.Pass)
}

func TestSlowModelTimesOutToWeighted(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Timeout = 20 * time.Millisecond

	c, err := NewClassifier(DefaultTable(), cfg.Scoring, cfg.Model,
		&stubBackend{pred: Prediction{Intent: "fees", Confidence: 0.9}, slow: time.Second}, nil)
	require.NoError(t, err)

	start := time.Now()
	r := c.Classify(context.Background(), "library and laboratory facilities", types.LangEnglish)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, "facility_info", r.Intent)
	assert.NotEqual(t, PassModel, r.Pass)
}

func TestLowConfidenceModelIgnored(t *testing.T) {
	c := newTestClassifier(t, &stubBackend{pred: Prediction{Intent: "research_info", Confidence: 0.2}})

	r := c.Classify(context.Background(), "tuition fees please", types.LangEnglish)
	assert.Equal(t, "fees", r.Intent)
}

func TestReloadSwapsTable(t *testing.T) {
	c := newTestClassifier(t, nil)

	custom := &Table{
		Fallback: "only",
		Categories: []Category{
			{ID: "only", Keywords: []Keyword{{Term: "zzyzx", Weight: 4}}},
		},
	}
	require.NoError(t, c.Reload(custom))

	r := c.Classify(context.Background(), "zzyzx", types.LangEnglish)
	assert.Equal(t, "only", r.Intent)

	// 非法表不接受，旧表继续生效
	assert.Error(t, c.Reload(&Table{}))
	r = c.Classify(context.Background(), "zzyzx", types.LangEnglish)
	assert.Equal(t, "only", r.Intent)
}

func TestClassifyBatchPreservesOrder(t *testing.T) {
	c := newTestClassifier(t, nil)

	texts := []string{"hello", "how much are the fees", "research areas"}
	results, err := c.ClassifyBatch(context.Background(), texts, types.LangEnglish)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "greeting", results[0].Intent)
	assert.Equal(t, "fees", results[1].Intent)
	assert.Equal(t, "research_info", results[2].Intent)
}

// 任意输入的置信度都在 [0,1] 内，意图 id 都在表内
func TestConfidenceAlwaysInRange(t *testing.T) {
	c := newTestClassifier(t, nil)
	table := c.Table()

	known := make(map[string]bool)
	for _, cat := range table.Categories {
		known[cat.ID] = true
	}

	properties := gopter.NewProperties(nil)
	properties.Property("confidence in [0,1] and intent known", prop.ForAll(
		func(text string) bool {
			for _, lang := range types.SupportedLanguages {
				r := c.Classify(context.Background(), text, lang)
				if r.Confidence < 0 || r.Confidence > 1 {
					return false
				}
				if !known[r.Intent] {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))
	properties.TestingRun(t)
}
