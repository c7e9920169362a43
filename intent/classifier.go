package intent

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 产生结果的阶段
const (
	PassPriority = "priority"
	PassModel    = "model"
	PassWeighted = "weighted"
	PassFallback = "fallback"
)

// Result 分类结果
type Result struct {
	Intent     string             `json:"intent"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	Pass       string             `json:"pass"`
	Reasoning  string             `json:"reasoning,omitempty"`
}

// Classifier 混合意图分类器。
// 模式表编译后以原子指针持有：并发读取无锁，重载通过整表交换，
// 在途请求不会看到半更新的表。
type Classifier struct {
	compiled atomic.Pointer[compiledTable]
	scoring  config.ScoringConfig
	gate     *modelGate
	logger   *zap.Logger
}

// NewClassifier 创建分类器。backend 可为 nil（跳过模型阶段）。
func NewClassifier(table *Table, scoring config.ScoringConfig, model config.ModelConfig, backend ModelBackend, logger *zap.Logger) (*Classifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "intent_classifier"))

	c := &Classifier{
		scoring: scoring,
		gate:    newModelGate(backend, model, logger),
		logger:  logger,
	}
	if err := c.Reload(table); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload 校验并原子替换意图表
func (c *Classifier) Reload(table *Table) error {
	if table == nil {
		return fmt.Errorf("intent table is nil")
	}
	if err := table.Validate(); err != nil {
		return fmt.Errorf("invalid intent table: %w", err)
	}
	c.compiled.Store(compile(table))
	c.logger.Info("intent table swapped",
		zap.Int("categories", len(table.Categories)))
	return nil
}

// Table 返回当前生效的意图表
func (c *Classifier) Table() *Table {
	return c.compiled.Load().table
}

// Classify 对归一化后的文本分类。永不报错：任何输入都得到一个
// 带置信度的意图，零匹配落到回退意图。
func (c *Classifier) Classify(ctx context.Context, text string, lang types.Language) Result {
	tbl := c.compiled.Load()
	lower := strings.ToLower(strings.TrimSpace(text))

	if lower == "" {
		return c.fallbackResult(tbl, lang, "empty input")
	}

	// 阶段 1：优先短语直通，命中即短路
	if r, ok := c.priorityPass(tbl, lower); ok {
		return r
	}

	// 阶段 3 先算：模型阶段的仲裁需要加权结果参照
	weighted := c.weightedPass(tbl, lower, lang)

	// 阶段 2：可选模型推理
	pred, err := c.gate.classify(ctx, lower, tbl.table.Labels(lang))
	if err != nil {
		return weighted
	}
	pred = applyModelRules(pred, lower)
	if _, known := tbl.table.Category(pred.Intent); !known || pred.Confidence < c.scoring.ModelThreshold {
		return weighted
	}

	return c.arbitrate(weighted, pred)
}

// ClassifyBatch 并发分类一批文本，结果顺序与输入一致
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string, lang types.Language) ([]Result, error) {
	results := make([]Result, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, text := range texts {
		g.Go(func() error {
			results[i] = c.Classify(gctx, text, lang)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// priorityPass 高精度短语直通。单个 ASCII 词用词边界匹配，
// 避免部分词误命中；多词短语与 CJK 短语用子串匹配。
func (c *Classifier) priorityPass(tbl *compiledTable, lower string) (Result, bool) {
	for _, rule := range tbl.priority {
		matched := false
		if rule.re != nil {
			matched = rule.re.MatchString(lower)
		} else {
			matched = strings.Contains(lower, rule.phrase)
		}
		if matched {
			c.logger.Debug("priority phrase matched",
				zap.String("intent", rule.intent),
				zap.String("phrase", rule.phrase))
			return Result{
				Intent:     rule.intent,
				Confidence: c.scoring.PriorityConfidence,
				Pass:       PassPriority,
				Reasoning:  fmt.Sprintf("priority phrase %q", rule.phrase),
			}, true
		}
	}
	return Result{}, false
}

// weightedPass 加权关键词评分。
// 分数归一化是长度感知的：短查询走分数阶梯（短查询不可能累积
// 多个命中），长查询按类别最高可能分归一化，并对多关键词佐证
// 给乘法加成；随后用分数档保底，保证"有匹配"不会报出过低置信度。
func (c *Classifier) weightedPass(tbl *compiledTable, lower string, lang types.Language) Result {
	scores := make(map[string]float64, len(tbl.cats))

	bestIdx, bestScore, bestDistinct := -1, 0, 0
	for i, cat := range tbl.cats {
		score, distinct := scoreCategory(cat, lower, c.scoring)
		scores[cat.id] = float64(score)
		if score > bestScore {
			bestIdx, bestScore, bestDistinct = i, score, distinct
		}
	}

	if bestScore == 0 {
		return c.fallbackResult(tbl, lang, "no keyword matched any intent")
	}

	best := tbl.cats[bestIdx]
	tokens := len(strings.Fields(lower))

	var conf float64
	if tokens <= c.scoring.ShortQueryTokens {
		conf = c.scoring.ShortBase
		for _, step := range c.scoring.ShortLadder {
			if bestScore >= step.Score {
				conf = step.Confidence
				break
			}
		}
	} else {
		conf = float64(bestScore) / float64(best.maxScore)
		if bestDistinct >= 2 {
			conf *= c.scoring.MultiKeywordBoost
		}
	}

	for _, floor := range c.scoring.Floors {
		if bestScore >= floor.Score {
			if conf < floor.Confidence {
				conf = floor.Confidence
			}
			break
		}
	}
	if conf > c.scoring.Cap {
		conf = c.scoring.Cap
	}

	return Result{
		Intent:     best.id,
		Confidence: conf,
		Scores:     scores,
		Pass:       PassWeighted,
		Reasoning: fmt.Sprintf("score %d over %d keywords (%d distinct)",
			bestScore, len(best.keywords), bestDistinct),
	}
}

// scoreCategory 单类别原始分：子串命中计权重，精确词命中与
// 多词短语命中各有额外加成
func scoreCategory(cat compiledCategory, lower string, s config.ScoringConfig) (score, distinct int) {
	for _, kw := range cat.keywords {
		// 极短词只认词边界命中，否则 "hi" 会在 "this" 里误命中
		if kw.requireWord {
			if !kw.wordRe.MatchString(lower) {
				continue
			}
		} else if !strings.Contains(lower, kw.term) {
			continue
		}
		score += kw.weight
		distinct++
		if kw.wordRe != nil && kw.wordRe.MatchString(lower) {
			score += s.ExactBonus
		}
		if kw.isPhrase {
			score += s.PhraseBonus
		}
	}
	return score, distinct
}

// arbitrate 加权结果与模型结果的仲裁。
// 便宜的确定性回退只有在明显领先时才压过概率分类器。
func (c *Classifier) arbitrate(weighted Result, pred Prediction) Result {
	model := Result{
		Intent:     pred.Intent,
		Confidence: pred.Confidence,
		Scores:     weighted.Scores,
		Pass:       PassModel,
		Reasoning:  "model prediction accepted",
	}

	switch {
	case weighted.Confidence >= c.scoring.WeightedWinsAt && weighted.Confidence > pred.Confidence:
		return weighted
	case weighted.Confidence > pred.Confidence+c.scoring.WeightedMargin:
		return weighted
	case pred.Confidence >= weighted.Confidence-c.scoring.ModelMargin:
		return model
	default:
		return weighted
	}
}

func (c *Classifier) fallbackResult(tbl *compiledTable, lang types.Language, reason string) Result {
	intent := tbl.fallback
	if intent == "" {
		intent = c.scoring.FallbackIntent
	}
	return Result{
		Intent:     intent,
		Confidence: c.scoring.FallbackConfidenceFor(lang),
		Pass:       PassFallback,
		Reasoning:  reason,
	}
}

// ============================================================
// 编译后的只读表视图
// ============================================================

type compiledTable struct {
	table    *Table
	priority []priorityRule
	cats     []compiledCategory
	fallback string
}

type priorityRule struct {
	intent string
	phrase string
	re     *regexp.Regexp // 仅单个 ASCII 词
}

type compiledCategory struct {
	id       string
	maxScore int
	keywords []compiledKeyword
}

type compiledKeyword struct {
	term        string
	weight      int
	isPhrase    bool
	requireWord bool
	wordRe      *regexp.Regexp // 仅 ASCII 词，CJK 无词边界概念
}

func compile(t *Table) *compiledTable {
	ct := &compiledTable{table: t, fallback: t.Fallback}

	for _, cat := range t.Categories {
		cc := compiledCategory{id: cat.ID, maxScore: cat.MaxScore()}
		for _, kw := range cat.Keywords {
			term := strings.ToLower(kw.Term)
			ck := compiledKeyword{
				term:     term,
				weight:   kw.Weight,
				isPhrase: strings.Contains(term, " "),
			}
			if !ck.isPhrase && isASCIIWord(term) {
				ck.wordRe = regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
				ck.requireWord = len(term) <= 3
			}
			cc.keywords = append(cc.keywords, ck)
		}
		ct.cats = append(ct.cats, cc)

		for _, phrase := range cat.PriorityPhrases {
			p := strings.ToLower(phrase)
			rule := priorityRule{intent: cat.ID, phrase: p}
			if !strings.Contains(p, " ") && isASCIIWord(p) {
				rule.re = regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
			}
			ct.priority = append(ct.priority, rule)
		}
	}

	// 长短语优先检查，减少短前缀抢先命中
	sort.SliceStable(ct.priority, func(i, j int) bool {
		return len(ct.priority[i].phrase) > len(ct.priority[j].phrase)
	})

	return ct
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return s != ""
}
