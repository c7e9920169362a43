package intent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BaSui01/queryflow/config"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrModelUnavailable 推理后端缺失、限流或超时。
// 调用方静默降级到确定性回退，不向上传播。
var ErrModelUnavailable = errors.New("model backend unavailable")

// Prediction 模型阶段的输出
type Prediction struct {
	Intent     string
	Confidence float64
}

// ModelBackend 可选的零样本分类后端。
// labels 为意图 id → 按语言描述的映射，实现方返回映射回
// 规范 id 集的预测结果。
type ModelBackend interface {
	Classify(ctx context.Context, text string, labels map[string]string) (Prediction, error)
}

// modelGate 在推理后端外包一层超时与限流。
// 慢后端或不可用后端降级为 ErrModelUnavailable，绝不拖住整个请求。
type modelGate struct {
	backend ModelBackend
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

func newModelGate(backend ModelBackend, cfg config.ModelConfig, logger *zap.Logger) *modelGate {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &modelGate{
		backend: backend,
		limiter: rate.NewLimiter(limit, burst),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

func (g *modelGate) classify(ctx context.Context, text string, labels map[string]string) (Prediction, error) {
	if g.backend == nil {
		return Prediction{}, ErrModelUnavailable
	}
	if !g.limiter.Allow() {
		g.logger.Debug("model call rate limited, falling back")
		return Prediction{}, ErrModelUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	pred, err := g.backend.Classify(ctx, text, labels)
	if err != nil {
		g.logger.Debug("model classification failed, falling back", zap.Error(err))
		return Prediction{}, ErrModelUnavailable
	}
	return pred, nil
}

// correctionRule 修正模型的已知系统性误分类
type correctionRule struct {
	from    string
	to      string
	phrases []string
}

// boostRule 当文本含有强佐证短语时上调模型置信度
type boostRule struct {
	intent  string
	boost   float64
	phrases []string
}

// 零样本模型在短问候语和费用问句上有已知偏差，
// 用确定性规则在映射回规范 id 后修正。
var corrections = []correctionRule{
	{from: "about_faculty", to: "greeting", phrases: []string{"hello", "hi ", "hey", "good morning"}},
	{from: "about_faculty", to: "thanks", phrases: []string{"thank"}},
	{from: "program_info", to: "fees", phrases: []string{"how much", "berapa yuran", "fee", "yuran"}},
}

var boosts = []boostRule{
	{intent: "fees", boost: 0.1, phrases: []string{"yuran", "tuition", "how much"}},
	{intent: "staff_contact", boost: 0.1, phrases: []string{"email", "contact", "hubungi"}},
}

// applyModelRules 对模型预测执行修正与加成
func applyModelRules(pred Prediction, lowerText string) Prediction {
	for _, r := range corrections {
		if pred.Intent != r.from {
			continue
		}
		for _, p := range r.phrases {
			if strings.Contains(lowerText, p) {
				pred.Intent = r.to
				break
			}
		}
	}
	for _, r := range boosts {
		if pred.Intent != r.intent {
			continue
		}
		for _, p := range r.phrases {
			if strings.Contains(lowerText, p) {
				pred.Confidence += r.boost
				if pred.Confidence > 1 {
					pred.Confidence = 1
				}
				break
			}
		}
	}
	return pred
}
