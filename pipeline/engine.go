// Package pipeline 将各组件装配为端到端的查询理解管线。
//
// 单次调用逻辑同步：原始文本 → 语言 → 归一化文本 → 实体 +
// 意图(置信度) → 域选择 → 排名文档。组件由构造函数显式注入，
// 不经任何全局可变状态。
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/queryflow/agent"
	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/entity"
	"github.com/BaSui01/queryflow/intent"
	"github.com/BaSui01/queryflow/knowledge"
	"github.com/BaSui01/queryflow/language"
	"github.com/BaSui01/queryflow/normalize"
	"github.com/BaSui01/queryflow/types"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Options 可选协作方。全部可为空：模型阶段跳过、语义层跳过、
// 缓存退化为本地、使用计数不落盘。
type Options struct {
	// ModelBackend 零样本分类后端
	ModelBackend intent.ModelBackend
	// Embedder 语义层向量化后端
	Embedder knowledge.Embedder
	// RedisClient 已建连的 Redis 客户端，优先于 cfg.Redis
	RedisClient *redis.Client
	// UsageDB 使用计数的 gorm 连接
	UsageDB *gorm.DB
	// MetricsRegistry Prometheus 注册表
	MetricsRegistry prometheus.Registerer
	// Logger 结构化日志
	Logger *zap.Logger
}

// Response 一次查询的完整结构化结果，交给外部答案合成步骤。
// 置信度与相关度字段表达降级状态，"无法可靠回答"不是错误。
type Response struct {
	ID              string                 `json:"id"`
	Language        types.Language         `json:"language"`
	Normalized      string                 `json:"normalized_text"`
	Tokens          []string               `json:"tokens,omitempty"`
	Entities        types.Entities         `json:"entities,omitempty"`
	Intent          string                 `json:"intent"`
	Confidence      float64                `json:"confidence"`
	Level           types.ConfidenceLevel  `json:"confidence_level"`
	Domain          string                 `json:"domain"`
	Documents       []types.RankedDocument `json:"documents,omitempty"`
	PriorityMatched []types.KnowledgeEntry `json:"priority_matched,omitempty"`
	Answer          string                 `json:"answer,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// Engine 查询理解引擎
type Engine struct {
	cfg        *config.Config
	detector   *language.Detector
	normalizer *normalize.Normalizer
	extractor  *entity.Extractor
	classifier *intent.Classifier
	store      *knowledge.Store
	retriever  *knowledge.Retriever
	registry   *agent.Registry
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *zap.Logger
}

// New 构造引擎。组件一次创建、贯穿进程生命周期，
// 请求处理路径只读共享状态。
func New(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	table := intent.LoadTable(cfg.IntentAssetPath, logger)
	classifier, err := intent.NewClassifier(table, cfg.Scoring, cfg.Model, opts.ModelBackend, logger)
	if err != nil {
		return nil, err
	}

	store := knowledge.NewStore(cfg.KnowledgeAssetPath, logger)

	local := knowledge.NewLRUCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
	var cache knowledge.ResultCache = local
	rdb := opts.RedisClient
	if rdb == nil && cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if rdb != nil {
		cache = knowledge.NewTwoLevelCache(local, rdb, cfg.Redis.TTL, logger)
	}

	var usage *knowledge.UsageStore
	if opts.UsageDB != nil {
		usage, err = knowledge.NewUsageStore(opts.UsageDB, logger)
		if err != nil {
			return nil, err
		}
	}

	retriever, err := knowledge.NewRetriever(ctx, store, opts.Embedder, cache, usage, cfg.Tiers, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		detector:   language.NewDetector(cfg.Detector, types.Language(cfg.DefaultLanguage), logger),
		normalizer: normalize.NewNormalizer(logger),
		extractor:  entity.NewExtractor(logger),
		classifier: classifier,
		store:      store,
		retriever:  retriever,
		registry:   agent.NewRegistry(store, retriever, cfg.Tiers, logger),
		metrics:    newMetrics(opts.MetricsRegistry),
		tracer:     otel.Tracer("queryflow/pipeline"),
		logger:     logger.With(zap.String("component", "pipeline")),
	}, nil
}

// ProcessQuery 执行完整管线。期望中的降级（语言歧义、模型不可用、
// 低置信度、无相关结果）都体现在结果字段里，不作为错误返回。
func (e *Engine) ProcessQuery(ctx context.Context, text string) (*Response, error) {
	ctx, span := e.tracer.Start(ctx, "pipeline.process_query")
	defer span.End()

	start := time.Now()

	lang := e.detector.Detect(text)
	e.metrics.observeStage("detect", start)

	stageStart := time.Now()
	normalized := e.normalizer.Normalize(text, lang)
	tokens := strings.Fields(normalized)
	e.metrics.observeStage("normalize", stageStart)

	// 实体抽取走原始文本，归一化不得破坏代码/邮箱/数字
	stageStart = time.Now()
	entities := e.extractor.Extract(text)
	e.metrics.observeStage("extract", stageStart)

	stageStart = time.Now()
	result := e.classifier.Classify(ctx, normalized, lang)
	e.metrics.observeStage("classify", stageStart)

	stageStart = time.Now()
	domain := e.registry.Route(result.Intent, entities, normalized)
	bundle, err := e.registry.BuildContext(ctx, domain, result.Intent, normalized)
	e.metrics.observeStage("retrieve", stageStart)
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}
	if len(bundle.Documents) == 0 && len(bundle.PriorityMatched) == 0 {
		e.metrics.noMatchTotal.Inc()
	}

	resp := &Response{
		ID:              uuid.NewString(),
		Language:        lang,
		Normalized:      normalized,
		Tokens:          tokens,
		Entities:        entities,
		Intent:          result.Intent,
		Confidence:      result.Confidence,
		Level:           types.LevelFor(result.Confidence),
		Domain:          bundle.Domain,
		Documents:       bundle.Documents,
		PriorityMatched: bundle.PriorityMatched,
		Timestamp:       time.Now(),
	}
	if len(bundle.Documents) > 0 && bundle.Documents[0].Tier == types.TierStructured {
		resp.Answer = bundle.Documents[0].Entry.Answer
	}

	span.SetAttributes(
		attribute.String("query.language", string(lang)),
		attribute.String("query.intent", resp.Intent),
		attribute.Float64("query.confidence", resp.Confidence),
		attribute.String("query.domain", resp.Domain),
		attribute.Int("query.documents", len(resp.Documents)),
	)
	e.metrics.observeQuery(string(lang), resp.Intent, resp.Domain)

	e.logger.Debug("query processed",
		zap.String("id", resp.ID),
		zap.String("language", string(lang)),
		zap.String("intent", resp.Intent),
		zap.Float64("confidence", resp.Confidence),
		zap.String("domain", resp.Domain),
		zap.Duration("took", time.Since(start)))
	return resp, nil
}

// ProcessBatch 并发处理一批查询，结果顺序与输入一致
func (e *Engine) ProcessBatch(ctx context.Context, texts []string) ([]*Response, error) {
	responses := make([]*Response, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, text := range texts {
		g.Go(func() error {
			resp, err := e.ProcessQuery(gctx, text)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

// Refresh 重载意图表与知识资产，整表/整快照交换后失效缓存
func (e *Engine) Refresh(ctx context.Context) error {
	if e.cfg.IntentAssetPath != "" {
		if err := e.classifier.Reload(intent.LoadTable(e.cfg.IntentAssetPath, e.logger)); err != nil {
			return err
		}
	}
	if e.cfg.KnowledgeAssetPath != "" {
		return e.retriever.Refresh(ctx)
	}
	return e.retriever.RebuildAndInvalidate(ctx)
}

// Store 暴露事实库（程序化快照替换场景）
func (e *Engine) Store() *knowledge.Store {
	return e.store
}
