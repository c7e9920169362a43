// =============================================================================
// 📦 QueryFlow 配置结构
// =============================================================================
// 查询理解与分层检索引擎的完整配置。调优常量（分数阶梯、权重加成、
// 归一化分母）全部以命名字段暴露，分类算法本身不持有任何魔法数字。
// =============================================================================
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/queryflow/types"
)

// Config 是 QueryFlow 的完整配置结构
type Config struct {
	// DefaultLanguage 检测无信号时的回退语言
	DefaultLanguage string `yaml:"default_language" env:"DEFAULT_LANGUAGE"`

	// IntentAssetPath 意图模式表资产路径（YAML，可热重载）
	IntentAssetPath string `yaml:"intent_asset_path" env:"INTENT_ASSET_PATH"`

	// KnowledgeAssetPath 知识库资产路径（YAML，可热重载）
	KnowledgeAssetPath string `yaml:"knowledge_asset_path" env:"KNOWLEDGE_ASSET_PATH"`

	// Detector 语言检测配置
	Detector DetectorConfig `yaml:"detector" env:"DETECTOR"`

	// Scoring 意图分类调优常量
	Scoring ScoringConfig `yaml:"scoring" env:"SCORING"`

	// Model 推理后端配置
	Model ModelConfig `yaml:"model" env:"MODEL"`

	// Tiers 检索瀑布阈值配置
	Tiers TierConfig `yaml:"tiers" env:"TIERS"`

	// Cache 检索结果缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Redis 可选的二级缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
}

// DetectorConfig 语言检测配置
type DetectorConfig struct {
	// 记忆缓存最大条目数
	CacheSize int `yaml:"cache_size" env:"CACHE_SIZE"`
	// 独有关键词权重
	UniqueWeight float64 `yaml:"unique_weight" env:"UNIQUE_WEIGHT"`
	// 跨语言共享关键词权重
	SharedWeight float64 `yaml:"shared_weight" env:"SHARED_WEIGHT"`
	// 强指示词的加法加成
	StrongBoost float64 `yaml:"strong_boost" env:"STRONG_BOOST"`
	// 三元组回退检测的最低置信度
	TrigramThreshold float64 `yaml:"trigram_threshold" env:"TRIGRAM_THRESHOLD"`
}

// ScoringConfig 意图分类调优常量。
// 具体数值为经验校准结果，应通过标注验证集重新校准，而不是当作定值。
type ScoringConfig struct {
	// 优先短语命中的固定置信度
	PriorityConfidence float64 `yaml:"priority_confidence" env:"PRIORITY_CONFIDENCE"`
	// 模型结果的接受阈值
	ModelThreshold float64 `yaml:"model_threshold" env:"MODEL_THRESHOLD"`
	// 精确词命中加成
	ExactBonus int `yaml:"exact_bonus" env:"EXACT_BONUS"`
	// 多词短语命中加成
	PhraseBonus int `yaml:"phrase_bonus" env:"PHRASE_BONUS"`
	// 短查询的 token 数上限（≤ 此值走分数阶梯）
	ShortQueryTokens int `yaml:"short_query_tokens" env:"SHORT_QUERY_TOKENS"`
	// 短查询分数阶梯（降序检查，score ≥ Score 时取 Confidence）
	ShortLadder []LadderStep `yaml:"short_ladder" env:"-"`
	// 短查询无阶梯命中时的基础置信度
	ShortBase float64 `yaml:"short_base" env:"SHORT_BASE"`
	// 置信度上限
	Cap float64 `yaml:"cap" env:"CAP"`
	// 长查询多关键词佐证的乘法加成
	MultiKeywordBoost float64 `yaml:"multi_keyword_boost" env:"MULTI_KEYWORD_BOOST"`
	// 置信度下限阶梯（降序检查，score ≥ Score 时保底 Confidence）
	Floors []LadderStep `yaml:"floors" env:"-"`
	// 零匹配时的回退意图
	FallbackIntent string `yaml:"fallback_intent" env:"FALLBACK_INTENT"`
	// 回退意图的置信度
	FallbackConfidence float64 `yaml:"fallback_confidence" env:"FALLBACK_CONFIDENCE"`
	// 按语言覆盖的回退置信度（如 zh 更低）
	FallbackByLanguage map[string]float64 `yaml:"fallback_by_language" env:"-"`
	// 加权结果直接胜出的置信度线
	WeightedWinsAt float64 `yaml:"weighted_wins_at" env:"WEIGHTED_WINS_AT"`
	// 加权结果需领先模型结果的边际
	WeightedMargin float64 `yaml:"weighted_margin" env:"WEIGHTED_MARGIN"`
	// 模型结果允许落后加权结果的边际
	ModelMargin float64 `yaml:"model_margin" env:"MODEL_MARGIN"`
}

// LadderStep 阶梯档位：score ≥ Score 时对应 Confidence
type LadderStep struct {
	Score      int     `yaml:"score"`
	Confidence float64 `yaml:"confidence"`
}

// ModelConfig 推理后端配置
type ModelConfig struct {
	// 单次推理超时，超时降级到确定性回退
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每秒允许的推理调用数
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 突发容量
	RateBurst int `yaml:"rate_burst" env:"RATE_BURST"`
}

// TierConfig 检索瀑布阈值配置
type TierConfig struct {
	// 语义层最低相似度
	SemanticThreshold float64 `yaml:"semantic_threshold" env:"SEMANTIC_THRESHOLD"`
	// 词法层最低相似度
	LexicalThreshold float64 `yaml:"lexical_threshold" env:"LEXICAL_THRESHOLD"`
	// 每层返回的候选数上限
	TopK int `yaml:"top_k" env:"TOP_K"`
	// FAQ 文档进入上下文包的最低分
	MinFAQScore float64 `yaml:"min_faq_score" env:"MIN_FAQ_SCORE"`
}

// CacheConfig 检索结果缓存配置
type CacheConfig struct {
	// 本地 LRU 最大条目数
	MaxSize int `yaml:"max_size" env:"MAX_SIZE"`
	// 本地条目 TTL
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// 参与缓存键的归一化文本前缀长度
	KeyPrefixLen int `yaml:"key_prefix_len" env:"KEY_PREFIX_LEN"`
}

// RedisConfig 可选的二级缓存配置
type RedisConfig struct {
	// 是否启用 Redis 层
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// Redis 条目 TTL
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// DefaultConfig 返回内置默认配置
func DefaultConfig() *Config {
	return &Config{
		DefaultLanguage: string(types.DefaultLanguage),
		Detector: DetectorConfig{
			CacheSize:        1000,
			UniqueWeight:     2,
			SharedWeight:     1,
			StrongBoost:      3,
			TrigramThreshold: 0.6,
		},
		Scoring: ScoringConfig{
			PriorityConfidence: 0.9,
			ModelThreshold:     0.4,
			ExactBonus:         1,
			PhraseBonus:        1,
			ShortQueryTokens:   2,
			ShortLadder: []LadderStep{
				{Score: 8, Confidence: 0.85},
				{Score: 6, Confidence: 0.75},
				{Score: 5, Confidence: 0.70},
				{Score: 4, Confidence: 0.65},
				{Score: 3, Confidence: 0.60},
			},
			ShortBase:         0.50,
			Cap:               0.9,
			MultiKeywordBoost: 1.4,
			Floors: []LadderStep{
				{Score: 6, Confidence: 0.8},
				{Score: 4, Confidence: 0.7},
				{Score: 2, Confidence: 0.6},
				{Score: 1, Confidence: 0.5},
			},
			FallbackIntent:     "about_faculty",
			FallbackConfidence: 0.3,
			FallbackByLanguage: map[string]float64{
				string(types.LangChinese): 0.2,
			},
			WeightedWinsAt: 0.8,
			WeightedMargin: 0.2,
			ModelMargin:    0.1,
		},
		Model: ModelConfig{
			Timeout:   2 * time.Second,
			RateLimit: 10,
			RateBurst: 5,
		},
		Tiers: TierConfig{
			SemanticThreshold: 0.3,
			LexicalThreshold:  0.15,
			TopK:              3,
			MinFAQScore:       0.1,
		},
		Cache: CacheConfig{
			MaxSize:      2000,
			TTL:          30 * time.Minute,
			KeyPrefixLen: 200,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     time.Hour,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if !types.Language(c.DefaultLanguage).Valid() {
		errs = append(errs, fmt.Sprintf("unsupported default language %q", c.DefaultLanguage))
	}
	if c.Scoring.PriorityConfidence <= 0 || c.Scoring.PriorityConfidence > 1 {
		errs = append(errs, "priority_confidence must be in (0,1]")
	}
	if c.Scoring.Cap <= 0 || c.Scoring.Cap > 1 {
		errs = append(errs, "cap must be in (0,1]")
	}
	if c.Scoring.FallbackIntent == "" {
		errs = append(errs, "fallback_intent must not be empty")
	}
	if c.Tiers.SemanticThreshold < 0 || c.Tiers.SemanticThreshold > 1 {
		errs = append(errs, "semantic_threshold must be in [0,1]")
	}
	if c.Tiers.LexicalThreshold < 0 || c.Tiers.LexicalThreshold > 1 {
		errs = append(errs, "lexical_threshold must be in [0,1]")
	}
	if c.Cache.MaxSize <= 0 {
		errs = append(errs, "cache max_size must be positive")
	}
	if c.Model.Timeout <= 0 {
		errs = append(errs, "model timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// FallbackConfidenceFor 返回指定语言的回退置信度
func (s *ScoringConfig) FallbackConfidenceFor(lang types.Language) float64 {
	if v, ok := s.FallbackByLanguage[string(lang)]; ok {
		return v
	}
	return s.FallbackConfidence
}
