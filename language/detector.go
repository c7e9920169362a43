// Package language 实现多语言查询的语言检测。
//
// 检测顺序：独有文字区间 → 加权关键词评分 → 区分性短语回退 →
// 三元组统计回退 → 默认语言。任何输入都会得到一个合法的语言码，
// 检测本身永不报错。
package language

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/types"

	"github.com/abadojack/whatlanggo"
	"go.uber.org/zap"
)

// keywordPattern 单个语言关键词及其权重
type keywordPattern struct {
	re     *regexp.Regexp
	weight float64
}

// Detector 语言检测器。模式表在构造时编译，之后只读，
// 可以被任意多个并发请求无锁读取。
type Detector struct {
	defaultLang types.Language
	cfg         config.DetectorConfig

	keywords map[types.Language][]keywordPattern
	strong   map[types.Language][]*regexp.Regexp
	phrases  map[types.Language][]string

	cache  *memoCache
	logger *zap.Logger
}

// NewDetector 创建语言检测器
func NewDetector(cfg config.DetectorConfig, defaultLang types.Language, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !defaultLang.Valid() {
		defaultLang = types.DefaultLanguage
	}

	d := &Detector{
		defaultLang: defaultLang,
		cfg:         cfg,
		keywords:    make(map[types.Language][]keywordPattern),
		strong:      make(map[types.Language][]*regexp.Regexp),
		phrases:     defaultPhrases(),
		cache:       newMemoCache(cfg.CacheSize),
		logger:      logger.With(zap.String("component", "language_detector")),
	}

	for lang, words := range uniqueKeywords() {
		for _, w := range words {
			d.keywords[lang] = append(d.keywords[lang], keywordPattern{
				re:     compileWord(w),
				weight: cfg.UniqueWeight,
			})
		}
	}
	for lang, words := range sharedKeywords() {
		for _, w := range words {
			d.keywords[lang] = append(d.keywords[lang], keywordPattern{
				re:     compileWord(w),
				weight: cfg.SharedWeight,
			})
		}
	}
	for lang, words := range strongIndicators() {
		for _, w := range words {
			d.strong[lang] = append(d.strong[lang], compileWord(w))
		}
	}

	return d
}

// compileWord 编译大小写不敏感的词边界模式
func compileWord(w string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
}

// Detect 返回文本的语言码。空白输入返回默认语言。
func (d *Detector) Detect(text string) types.Language {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return d.defaultLang
	}

	key := memoKey(trimmed)
	if lang, ok := d.cache.get(key); ok {
		return lang
	}

	lang := d.detect(trimmed)
	d.cache.set(key, lang)
	return lang
}

func (d *Detector) detect(text string) types.Language {
	// 1. 独有文字区间是决定性的，最先检查
	if lang, ok := detectScript(text); ok {
		return lang
	}

	lower := strings.ToLower(text)

	// 2. 加权关键词评分 + 强指示词加成
	scores := make(map[types.Language]float64, len(d.keywords))
	for lang, patterns := range d.keywords {
		for _, p := range patterns {
			if p.re.MatchString(lower) {
				scores[lang] += p.weight
			}
		}
	}
	for lang, patterns := range d.strong {
		for _, re := range patterns {
			if re.MatchString(lower) {
				scores[lang] += d.cfg.StrongBoost
			}
		}
	}

	best, bestScore := d.defaultLang, 0.0
	for _, lang := range types.SupportedLanguages {
		if s := scores[lang]; s > bestScore {
			best, bestScore = lang, s
		}
	}
	if bestScore > 0 {
		return best
	}

	// 3. 零分时回退到常见区分性短语
	for lang, phrases := range d.phrases {
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				return lang
			}
		}
	}

	// 4. 三元组统计检测，只接受高置信度的受支持语言
	if lang, ok := d.trigramDetect(text); ok {
		return lang
	}

	d.logger.Debug("language ambiguous, using default",
		zap.String("default", string(d.defaultLang)))
	return d.defaultLang
}

// detectScript 扫描非拉丁独有文字区间
func detectScript(text string) (types.Language, bool) {
	for _, r := range text {
		switch {
		case r >= 0x4E00 && r <= 0x9FFF:
			return types.LangChinese, true
		case r >= 0x0600 && r <= 0x06FF:
			return types.LangArabic, true
		}
	}
	return "", false
}

// trigramLangs 三元组检测的候选白名单
var trigramLangs = map[whatlanggo.Lang]types.Language{
	whatlanggo.Eng: types.LangEnglish,
	whatlanggo.Ind: types.LangMalay, // 马来语与印尼语在三元组层面不可区分
	whatlanggo.Cmn: types.LangChinese,
	whatlanggo.Arb: types.LangArabic,
}

func (d *Detector) trigramDetect(text string) (types.Language, bool) {
	whitelist := make(map[whatlanggo.Lang]bool, len(trigramLangs))
	for l := range trigramLangs {
		whitelist[l] = true
	}

	info := whatlanggo.DetectWithOptions(text, whatlanggo.Options{Whitelist: whitelist})
	lang, ok := trigramLangs[info.Lang]
	if !ok || info.Confidence < d.cfg.TrigramThreshold {
		return "", false
	}

	d.logger.Debug("trigram fallback detection",
		zap.String("language", string(lang)),
		zap.Float64("confidence", info.Confidence))
	return lang, true
}

// memoKey 取前 200 字节的哈希作为缓存键
func memoKey(text string) string {
	if len(text) > 200 {
		text = text[:200]
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}
