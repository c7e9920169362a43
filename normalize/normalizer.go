// Package normalize 将非正式缩写和网络简写扩展为规范词。
//
// 空格分词语言逐 token 处理：先查精确词典，再做词边界模式替换
// （含数字谐音替换）。表意文字语言没有空格词界，改用子串替换。
// 归一化满足幂等性：已规范的文本不再命中任何规则。
//
// 实体抽取必须在原始文本上进行，归一化绝不能应用于包含
// 课程代码、邮箱、电话的抽取路径。
package normalize

import (
	"regexp"
	"strings"

	"github.com/BaSui01/queryflow/types"

	"go.uber.org/zap"
)

// patternSub 词边界模式替换规则
type patternSub struct {
	re          *regexp.Regexp
	replacement string
}

// Normalizer 俚语归一化器。替换表在构造时编译，之后只读。
type Normalizer struct {
	exact    map[types.Language]map[string]string
	patterns map[types.Language][]patternSub
	substr   map[types.Language][][2]string
	logger   *zap.Logger
}

// NewNormalizer 创建归一化器
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &Normalizer{
		exact:    exactShortForms(),
		patterns: make(map[types.Language][]patternSub),
		substr:   substringForms(),
		logger:   logger.With(zap.String("component", "slang_normalizer")),
	}

	for lang, rules := range patternShortForms() {
		for _, r := range rules {
			n.patterns[lang] = append(n.patterns[lang], patternSub{
				re:          regexp.MustCompile(`(?i)\b(?:` + r[0] + `)\b`),
				replacement: r[1],
			})
		}
	}

	return n
}

// Normalize 返回归一化后的文本。未知语言原样返回。
func (n *Normalizer) Normalize(text string, lang types.Language) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	if lang.Logographic() {
		return n.normalizeSubstring(text, lang)
	}
	return n.normalizeTokens(text, lang)
}

// normalizeTokens 空格分词语言：逐 token 精确替换，再整句模式替换
func (n *Normalizer) normalizeTokens(text string, lang types.Language) string {
	dict := n.exact[lang]

	tokens := strings.Fields(text)
	changed := false
	for i, tok := range tokens {
		if canonical, ok := dict[strings.ToLower(tok)]; ok {
			tokens[i] = canonical
			changed = true
		}
	}
	out := text
	if changed {
		out = strings.Join(tokens, " ")
	}

	for _, sub := range n.patterns[lang] {
		out = sub.re.ReplaceAllString(out, sub.replacement)
	}

	if out != text {
		n.logger.Debug("short forms expanded",
			zap.String("language", string(lang)))
	}
	return out
}

// normalizeSubstring 表意文字语言：子串替换
func (n *Normalizer) normalizeSubstring(text string, lang types.Language) string {
	out := text
	for _, pair := range n.substr[lang] {
		out = strings.ReplaceAll(out, pair[0], pair[1])
	}
	return out
}
