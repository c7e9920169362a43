// Package entity 从原始文本中抽取结构化 token。
//
// 纯模式匹配，无置信度：某一类实体要么出现要么不出现。
// 抽取必须在原始文本上运行，不能用归一化后的文本，
// 以免代码、邮箱、数字被俚语替换破坏。
package entity

import (
	"regexp"
	"strings"

	"github.com/BaSui01/queryflow/types"

	"go.uber.org/zap"
)

// 实体类别
const (
	KindCourseCode = "course_code"
	KindEmail      = "email"
	KindPhone      = "phone"
	KindDate       = "date"
	KindMoney      = "money"
)

var (
	courseCodeRe = regexp.MustCompile(`\b(?:BAXI|BAXZ|BITZ|BAXS)\s?\d{3,4}\b`)
	emailRe      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	// 马来西亚号码：+60 前缀或本地 0 开头两种写法
	phoneRe = regexp.MustCompile(`(?:\+60[\s-]?\d{1,2}[\s-]?\d{3}[\s-]?\d{4,5}|\b0\d{1,2}-?\d{7,8}\b)`)
	// 日期：d/m/Y 与 Y-m-d 两种格式
	dateRe  = regexp.MustCompile(`\b(?:\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2})\b`)
	moneyRe = regexp.MustCompile(`(?i)\bRM\s?\d{1,3}(?:,\d{3})*(?:\.\d{2})?\b`)
)

// Extractor 实体抽取器
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor 创建实体抽取器
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		logger: logger.With(zap.String("component", "entity_extractor")),
	}
}

// Extract 返回 kind → 值列表的映射，空类别省略
func (e *Extractor) Extract(text string) types.Entities {
	if strings.TrimSpace(text) == "" {
		return types.Entities{}
	}

	out := types.Entities{}
	add := func(kind string, matches []string) {
		if len(matches) == 0 {
			return
		}
		out[kind] = dedupe(matches)
	}

	add(KindCourseCode, courseCodeRe.FindAllString(text, -1))
	add(KindEmail, emailRe.FindAllString(text, -1))
	add(KindPhone, phoneRe.FindAllString(text, -1))
	add(KindDate, dateRe.FindAllString(text, -1))
	add(KindMoney, moneyRe.FindAllString(text, -1))

	if len(out) > 0 {
		e.logger.Debug("entities extracted", zap.Int("kinds", len(out)))
	}
	return out
}

// dedupe 去重并保持首次出现顺序
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
