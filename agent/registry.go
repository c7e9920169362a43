// Package agent 实现检索域（agent）的选择与上下文装配。
//
// 域选择有固定优先级：目录关键词/人名等高精度显式信号永远压过
// 分类出的意图；其次静态意图→域映射；最后默认 FAQ 域。
package agent

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/knowledge"
	"github.com/BaSui01/queryflow/types"

	"go.uber.org/zap"
)

// 检索域
const (
	DomainFAQ      = "faq"
	DomainSchedule = "schedule"
	DomainStaff    = "staff"
)

// Agent 一个命名检索域
type Agent struct {
	Name string
	// DefaultIntent 域内检索使用的兜底意图，空表示沿用分类结果
	DefaultIntent string
	// Intents 映射到该域的意图集合
	Intents []string
	// Sections 该域可见的事实库区段
	Sections []string
}

// directoryKeywords 触发人员目录域覆盖的显式信号。
// 短词要求词边界，避免部分词误命中。
var directoryKeywords = []string{
	"contact", "email", "phone", "professor", "lecturer", "dean",
	"dekan", "pensyarah", "hubungi", "administration", "chancellor",
	"who can i", "speak to", "talk to",
}

// Registry agent 注册表。注册内容在构造时固定，之后只读。
type Registry struct {
	agents        map[string]Agent
	intentToAgent map[string]string
	keywordRes    []*regexp.Regexp

	store       *knowledge.Store
	retriever   *knowledge.Retriever
	minFAQScore float64
	logger      *zap.Logger
}

// NewRegistry 创建注册表并注册内置的 faq/schedule/staff 三个域
func NewRegistry(store *knowledge.Store, retriever *knowledge.Retriever, tiers config.TierConfig, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		agents:        make(map[string]Agent),
		intentToAgent: make(map[string]string),
		store:         store,
		retriever:     retriever,
		minFAQScore:   tiers.MinFAQScore,
		logger:        logger.With(zap.String("component", "agent_registry")),
	}

	for _, kw := range directoryKeywords {
		if strings.Contains(kw, " ") {
			continue // 多词信号用子串匹配
		}
		r.keywordRes = append(r.keywordRes, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
	}

	r.register(Agent{
		Name: DomainFAQ,
		Intents: []string{
			"greeting", "farewell", "thanks", "about_faculty",
			"program_info", "admission", "fees", "facility_info",
			"research_info",
		},
		Sections: []string{"faculty_info", "programmes", "admission", "faqs"},
	})
	r.register(Agent{
		Name:          DomainSchedule,
		DefaultIntent: "academic_schedule",
		Intents:       []string{"academic_schedule"},
		Sections:      []string{"schedule"},
	})
	r.register(Agent{
		Name:          DomainStaff,
		DefaultIntent: "staff_contact",
		Intents:       []string{"staff_contact"},
		Sections:      []string{"top_management", "staff_contacts"},
	})

	return r
}

func (r *Registry) register(a Agent) {
	r.agents[a.Name] = a
	for _, intent := range a.Intents {
		r.intentToAgent[intent] = a.Name
	}
}

// Agents 返回已注册的域名列表
func (r *Registry) Agents() []string {
	out := make([]string, 0, len(r.agents))
	for name := range r.agents {
		out = append(out, name)
	}
	return out
}

// Route 选择检索域。
// 顺序：显式目录信号 → 意图→域映射 → 默认 FAQ 域。
func (r *Registry) Route(intent string, _ types.Entities, queryText string) string {
	if r.staffSignal(queryText) {
		r.logger.Debug("directory signal overrides intent",
			zap.String("intent", intent))
		return DomainStaff
	}
	if domain, ok := r.intentToAgent[intent]; ok {
		return domain
	}
	return DomainFAQ
}

// staffSignal 目录关键词或目录内人名出现即触发
func (r *Registry) staffSignal(queryText string) bool {
	lower := strings.ToLower(queryText)

	for _, re := range r.keywordRes {
		if re.MatchString(lower) {
			return true
		}
	}
	for _, kw := range directoryKeywords {
		if strings.Contains(kw, " ") && strings.Contains(lower, kw) {
			return true
		}
	}
	return len(knowledge.MatchDirectory(r.store.Current(), queryText)) > 0
}

// BuildContext 为选定的域装配排名上下文包。
// 目录信号指认到的人员进入 PriorityMatched，必须先于文档呈现。
func (r *Registry) BuildContext(ctx context.Context, domain, intent, queryText string) (*types.AgentContext, error) {
	a, ok := r.agents[domain]
	if !ok {
		a = r.agents[DomainFAQ]
	}

	retrieveIntent := intent
	if a.DefaultIntent != "" && r.intentToAgent[intent] != a.Name {
		retrieveIntent = a.DefaultIntent
	}

	docs, err := r.retriever.Retrieve(ctx, retrieveIntent, queryText)
	if err != nil && !errors.Is(err, knowledge.ErrNoRelevantMatch) {
		return nil, err
	}
	docs = r.filterLowScore(docs)

	// 费用类查询无文档时回退到费用类目的 FAQ 条目
	if len(docs) == 0 && retrieveIntent == "fees" {
		docs = r.feeFallback()
	}

	out := &types.AgentContext{
		Domain:      a.Name,
		Documents:   docs,
		Sections:    r.scopedSections(a),
		AssembledAt: time.Now(),
	}

	if a.Name == DomainStaff {
		for _, p := range knowledge.MatchDirectory(r.store.Current(), queryText) {
			out.PriorityMatched = append(out.PriorityMatched, types.KnowledgeEntry{
				ID:       "person:" + strings.ToLower(strings.ReplaceAll(p.Name, " ", "-")),
				Question: p.Name,
				Answer:   p.ContactCard(),
				Category: "staff_contact",
			})
		}
	}

	r.logger.Debug("agent context assembled",
		zap.String("domain", a.Name),
		zap.Int("documents", len(out.Documents)),
		zap.Int("priority_matched", len(out.PriorityMatched)))
	return out, nil
}

// filterLowScore 过滤低于 MinFAQScore 的文档
func (r *Registry) filterLowScore(docs []types.RankedDocument) []types.RankedDocument {
	out := docs[:0]
	for _, d := range docs {
		if d.Score >= r.minFAQScore {
			out = append(out, d)
		}
	}
	return out
}

// feeFallback 费用类目的 FAQ 条目作为最低分文档返回
func (r *Registry) feeFallback() []types.RankedDocument {
	var out []types.RankedDocument
	for _, e := range r.store.Current().FAQs {
		if e.Category != "fees" {
			continue
		}
		out = append(out, types.RankedDocument{
			Entry: e,
			Score: r.minFAQScore,
			Tier:  types.TierLexical,
		})
	}
	return out
}

// scopedSections 按域裁剪事实库区段
func (r *Registry) scopedSections(a Agent) map[string]any {
	snap := r.store.Current()
	all := map[string]any{
		"faculty_info":   snap.FacultyInfo,
		"programmes":     snap.Programmes,
		"admission":      snap.Admission,
		"faqs":           snap.FAQs,
		"schedule":       snap.Schedule,
		"top_management": snap.TopManagement,
		"staff_contacts": snap.StaffContacts,
	}

	out := make(map[string]any, len(a.Sections))
	for _, name := range a.Sections {
		if v, ok := all[name]; ok {
			out[name] = v
		}
	}
	return out
}
