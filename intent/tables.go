// Package intent 实现混合意图分类器。
//
// 三个有序阶段：优先短语直通、可选的模型推理、加权关键词回退。
// 分类算法对模式表是泛化的，新增语言或意图只需要改表资产，
// 不需要改分类逻辑。
package intent

import (
	"fmt"
	"os"

	"github.com/BaSui01/queryflow/types"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Keyword 带权关键词。专有关键词权重 4，普通 2，歧义 1。
type Keyword struct {
	Term   string `yaml:"term"`
	Weight int    `yaml:"weight"`
}

// Category 意图类别：稳定 id、按语言的描述、带权关键词表、
// 以及可选的优先短语（命中即短路加权评分）。
type Category struct {
	ID              string                    `yaml:"id"`
	Descriptions    map[types.Language]string `yaml:"descriptions,omitempty"`
	Keywords        []Keyword                 `yaml:"keywords"`
	PriorityPhrases []string                  `yaml:"priority_phrases,omitempty"`
}

// Table 完整意图模式表。加载后不可变，重载通过原子指针交换。
type Table struct {
	Categories []Category `yaml:"categories"`
	Fallback   string     `yaml:"fallback"`
}

// MaxScore 该类别的理论最高原始分（全部关键词命中且为专有权重）
func (c *Category) MaxScore() int {
	total := 0
	for _, k := range c.Keywords {
		total += k.Weight
	}
	if total == 0 {
		return 1
	}
	return total
}

// LoadTable 从 YAML 资产加载意图表。资产缺失或损坏时回退到内置
// 默认表并告警，降级运行而不是启动失败。
func LoadTable(path string, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return DefaultTable()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("intent asset unreadable, using built-in defaults",
			zap.String("path", path), zap.Error(err))
		return DefaultTable()
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		logger.Warn("intent asset corrupt, using built-in defaults",
			zap.String("path", path), zap.Error(err))
		return DefaultTable()
	}
	if err := t.Validate(); err != nil {
		logger.Warn("intent asset invalid, using built-in defaults",
			zap.String("path", path), zap.Error(err))
		return DefaultTable()
	}

	logger.Info("intent table loaded",
		zap.String("path", path),
		zap.Int("categories", len(t.Categories)))
	return &t
}

// Validate 校验意图表
func (t *Table) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("intent table has no categories")
	}
	seen := make(map[string]struct{}, len(t.Categories))
	for _, c := range t.Categories {
		if c.ID == "" {
			return fmt.Errorf("category with empty id")
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate category id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	if t.Fallback != "" {
		if _, ok := seen[t.Fallback]; !ok {
			return fmt.Errorf("fallback intent %q not in table", t.Fallback)
		}
	}
	return nil
}

// Category 按 id 查找类别
func (t *Table) Category(id string) (*Category, bool) {
	for i := range t.Categories {
		if t.Categories[i].ID == id {
			return &t.Categories[i], true
		}
	}
	return nil, false
}

// Labels 返回模型推理用的 id → 描述映射
func (t *Table) Labels(lang types.Language) map[string]string {
	out := make(map[string]string, len(t.Categories))
	for _, c := range t.Categories {
		desc := c.Descriptions[lang]
		if desc == "" {
			desc = c.Descriptions[types.DefaultLanguage]
		}
		if desc == "" {
			desc = c.ID
		}
		out[c.ID] = desc
	}
	return out
}

// DefaultTable 内置默认意图表
func DefaultTable() *Table {
	return &Table{
		Fallback: "about_faculty",
		Categories: []Category{
			{
				ID: "greeting",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "greeting or opening the conversation",
					types.LangMalay:   "sapaan atau memulakan perbualan",
					types.LangChinese: "问候或开始对话",
				},
				Keywords: []Keyword{
					{Term: "hello", Weight: 4}, {Term: "hi", Weight: 4},
					{Term: "hey", Weight: 4}, {Term: "good morning", Weight: 4},
					{Term: "good afternoon", Weight: 4}, {Term: "good evening", Weight: 4},
					{Term: "assalamualaikum", Weight: 4}, {Term: "salam", Weight: 2},
					{Term: "apa khabar", Weight: 4}, {Term: "你好", Weight: 4},
					{Term: "您好", Weight: 4},
				},
			},
			{
				ID: "farewell",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "ending the conversation or saying goodbye",
				},
				Keywords: []Keyword{
					{Term: "bye", Weight: 4}, {Term: "goodbye", Weight: 4},
					{Term: "see you", Weight: 4}, {Term: "selamat tinggal", Weight: 4},
					{Term: "再见", Weight: 4},
				},
			},
			{
				ID: "thanks",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "thanking for the help",
				},
				Keywords: []Keyword{
					{Term: "thanks", Weight: 4}, {Term: "thank you", Weight: 4},
					{Term: "terima kasih", Weight: 4}, {Term: "谢谢", Weight: 4},
				},
			},
			{
				ID: "about_faculty",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "general information about the faculty",
					types.LangMalay:   "maklumat umum tentang fakulti",
					types.LangChinese: "关于学院的一般信息",
				},
				Keywords: []Keyword{
					{Term: "faculty", Weight: 2}, {Term: "about", Weight: 1},
					{Term: "vision", Weight: 4}, {Term: "mission", Weight: 4},
					{Term: "history", Weight: 2}, {Term: "overview", Weight: 2},
					{Term: "fakulti", Weight: 2}, {Term: "visi", Weight: 4},
					{Term: "misi", Weight: 4}, {Term: "学院", Weight: 2},
				},
				PriorityPhrases: []string{
					"about the faculty", "tell me about the faculty",
					"what is the faculty", "tentang fakulti",
				},
			},
			{
				ID: "program_info",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "asking about degree programs and courses offered",
					types.LangMalay:   "bertanya tentang program dan kursus yang ditawarkan",
					types.LangChinese: "询问提供的课程与学位项目",
				},
				Keywords: []Keyword{
					{Term: "program", Weight: 4}, {Term: "programs", Weight: 4},
					{Term: "programme", Weight: 4}, {Term: "programmes", Weight: 4},
					{Term: "course", Weight: 2}, {Term: "courses", Weight: 2},
					{Term: "degree", Weight: 4}, {Term: "bachelor", Weight: 4},
					{Term: "master", Weight: 2}, {Term: "study", Weight: 1},
					{Term: "kursus", Weight: 4}, {Term: "ijazah", Weight: 4},
					{Term: "pengajian", Weight: 2}, {Term: "课程", Weight: 4},
					{Term: "专业", Weight: 4},
				},
				PriorityPhrases: []string{
					"what programs", "what courses", "programs offered",
					"courses offered", "what degrees", "program apa",
					"kursus apa", "有哪些课程",
				},
			},
			{
				ID: "staff_contact",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "finding or contacting a staff member or lecturer",
					types.LangMalay:   "mencari atau menghubungi staf atau pensyarah",
					types.LangChinese: "查找或联系教职员工",
				},
				Keywords: []Keyword{
					{Term: "contact", Weight: 4}, {Term: "email", Weight: 2},
					{Term: "phone", Weight: 2}, {Term: "lecturer", Weight: 4},
					{Term: "professor", Weight: 4}, {Term: "dean", Weight: 4},
					{Term: "staff", Weight: 4}, {Term: "chancellor", Weight: 4},
					{Term: "pensyarah", Weight: 4}, {Term: "hubungi", Weight: 4},
					{Term: "dekan", Weight: 4}, {Term: "联系", Weight: 4},
					{Term: "老师", Weight: 2},
				},
				PriorityPhrases: []string{
					"who is the dean", "who can i contact", "contact number",
					"vice chancellor", "siapa dekan",
				},
			},
			{
				ID: "academic_schedule",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "academic calendar, semester dates and timetables",
					types.LangMalay:   "kalendar akademik, tarikh semester dan jadual",
					types.LangChinese: "学期时间与课程表",
				},
				Keywords: []Keyword{
					{Term: "schedule", Weight: 4}, {Term: "timetable", Weight: 4},
					{Term: "calendar", Weight: 4}, {Term: "semester", Weight: 2},
					{Term: "exam", Weight: 2}, {Term: "registration date", Weight: 4},
					{Term: "jadual", Weight: 4}, {Term: "kalendar", Weight: 4},
					{Term: "peperiksaan", Weight: 2}, {Term: "时间表", Weight: 4},
				},
				PriorityPhrases: []string{
					"academic calendar", "exam schedule", "when does the semester",
					"jadual akademik",
				},
			},
			{
				ID: "admission",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "admission requirements and how to apply",
					types.LangMalay:   "syarat kemasukan dan cara memohon",
					types.LangChinese: "入学要求与申请方式",
				},
				Keywords: []Keyword{
					{Term: "admission", Weight: 4}, {Term: "apply", Weight: 4},
					{Term: "application", Weight: 4}, {Term: "requirement", Weight: 2},
					{Term: "requirements", Weight: 2}, {Term: "entry", Weight: 1},
					{Term: "enroll", Weight: 4}, {Term: "intake", Weight: 4},
					{Term: "kemasukan", Weight: 4}, {Term: "mohon", Weight: 4},
					{Term: "syarat", Weight: 2}, {Term: "daftar", Weight: 2},
					{Term: "报名", Weight: 4}, {Term: "申请", Weight: 4},
				},
				PriorityPhrases: []string{
					"how to apply", "how do i apply", "admission requirements",
					"macam mana nak mohon", "怎么报名",
				},
			},
			{
				ID: "fees",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "tuition fees and study costs",
					types.LangMalay:   "yuran pengajian dan kos",
					types.LangChinese: "学费与费用",
				},
				Keywords: []Keyword{
					{Term: "fee", Weight: 4}, {Term: "fees", Weight: 4},
					{Term: "tuition", Weight: 4}, {Term: "cost", Weight: 2},
					{Term: "price", Weight: 2}, {Term: "payment", Weight: 2},
					{Term: "scholarship", Weight: 2}, {Term: "yuran", Weight: 4},
					{Term: "bayaran", Weight: 2}, {Term: "biasiswa", Weight: 2},
					{Term: "学费", Weight: 4}, {Term: "费用", Weight: 4},
				},
				PriorityPhrases: []string{
					"how much are the fees", "how much is the tuition",
					"berapa yuran", "berapakah yuran", "学费多少",
				},
			},
			{
				ID: "facility_info",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "labs, library and campus facilities",
					types.LangMalay:   "makmal, perpustakaan dan kemudahan kampus",
					types.LangChinese: "实验室与校园设施",
				},
				Keywords: []Keyword{
					{Term: "facility", Weight: 4}, {Term: "facilities", Weight: 4},
					{Term: "lab", Weight: 4}, {Term: "laboratory", Weight: 4},
					{Term: "library", Weight: 4}, {Term: "wifi", Weight: 2},
					{Term: "hostel", Weight: 2}, {Term: "makmal", Weight: 4},
					{Term: "perpustakaan", Weight: 4}, {Term: "kemudahan", Weight: 4},
					{Term: "实验室", Weight: 4}, {Term: "图书馆", Weight: 4},
				},
				PriorityPhrases: []string{
					"what facilities", "computer lab", "kemudahan apa",
				},
			},
			{
				ID: "research_info",
				Descriptions: map[types.Language]string{
					types.LangEnglish: "research areas, groups and publications",
					types.LangMalay:   "bidang penyelidikan dan penerbitan",
					types.LangChinese: "研究方向与成果",
				},
				Keywords: []Keyword{
					{Term: "research", Weight: 4}, {Term: "publication", Weight: 4},
					{Term: "grant", Weight: 2}, {Term: "phd", Weight: 2},
					{Term: "postgraduate", Weight: 2}, {Term: "penyelidikan", Weight: 4},
					{Term: "penerbitan", Weight: 4}, {Term: "研究", Weight: 4},
				},
				PriorityPhrases: []string{
					"research areas", "research groups", "bidang penyelidikan",
				},
			},
		},
	}
}
