// Package knowledge 实现三层检索瀑布与知识事实库。
//
// 层级固定有序：结构化规则处理器 → 语义向量检索 → 词法 TF-IDF
// 回退。每层有独立的最低相关度阈值，低于阈值的候选被显式拒绝
// 而不是降级接受——宁可返回"无相关结果"也不猜测。
package knowledge

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/BaSui01/queryflow/types"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Person 目录中的已知人员。Keywords 是可指代该人员的称谓
// （如 "dean"、"vc"），用于白名单匹配。
type Person struct {
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Email    string   `yaml:"email,omitempty"`
	Phone    string   `yaml:"phone,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
}

// Programme 开设的学位项目
type Programme struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Level       string `yaml:"level,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Facility 校园设施
type Facility struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// ScheduleItem 学期日程条目
type ScheduleItem struct {
	Name        string `yaml:"name"`
	Date        string `yaml:"date"`
	Description string `yaml:"description,omitempty"`
}

// Snapshot 层次化事实库的一次完整加载。加载后不可变，
// 所有并发读取共享同一快照。
type Snapshot struct {
	FacultyInfo   map[string]string      `yaml:"faculty_info,omitempty"`
	VisionMission map[string]string      `yaml:"vision_mission,omitempty"`
	TopManagement []Person               `yaml:"top_management,omitempty"`
	Programmes    []Programme            `yaml:"programmes,omitempty"`
	Admission     map[string]string      `yaml:"admission,omitempty"`
	Departments   []string               `yaml:"departments,omitempty"`
	Facilities    []Facility             `yaml:"facilities,omitempty"`
	FAQs          []types.KnowledgeEntry `yaml:"faqs,omitempty"`
	ResearchFocus []string               `yaml:"research_focus,omitempty"`
	StaffContacts []Person               `yaml:"staff_contacts,omitempty"`
	Schedule      []ScheduleItem         `yaml:"schedule,omitempty"`
}

// Directory 合并高层管理与普通教职员目录
func (s *Snapshot) Directory() []Person {
	out := make([]Person, 0, len(s.TopManagement)+len(s.StaffContacts))
	out = append(out, s.TopManagement...)
	out = append(out, s.StaffContacts...)
	return out
}

// Entries 返回语义/词法层的候选文档池：FAQ 加上由项目目录
// 派生的问答条目
func (s *Snapshot) Entries() []types.KnowledgeEntry {
	out := make([]types.KnowledgeEntry, 0, len(s.FAQs)+len(s.Programmes))
	out = append(out, s.FAQs...)
	for _, p := range s.Programmes {
		out = append(out, types.KnowledgeEntry{
			ID:       "programme:" + p.Code,
			Question: fmt.Sprintf("What is the %s programme?", p.Name),
			Answer:   fmt.Sprintf("%s (%s): %s", p.Name, p.Code, p.Description),
			Category: "program_info",
			Keywords: []string{strings.ToLower(p.Code), strings.ToLower(p.Name)},
		})
	}
	return out
}

// Store 事实库容器。快照以原子指针持有，Reload 整体交换，
// 在途读取不会观察到半更新状态。
type Store struct {
	path   string
	snap   atomic.Pointer[Snapshot]
	logger *zap.Logger
}

// NewStore 创建事实库。资产缺失或损坏时回退到内置最小快照并
// 告警，降级运行而不是启动失败。
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:   path,
		logger: logger.With(zap.String("component", "knowledge_store")),
	}

	snap, err := loadSnapshot(path)
	if err != nil {
		s.logger.Warn("knowledge asset unavailable, using built-in defaults",
			zap.String("path", path), zap.Error(err))
		snap = DefaultSnapshot()
	} else {
		s.logger.Info("knowledge asset loaded",
			zap.String("path", path),
			zap.Int("faqs", len(snap.FAQs)),
			zap.Int("programmes", len(snap.Programmes)))
	}
	s.snap.Store(snap)
	return s
}

// NewStoreFromSnapshot 直接从内存快照创建（测试与嵌入场景）
func NewStoreFromSnapshot(snap *Snapshot, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if snap == nil {
		snap = DefaultSnapshot()
	}
	s := &Store{logger: logger.With(zap.String("component", "knowledge_store"))}
	s.snap.Store(snap)
	return s
}

// Current 返回当前快照
func (s *Store) Current() *Snapshot {
	return s.snap.Load()
}

// Reload 重新读取资产并原子交换快照
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("store has no asset path")
	}
	snap, err := loadSnapshot(s.path)
	if err != nil {
		return fmt.Errorf("reload knowledge asset: %w", err)
	}
	s.snap.Store(snap)
	s.logger.Info("knowledge snapshot swapped", zap.Int("faqs", len(snap.FAQs)))
	return nil
}

// Swap 直接替换快照（测试与程序化更新）
func (s *Store) Swap(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.snap.Store(snap)
}

func loadSnapshot(path string) (*Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("no asset path configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse knowledge asset: %w", err)
	}
	return &snap, nil
}

// DefaultSnapshot 内置最小事实库，资产缺失时的降级数据
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		FacultyInfo: map[string]string{
			"name":        "Faculty of Artificial Intelligence and Cyber Security",
			"description": "The faculty offers undergraduate and postgraduate programmes in artificial intelligence, software engineering and cyber security.",
			"established": "2010",
		},
		VisionMission: map[string]string{
			"vision":  "To be a leading faculty in intelligent computing and secure systems.",
			"mission": "To produce industry-ready graduates through quality teaching and applied research.",
		},
		TopManagement: []Person{
			{Name: "Prof. Dr. Aminah Rahim", Title: "Dean", Email: "dean@faculty.edu.my", Keywords: []string{"dean", "dekan"}},
			{Name: "Assoc. Prof. Dr. Lim Wei Jian", Title: "Deputy Dean (Academic)", Email: "deputydean@faculty.edu.my", Keywords: []string{"deputy dean", "academic"}},
		},
		Programmes: []Programme{
			{Code: "BITZ", Name: "Bachelor of Computer Science (Software Development)", Level: "undergraduate", Description: "A four-year programme covering software engineering, databases and intelligent systems."},
			{Code: "BAXI", Name: "Bachelor of Computer Science (Artificial Intelligence)", Level: "undergraduate", Description: "A four-year programme covering machine learning, NLP and computer vision."},
			{Code: "BAXS", Name: "Bachelor of Computer Science (Cyber Security)", Level: "undergraduate", Description: "A four-year programme covering network security, cryptography and digital forensics."},
		},
		Admission: map[string]string{
			"requirements": "A pass in STPM or Matriculation with a minimum CGPA of 2.50, or an equivalent diploma.",
			"how_to_apply": "Applications are submitted through the national UPU portal during the intake window.",
			"fees":         "Tuition fees are approximately RM 1,500.00 per semester for local undergraduate students.",
		},
		Departments: []string{
			"Department of Intelligent Computing",
			"Department of Software Engineering",
			"Department of Cyber Security",
		},
		Facilities: []Facility{
			{Name: "AI Laboratory", Description: "GPU workstations for machine learning coursework and research."},
			{Name: "Cyber Range", Description: "An isolated network environment for security exercises."},
			{Name: "Faculty Library", Description: "Reference collection and group study rooms."},
		},
		FAQs: []types.KnowledgeEntry{
			{ID: "faq-fees", Question: "How much are the tuition fees per semester?", Answer: "Tuition fees are approximately RM 1,500.00 per semester for local undergraduate students.", Category: "fees", Keywords: []string{"fees", "tuition", "yuran"}},
			{ID: "faq-apply", Question: "How do I apply for admission?", Answer: "Apply through the national UPU portal during the intake window.", Category: "admission", Keywords: []string{"apply", "admission", "mohon"}},
			{ID: "faq-intake", Question: "When is the next student intake?", Answer: "Intakes open every September and February.", Category: "admission", Keywords: []string{"intake", "when"}},
		},
		ResearchFocus: []string{
			"Natural language processing",
			"Machine learning for cyber defence",
			"Secure software engineering",
		},
		StaffContacts: []Person{
			{Name: "Dr. Nurul Huda", Title: "Senior Lecturer", Email: "nurul@faculty.edu.my", Keywords: []string{"nlp", "lecturer"}},
			{Name: "Dr. Tan Mei Ling", Title: "Senior Lecturer", Email: "meiling@faculty.edu.my", Keywords: []string{"security", "lecturer"}},
		},
		Schedule: []ScheduleItem{
			{Name: "Semester 1 registration", Date: "2026-09-01", Description: "Course registration opens for all undergraduate programmes."},
			{Name: "Mid-semester break", Date: "2026-11-09", Description: "One-week break for all programmes."},
			{Name: "Final examinations", Date: "2027-01-12", Description: "Final examination period begins."},
		},
	}
}
