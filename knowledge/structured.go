package knowledge

import (
	"fmt"
	"regexp"
	"strings"
)

// Handler 单个意图的结构化答案生成器。
// 只从快照取事实，绝不编造快照之外的实体；无匹配返回 false，
// 这是预期结果而不是错误。
type Handler func(snap *Snapshot, query string) (string, bool)

// defaultHandlers 按意图注册的结构化处理器
func defaultHandlers() map[string]Handler {
	return map[string]Handler{
		"greeting":          handleGreeting,
		"farewell":          handleFarewell,
		"thanks":            handleThanks,
		"about_faculty":     handleAboutFaculty,
		"program_info":      handleProgrammes,
		"staff_contact":     handleStaffContact,
		"academic_schedule": handleSchedule,
		"admission":         handleAdmission,
		"fees":              handleFees,
		"facility_info":     handleFacilities,
		"research_info":     handleResearch,
	}
}

func handleGreeting(_ *Snapshot, _ string) (string, bool) {
	return "Hello! Ask me about programmes, admission, fees, schedules or staff contacts.", true
}

func handleFarewell(_ *Snapshot, _ string) (string, bool) {
	return "Goodbye! Feel free to come back if you have more questions.", true
}

func handleThanks(_ *Snapshot, _ string) (string, bool) {
	return "You're welcome!", true
}

func handleAboutFaculty(snap *Snapshot, _ string) (string, bool) {
	name := snap.FacultyInfo["name"]
	desc := snap.FacultyInfo["description"]
	if name == "" && desc == "" {
		return "", false
	}

	var b strings.Builder
	if name != "" {
		b.WriteString(name)
	}
	if desc != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(desc)
	}
	if v := snap.VisionMission["vision"]; v != "" {
		b.WriteString(" Vision: " + v)
	}
	if m := snap.VisionMission["mission"]; m != "" {
		b.WriteString(" Mission: " + m)
	}
	return b.String(), true
}

func handleProgrammes(snap *Snapshot, query string) (string, bool) {
	if len(snap.Programmes) == 0 {
		return "", false
	}
	lower := strings.ToLower(query)

	// 点名某个项目时只答该项目
	for _, p := range snap.Programmes {
		if containsWord(lower, strings.ToLower(p.Code)) ||
			(p.Name != "" && strings.Contains(lower, strings.ToLower(p.Name))) {
			return fmt.Sprintf("%s (%s): %s", p.Name, p.Code, p.Description), true
		}
	}

	names := make([]string, 0, len(snap.Programmes))
	for _, p := range snap.Programmes {
		names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.Code))
	}
	return "Programmes offered: " + strings.Join(names, "; ") + ".", true
}

// handleStaffContact 白名单姓名/称谓匹配。只认识快照目录里的人，
// 查询点到目录之外的名字时返回 false 而不是编造联系方式。
func handleStaffContact(snap *Snapshot, query string) (string, bool) {
	matched := MatchDirectory(snap, query)
	if len(matched) == 0 {
		return "", false
	}
	return matched[0].ContactCard(), true
}

// MatchDirectory 返回查询点名的目录人员，按目录顺序
func MatchDirectory(snap *Snapshot, query string) []Person {
	lower := strings.ToLower(query)
	var out []Person
	for _, person := range snap.Directory() {
		if personMatches(person, lower) {
			out = append(out, person)
		}
	}
	return out
}

// personMatches 姓名 token 或称谓关键词命中即匹配。
// 过短的关键词（如 "vc"、"nc"）要求词边界，避免部分词误命中。
func personMatches(p Person, lower string) bool {
	for _, part := range strings.Fields(strings.ToLower(p.Name)) {
		// 头衔缩写（dr./prof.）不足以指认具体人员
		if len(part) <= 4 && strings.HasSuffix(part, ".") {
			continue
		}
		if containsWord(lower, strings.TrimSuffix(part, ".")) {
			return true
		}
	}
	for _, kw := range p.Keywords {
		kw = strings.ToLower(kw)
		// 单词称谓一律词边界匹配，否则 "dean" 会在 "deanery" 里误命中
		if !strings.Contains(kw, " ") {
			if containsWord(lower, kw) {
				return true
			}
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ContactCard 目录条目的单行联系卡
func (p Person) ContactCard() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Title != "" {
		b.WriteString(", " + p.Title)
	}
	if p.Email != "" {
		b.WriteString(". Email: " + p.Email)
	}
	if p.Phone != "" {
		b.WriteString(". Phone: " + p.Phone)
	}
	return b.String()
}

func handleSchedule(snap *Snapshot, _ string) (string, bool) {
	if len(snap.Schedule) == 0 {
		return "", false
	}
	items := make([]string, 0, len(snap.Schedule))
	for _, it := range snap.Schedule {
		items = append(items, fmt.Sprintf("%s: %s", it.Name, it.Date))
	}
	return "Academic schedule — " + strings.Join(items, "; ") + ".", true
}

func handleAdmission(snap *Snapshot, _ string) (string, bool) {
	req := snap.Admission["requirements"]
	how := snap.Admission["how_to_apply"]
	if req == "" && how == "" {
		return "", false
	}
	parts := make([]string, 0, 2)
	if req != "" {
		parts = append(parts, "Requirements: "+req)
	}
	if how != "" {
		parts = append(parts, "How to apply: "+how)
	}
	return strings.Join(parts, " "), true
}

func handleFees(snap *Snapshot, _ string) (string, bool) {
	fees := snap.Admission["fees"]
	if fees == "" {
		return "", false
	}
	return fees, true
}

func handleFacilities(snap *Snapshot, query string) (string, bool) {
	if len(snap.Facilities) == 0 {
		return "", false
	}
	lower := strings.ToLower(query)

	for _, f := range snap.Facilities {
		if f.Name != "" && strings.Contains(lower, strings.ToLower(f.Name)) {
			return fmt.Sprintf("%s: %s", f.Name, f.Description), true
		}
	}

	names := make([]string, 0, len(snap.Facilities))
	for _, f := range snap.Facilities {
		names = append(names, f.Name)
	}
	return "Facilities: " + strings.Join(names, "; ") + ".", true
}

func handleResearch(snap *Snapshot, _ string) (string, bool) {
	if len(snap.ResearchFocus) == 0 {
		return "", false
	}
	return "Research focus areas: " + strings.Join(snap.ResearchFocus, "; ") + ".", true
}

// containsWord 词边界子串检查
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
