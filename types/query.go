package types

import "time"

// Entities maps an entity kind (course_code, email, phone, date, money) to
// the values found in the raw text. Kinds with no matches are omitted.
type Entities map[string][]string

// Has reports whether at least one value of the given kind was extracted.
func (e Entities) Has(kind string) bool {
	return len(e[kind]) > 0
}

// Query is the per-request unit of work. It is created fresh for each
// inbound utterance and discarded after the response is assembled; nothing
// here is persisted.
type Query struct {
	ID         string          `json:"id"`
	Raw        string          `json:"raw"`
	Language   Language        `json:"language"`
	Normalized string          `json:"normalized"`
	Tokens     []string        `json:"tokens"`
	Entities   Entities        `json:"entities,omitempty"`
	Intent     string          `json:"intent"`
	Confidence float64         `json:"confidence"`
	Level      ConfidenceLevel `json:"confidence_level"`
}

// KnowledgeEntry is a single question/answer record in the knowledge store.
// ViewCount is owned by the external persistence sink and is only ever
// incremented here, never read back into ranking decisions.
type KnowledgeEntry struct {
	ID       string   `json:"id" yaml:"id"`
	Question string   `json:"question" yaml:"question"`
	Answer   string   `json:"answer" yaml:"answer"`
	Category string   `json:"category" yaml:"category"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// RetrievalTier identifies which stage of the waterfall produced a document.
type RetrievalTier string

const (
	TierStructured RetrievalTier = "structured"
	TierSemantic   RetrievalTier = "semantic"
	TierLexical    RetrievalTier = "lexical"
)

// RankedDocument is a knowledge entry with its relevance score in [0,1].
// Result sets are ordered descending by score with a stable sort, so ties
// keep their original insertion order.
type RankedDocument struct {
	Entry KnowledgeEntry `json:"entry"`
	Score float64        `json:"score"`
	Tier  RetrievalTier  `json:"tier"`
}

// AgentContext is the ranked bundle handed to the external answer-synthesis
// step, scoped to the selected retrieval domain. PriorityMatched entries were
// pinned by an explicit entity/keyword signal and must be surfaced before
// Documents.
type AgentContext struct {
	Domain          string           `json:"domain"`
	Documents       []RankedDocument `json:"documents"`
	PriorityMatched []KnowledgeEntry `json:"priority_matched,omitempty"`
	Sections        map[string]any   `json:"sections,omitempty"`
	AssembledAt     time.Time        `json:"assembled_at"`
}
