// Package types provides the shared value types of the query-understanding
// pipeline. It is the lowest-level package with no internal dependencies.
package types

// Language is an ISO 639-1 style code for a supported query language.
type Language string

const (
	LangEnglish Language = "en"
	LangMalay   Language = "ms"
	LangChinese Language = "zh"
	LangArabic  Language = "ar"
)

// DefaultLanguage is the fallback when detection finds no usable signal.
const DefaultLanguage = LangEnglish

// SupportedLanguages lists every language the pipeline understands, in
// detection-preference order.
var SupportedLanguages = []Language{LangEnglish, LangMalay, LangChinese, LangArabic}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, s := range SupportedLanguages {
		if l == s {
			return true
		}
	}
	return false
}

// Logographic reports whether the language has no whitespace word boundaries,
// which switches slang normalization from token-based to substring-based.
func (l Language) Logographic() bool {
	return l == LangChinese
}

// ConfidenceLevel is the categorical bucket derived from a confidence score.
type ConfidenceLevel string

const (
	LevelVeryHigh ConfidenceLevel = "very_high"
	LevelHigh     ConfidenceLevel = "high"
	LevelMedium   ConfidenceLevel = "medium"
	LevelLow      ConfidenceLevel = "low"
	LevelVeryLow  ConfidenceLevel = "very_low"
)

// LevelFor maps a confidence score in [0,1] onto its categorical bucket.
// Cut points: 0.8 / 0.6 / 0.4 / 0.2.
func LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.8:
		return LevelVeryHigh
	case confidence >= 0.6:
		return LevelHigh
	case confidence >= 0.4:
		return LevelMedium
	case confidence >= 0.2:
		return LevelLow
	default:
		return LevelVeryLow
	}
}
