package language

import "github.com/BaSui01/queryflow/types"

// uniqueKeywords 只出现在单一语言中的高区分度词
func uniqueKeywords() map[types.Language][]string {
	return map[types.Language][]string{
		types.LangEnglish: {
			"the", "what", "where", "when", "which", "how", "who",
			"does", "offer", "about", "tell", "contact", "fees",
			"programs", "programmes", "courses", "admission",
			"schedule", "facilities", "research", "lecturer",
		},
		types.LangMalay: {
			"apa", "apakah", "bagaimana", "siapa", "bila", "mana",
			"yuran", "berapa", "program", "kursus", "pensyarah",
			"fakulti", "kemasukan", "jadual", "makmal", "tentang",
			"hubungi", "penyelidikan",
		},
	}
}

// sharedKeywords 跨语言共享、区分度较低的词
func sharedKeywords() map[types.Language][]string {
	return map[types.Language][]string{
		types.LangEnglish: {
			"hi", "hello", "ok", "info", "email", "campus",
		},
		types.LangMalay: {
			"di", "ke", "dan", "atau", "untuk", "dengan", "saya",
			"anda", "boleh", "ada", "itu", "ini",
		},
	}
}

// strongIndicators 出现即给额外置信度加成的词
func strongIndicators() map[types.Language][]string {
	return map[types.Language][]string{
		types.LangMalay: {
			"berapakah", "macam mana", "kat mana", "tak", "nak",
			"terima kasih", "selamat pagi", "selamat petang",
		},
		types.LangEnglish: {
			"please", "thanks", "thank you", "good morning",
			"could you", "i want", "i would like",
		},
	}
}

// defaultPhrases 零分回退时检查的常见区分性短语
func defaultPhrases() map[types.Language][]string {
	return map[types.Language][]string{
		types.LangMalay: {
			"apa khabar", "boleh tak", "macam mana nak",
		},
		types.LangEnglish: {
			"how are you", "can you", "i need",
		},
	}
}
