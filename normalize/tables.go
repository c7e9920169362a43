package normalize

import "github.com/BaSui01/queryflow/types"

// exactShortForms 逐 token 精确匹配的缩写词典。
// 替换结果本身不得再是任何规则的键，否则破坏幂等性。
func exactShortForms() map[types.Language]map[string]string {
	return map[types.Language]map[string]string{
		types.LangEnglish: {
			"u":    "you",
			"ur":   "your",
			"r":    "are",
			"b4":   "before",
			"thx":  "thanks",
			"pls":  "please",
			"plz":  "please",
			"abt":  "about",
			"info": "information",
			"uni":  "university",
			"prof": "professor",
			"vc":   "vice chancellor",
			"nc":   "chancellor",
			"asap": "as soon as possible",
			"wanna": "want to",
			"gonna": "going to",
		},
		types.LangMalay: {
			"yg":   "yang",
			"x":    "tidak",
			"tk":   "tidak",
			"sbb":  "sebab",
			"bape": "berapa",
			"brp":  "berapa",
			"mcm":  "macam",
			"dgn":  "dengan",
			"utk":  "untuk",
			"nk":   "nak",
			"dlm":  "dalam",
			"bgm":  "bagaimana",
			"sy":   "saya",
		},
	}
}

// patternShortForms 词边界模式替换，含数字谐音替换。
// 每项为 [pattern, replacement]，pattern 以大小写不敏感编译。
func patternShortForms() map[types.Language][][2]string {
	return map[types.Language][][2]string{
		types.LangEnglish: {
			{`2day`, "today"},
			{`2moro|2morrow|tmr`, "tomorrow"},
			{`gr8`, "great"},
			{`4get`, "forget"},
			{`w8`, "wait"},
			{`l8r`, "later"},
			{`cuz|coz`, "because"},
		},
		types.LangMalay: {
			{`xleh`, "tidak boleh"},
			{`xnak`, "tidak nak"},
			{`camne|cemana`, "macam mana"},
			{`kat\s+mana`, "di mana"},
		},
	}
}

// substringForms 表意文字语言的子串替换表
func substringForms() map[types.Language][][2]string {
	return map[types.Language][][2]string{
		types.LangChinese: {
			{"神马", "什么"},
			{"啥", "什么"},
			{"阔以", "可以"},
			{"咋", "怎么"},
			{"肿么", "怎么"},
			{"酱紫", "这样子"},
			{"木有", "没有"},
		},
	}
}
