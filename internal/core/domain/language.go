package domain

import "strings"

// Language detection is deliberately crude: script blocks first, then a short
// token list for romanized Hindi/Tamil. Anything else is treated as English.

var romanizedHindi = map[string]struct{}{
	"hai": {}, "kitna": {}, "kitni": {}, "kya": {}, "kyun": {}, "kaun": {},
	"kahan": {}, "mein": {}, "hain": {}, "tha": {}, "thi": {}, "hoga": {},
	"kripya": {}, "dhanyavad": {},
}

var romanizedTamil = map[string]struct{}{
	"irukku": {}, "ethana": {}, "evlo": {}, "enna": {}, "epdi": {},
	"ungal": {}, "ungalukku": {}, "nalla": {}, "velai": {}, "sapadu": {},
}

// DetectLanguage returns a BCP-47-ish code for the question text: "hi", "ta"
// or "en".
func DetectLanguage(text string) string {
	if text == "" {
		return "en"
	}
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return "hi"
		}
		if r >= 0x0B80 && r <= 0x0BFF {
			return "ta"
		}
	}

	cleaned := strings.NewReplacer("?", " ", "!", " ", ".", " ", ",", " ").Replace(strings.ToLower(text))
	for _, token := range strings.Fields(cleaned) {
		if _, ok := romanizedHindi[token]; ok {
			return "hi"
		}
		if _, ok := romanizedTamil[token]; ok {
			return "ta"
		}
	}
	return "en"
}

func LanguageName(code string) string {
	switch code {
	case "hi":
		return "Hindi"
	case "ta":
		return "Tamil"
	default:
		return "English"
	}
}
