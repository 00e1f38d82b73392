package subtitles

import "strings"

var (
	chineseHints = []string{"zh", "chi", "chinese", "cn"}
	englishHints = []string{"en", "eng", "english"}
)

// InferLanguage guesses the subtitle language from its file path.
//
// Known limitation: hints match anywhere in the path, so a directory
// named "chinese-films" taints every file beneath it to "zh".
func InferLanguage(path string) string {
	lowered := strings.ToLower(path)
	for _, hint := range chineseHints {
		if strings.Contains(lowered, hint) {
			return "zh"
		}
	}
	for _, hint := range englishHints {
		if strings.Contains(lowered, hint) {
			return "en"
		}
	}
	return "unknown"
}
