package util

import "strings"

// IsChinese reports whether a language setting selects Chinese output.
// Accepts "zh", "zh-cn", "zh-tw" in any case, or any value mentioning Chinese.
func IsChinese(language string) bool {
	if strings.Contains(language, "Chinese") || strings.Contains(language, "中文") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "zh", "zh-cn", "zh-tw":
		return true
	}
	return false
}
