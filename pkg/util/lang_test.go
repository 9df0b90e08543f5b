package util

import "testing"

func TestIsChinese(t *testing.T) {
	for _, s := range []string{"zh", "ZH-CN", "zh-tw", "Chinese", "Simplified Chinese", "中文"} {
		if !IsChinese(s) {
			t.Fatalf("expected %q to be chinese", s)
		}
	}
	for _, s := range []string{"", "en", "english", "zh-hk"} {
		if IsChinese(s) {
			t.Fatalf("expected %q not to be chinese", s)
		}
	}
}
