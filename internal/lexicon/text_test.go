package lexicon

import "testing"

func TestHasContent(t *testing.T) {
	tests := map[string]bool{
		"你好":     true,
		"abc":    true,
		"123":    true,
		"，。！？":   false,
		"  ... ": false,
		"":       false,
	}
	for in, want := range tests {
		if got := HasContent(in); got != want {
			t.Errorf("HasContent(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsRomanized(t *testing.T) {
	tests := map[string]bool{
		"li2 ho2":     true,
		"tai5-gi2!":   true,
		"你好 li2":      false,
		"hello world": false,
		"2024":        false,
	}
	for in, want := range tests {
		if got := IsRomanized(in); got != want {
			t.Errorf("IsRomanized(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFuseEnding(t *testing.T) {
	tests := []struct {
		name      string
		han       string
		romanized string
		want      string
	}{
		{"fuses trailing particle", "好啦！", "ho2 la1 !", "ho2-la1 !"},
		{"no particle", "你好", "li2 ho2", "li2 ho2"},
		{"single word", "啦", "la1", "la1"},
		{"keeps earlier tokens", "我真歡喜喔", "gua2 tsin1 huann1-hi2 oo1", "gua2 tsin1 huann1-hi2-oo1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FuseEnding(tt.han, tt.romanized, DefaultEndings); got != tt.want {
				t.Errorf("FuseEnding(%q, %q) = %q, want %q", tt.han, tt.romanized, got, tt.want)
			}
		})
	}
}
