package lexicon

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// 至少含一个汉字、字母或数字才算有内容。
	meaningful = regexp.MustCompile(`[\p{Han}a-zA-Z0-9]`)
	// 已是数字调罗马字：字母后紧跟 1-8 调号。
	romanizedSyllable = regexp.MustCompile(`[a-zA-Z]+[1-8]\b`)
	trailingPunct     = regexp.MustCompile(`[\p{P}\s~～]+$`)
)

// HasContent 判断文本是否含有可合成的内容（纯标点、空白返回 false）。
func HasContent(text string) bool {
	return meaningful.MatchString(text)
}

// IsRomanized 判断文本是否已经是数字调罗马字（不含汉字且含带调号的音节），
// 这类输入跳过词典转换。
func IsRomanized(text string) bool {
	return !containsHan(text) && romanizedSyllable.MatchString(text)
}

// FuseEnding 若原句以句尾助词结尾，把罗马字输出中最后两个词用连字符合并，
// 让助词与前一个词连读。endings 应按长度降序排列。
func FuseEnding(sourceHan, romanized string, endings []string) string {
	core := trailingPunct.ReplaceAllString(strings.TrimSpace(sourceHan), "")
	matched := false
	for _, key := range endings {
		if key != "" && strings.HasSuffix(core, key) {
			matched = true
			break
		}
	}
	if !matched {
		return romanized
	}

	tokens := strings.Fields(romanized)
	var words []int
	for i, tok := range tokens {
		if isWordToken(tok) {
			words = append(words, i)
		}
	}
	if len(words) < 2 {
		return romanized
	}
	i1, i2 := words[len(words)-2], words[len(words)-1]
	tokens[i1] = tokens[i1] + "-" + tokens[i2]
	tokens = append(tokens[:i2], tokens[i2+1:]...)
	return strings.Join(tokens, " ")
}

func isWordToken(tok string) bool {
	for _, r := range tok {
		if !(r == '-' || unicode.IsDigit(r) || unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Mn, r)) {
			return false
		}
	}
	return tok != ""
}
