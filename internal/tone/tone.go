// Package tone 把台罗/白话字的调符转换为音节末尾的数字调。
package tone

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultTone 是未标调音节默认补上的调号（台罗第一声）。
const DefaultTone = 1

// toneMarks 组合调符 → 数字调。
var toneMarks = map[rune]byte{
	'\u0301': '2', // á
	'\u0300': '3', // à
	'\u0306': '4', // ă
	'\u0302': '5', // â
	'\u0304': '7', // ā
	'\u030D': '8', // a̍
}

// 白话字 o͘ 的右上点，转写为 oo。
const pojDotAboveRight = '\u0358'

var syllabicNasal = regexp.MustCompile(`^h?(m|ng)h?$`)

// AmbiguousError 描述一个无法确定调号、按默认值处理的音节。
type AmbiguousError struct {
	Syllable string
	Applied  int
	Reason   string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("音节 %q 调号不明确（%s），使用 %d 调", e.Syllable, e.Reason, e.Applied)
}

// Normalizer 把调符转换为数字调。零值不可用，使用 New 创建。
type Normalizer struct {
	defaultTone byte
	// OnAmbiguous 在音节使用默认调号或存在多个调符时回调，可为 nil。
	OnAmbiguous func(*AmbiguousError)
}

// New 创建 Normalizer，defaultTone 必须在 1..8 之间。
func New(defaultTone int) (*Normalizer, error) {
	if defaultTone < 1 || defaultTone > 8 {
		return nil, fmt.Errorf("默认调号必须在 1-8 之间: %d", defaultTone)
	}
	return &Normalizer{defaultTone: byte('0' + defaultTone)}, nil
}

// DefaultDigit 返回默认调号。
func (n *Normalizer) DefaultDigit() int {
	return int(n.defaultTone - '0')
}

// Normalize 转换整段文本。只改写拉丁字母组成的词，
// 空白、标点、汉字原样保留，因此对已是数字调的文本是幂等的。
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFD.String(text)

	var b strings.Builder
	b.Grow(len(text) + 8)
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !isWordRune(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		b.WriteString(n.normalizeWord(string(runes[i:j])))
		i = j
	}
	return norm.NFC.String(b.String())
}

// normalizeWord 按连字符拆分后逐个音节处理。
func (n *Normalizer) normalizeWord(word string) string {
	parts := strings.Split(word, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i], _ = n.NormalizeSyllable(p)
	}
	return strings.Join(parts, "-")
}

// NormalizeSyllable 转换单个音节，返回结果以及是否使用了默认调号。
// 已含数字的音节原样返回；不像音节的片段（无元音、非成音节鼻音）也原样返回。
func (n *Normalizer) NormalizeSyllable(syllable string) (string, bool) {
	if syllable == "" || strings.ContainsAny(syllable, "0123456789") {
		return syllable, false
	}

	decomposed := []rune(norm.NFD.String(syllable))
	var out []rune
	var tone byte
	marks := 0
	for _, r := range decomposed {
		if d, ok := toneMarks[r]; ok && len(out) > 0 && isToneBearer(out[len(out)-1]) {
			marks++
			if tone == 0 {
				tone = d
			}
			continue
		}
		if r == pojDotAboveRight {
			out = append(out, 'o')
			continue
		}
		out = append(out, r)
	}
	base := norm.NFC.String(string(out))

	if tone != 0 {
		if marks > 1 {
			n.report(syllable, int(tone-'0'), "多个调符，取第一个")
		}
		return base + string(tone), false
	}
	if !isSyllable(base) {
		return syllable, false
	}
	n.report(syllable, n.DefaultDigit(), "无调符")
	return base + string(n.defaultTone), true
}

func (n *Normalizer) report(syllable string, applied int, reason string) {
	if n.OnAmbiguous != nil {
		n.OnAmbiguous(&AmbiguousError{Syllable: syllable, Applied: applied, Reason: reason})
	}
}

// HasToneDigit 判断 token 是否以 1-8 的调号结尾。
func HasToneDigit(token string) bool {
	if token == "" {
		return false
	}
	c := token[len(token)-1]
	return c >= '1' && c <= '8'
}

func isWordRune(r rune) bool {
	if r == '-' || (r >= '0' && r <= '9') {
		return true
	}
	if unicode.Is(unicode.Mn, r) {
		return true
	}
	return unicode.Is(unicode.Latin, r)
}

func isToneBearer(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u', 'n', 'm':
		return true
	}
	return false
}

func isSyllable(s string) bool {
	s = strings.ToLower(s)
	if strings.ContainsAny(s, "aeiou") {
		return true
	}
	return syllabicNasal.MatchString(s)
}
