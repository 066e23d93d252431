// Package segment 按标点把数字调文本切成段落，供逐段合成。
package segment

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// Class 段尾标点的类别，决定停顿长短。
type Class int

const (
	// ClassNone 无标点（末尾悬空段）。
	ClassNone Class = iota
	// ClassClauseBreak 句中停顿 , ; :
	ClassClauseBreak
	// ClassSentenceEnd 句末 . ! ?
	ClassSentenceEnd
)

var classNames = [...]string{"none", "clause-break", "sentence-end"}

func (c Class) String() string {
	if c >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// Segment 是一段内容及其后紧跟的标点。
type Segment struct {
	Index   int
	Content string
	Punct   string
	Class   Class
}

// punctReplacer 全角标点转半角，省略号按句末处理。长的写在前面。
var punctReplacer = strings.NewReplacer(
	"……", ".",
	"...", ".",
	"…", ".",
	"⋯", ".",
	"，", ",",
	"。", ".",
	"！", "!",
	"？", "?",
	"；", ";",
	"：", ":",
	"、", ",",
)

// Delimiters 是切分用的半角标点集合。
const Delimiters = ",.!?;:"

// NormalizePunctuation 把全角标点转为半角，其余全角字母数字也一并转窄。
func NormalizePunctuation(text string) string {
	return width.Narrow.String(punctReplacer.Replace(text))
}

// Classify 返回标点类别。
func Classify(punct string) Class {
	switch punct {
	case ".", "!", "?":
		return ClassSentenceEnd
	case ",", ";", ":":
		return ClassClauseBreak
	}
	return ClassNone
}

// Split 先规范化标点，再按 Delimiters 切分。每段内容去掉首尾空白；
// 连续标点会产生内容为空的段，末尾无标点的内容成为 Punct 为空的段。
func Split(text string) []Segment {
	text = NormalizePunctuation(text)

	var segs []Segment
	var cur strings.Builder
	for _, r := range text {
		if strings.ContainsRune(Delimiters, r) {
			p := string(r)
			segs = append(segs, Segment{
				Index:   len(segs),
				Content: strings.TrimSpace(cur.String()),
				Punct:   p,
				Class:   Classify(p),
			})
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		segs = append(segs, Segment{Index: len(segs), Content: rest})
	}
	return segs
}

// Join 按顺序拼回 content+punct。
func Join(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Content)
		b.WriteString(s.Punct)
	}
	return b.String()
}

var sentenceEnd = regexp.MustCompile(`[。．！？!?…⋯]`)

// SplitSentences 按句末标点分句，标点留在句尾。
func SplitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}
