// Package lexicon 实现华语文字到台语数字调罗马字的分层词典转换。
package lexicon

import (
	"sort"
	"unicode/utf8"
)

// Tier 表示词典层级，按优先级从高到低排列。
type Tier int

const (
	// TierPhrase 片语（5 字以上）。
	TierPhrase Tier = iota
	// TierWord 词汇（4 字以内）。
	TierWord
	// TierManual 人工维护的对照表。
	TierManual
	// TierCharacter 单字/台语汉字到罗马字。
	TierCharacter
)

// NumTiers 层级数量。
const NumTiers = 4

var tierNames = [...]string{
	"phrase",
	"word",
	"manual",
	"character",
}

func (t Tier) String() string {
	if t >= 0 && int(t) < len(tierNames) {
		return tierNames[t]
	}
	return "unknown"
}

// AllTiers 返回按优先级排列的所有层级。
func AllTiers() []Tier {
	return []Tier{TierPhrase, TierWord, TierManual, TierCharacter}
}

// Dictionary 是某一层级的只读对照表，键按长度降序排列。
type Dictionary struct {
	tier    Tier
	entries map[string]string
	keys    []string
	maxLen  int
}

// NewDictionary 用给定条目构建词典，entries 会被复制。空键被忽略。
func NewDictionary(tier Tier, entries map[string]string) *Dictionary {
	d := &Dictionary{
		tier:    tier,
		entries: make(map[string]string, len(entries)),
	}
	for k, v := range entries {
		if k == "" {
			continue
		}
		d.entries[k] = v
		d.keys = append(d.keys, k)
		if n := utf8.RuneCountInString(k); n > d.maxLen {
			d.maxLen = n
		}
	}
	sortKeys(d.keys)
	return d
}

// sortKeys 按 rune 长度降序排序，同长度按字典序，保证结果确定。
func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(keys[i]), utf8.RuneCountInString(keys[j])
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})
}

// Tier 返回词典所属层级。
func (d *Dictionary) Tier() Tier { return d.tier }

// Len 返回条目数。
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// MaxKeyLen 返回最长键的 rune 数。
func (d *Dictionary) MaxKeyLen() int {
	if d == nil {
		return 0
	}
	return d.maxLen
}

// Lookup 精确查找。
func (d *Dictionary) Lookup(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, ok := d.entries[key]
	return v, ok
}

// Keys 返回按匹配顺序（长度降序）排列的键的副本。
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Tiers 是启动时构建、之后只读共享的全部层级词典。
type Tiers struct {
	dicts [NumTiers]*Dictionary
}

// NewTiers 组装层级。缺失的层级视为空词典（恒等映射）。
func NewTiers(dicts ...*Dictionary) *Tiers {
	t := &Tiers{}
	for _, tier := range AllTiers() {
		t.dicts[tier] = NewDictionary(tier, nil)
	}
	for _, d := range dicts {
		if d == nil || d.tier < 0 || int(d.tier) >= NumTiers {
			continue
		}
		t.dicts[d.tier] = d
	}
	return t
}

// Get 返回指定层级的词典，永不为 nil。
func (t *Tiers) Get(tier Tier) *Dictionary {
	return t.dicts[tier]
}

// Sizes 返回各层级条目数，用于启动日志。
func (t *Tiers) Sizes() map[Tier]int {
	out := make(map[Tier]int, NumTiers)
	for _, tier := range AllTiers() {
		out[tier] = t.dicts[tier].Len()
	}
	return out
}

// Flatten 把所有层级合并为一个词典，键冲突时高优先级层级胜出。
// 只保留目标是罗马字的条目，供单遍扫描模式使用。
func (t *Tiers) Flatten() *Dictionary {
	merged := make(map[string]string)
	for i := NumTiers - 1; i >= 0; i-- {
		d := t.dicts[i]
		for k, v := range d.entries {
			if containsHan(v) {
				continue
			}
			merged[k] = v
		}
	}
	return NewDictionary(TierPhrase, merged)
}
