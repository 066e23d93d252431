package lexicon

import (
	"strings"
	"unicode"
)

// Mode 选择转换算法。
type Mode int

const (
	// ModeCascade 逐层、逐键全文替换。
	ModeCascade Mode = iota
	// ModeScan 单遍从左到右，窗口内最长匹配。
	ModeScan
)

func (m Mode) String() string {
	switch m {
	case ModeCascade:
		return "cascade"
	case ModeScan:
		return "scan"
	}
	return "unknown"
}

// ParseMode 解析配置中的模式名，未知值返回 ModeCascade。
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "scan") {
		return ModeScan
	}
	return ModeCascade
}

// Chaining 决定同一层级内，后处理的（较短）键能否匹配前面替换出来的文本。
type Chaining int

const (
	// ChainProtected 同层替换结果不再被同层其他键改写；下一层仍以整串为输入。
	ChainProtected Chaining = iota
	// ChainLiteral 逐键 strings.ReplaceAll，替换结果可被同层较短的键再次匹配。
	ChainLiteral
)

// ParseChaining 解析配置中的串联策略，未知值返回 ChainProtected。
func ParseChaining(s string) Chaining {
	if strings.EqualFold(strings.TrimSpace(s), "literal") {
		return ChainLiteral
	}
	return ChainProtected
}

// DefaultWindow 扫描模式的最大前瞻字数。
const DefaultWindow = 10

// Residual 为词典未覆盖的汉字提供近似读音。
type Residual interface {
	Romanize(r rune) (string, bool)
}

// Options 转换器选项。
type Options struct {
	Mode     Mode
	Chaining Chaining
	Window   int
	Residual Residual
}

// Converter 持有只读的层级词典，可被多个请求并发使用。
type Converter struct {
	tiers *Tiers
	flat  *Dictionary
	opts  Options
}

// NewConverter 创建转换器。
func NewConverter(tiers *Tiers, opts Options) *Converter {
	if tiers == nil {
		tiers = NewTiers()
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Converter{
		tiers: tiers,
		flat:  tiers.Flatten(),
		opts:  opts,
	}
}

// Tiers 返回底层词典。
func (c *Converter) Tiers() *Tiers { return c.tiers }

// Convert 按配置的模式转换文本，输出以空格分隔的 token，标点独立成 token。
func (c *Converter) Convert(text string) string {
	if c.opts.Mode == ModeScan {
		return c.Scan(text)
	}
	return c.Cascade(text)
}

// Cascade 依次套用 phrase > word > manual > character 四层，
// 每层内按键长降序把每个键的所有出现位置替换掉。
func (c *Converter) Cascade(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, tier := range AllTiers() {
		text = c.applyTier(text, c.tiers.Get(tier))
	}
	return c.render(text)
}

func (c *Converter) applyTier(text string, d *Dictionary) string {
	if d.Len() == 0 {
		return text
	}
	if c.opts.Chaining == ChainLiteral {
		for _, k := range d.keys {
			v := d.entries[k]
			if k == v || !strings.Contains(text, k) {
				continue
			}
			text = strings.ReplaceAll(text, k, pad(v))
		}
		return text
	}
	return replaceProtected(text, d)
}

type span struct {
	text  string
	fixed bool
}

// replaceProtected 同层替换：已替换的片段标记为 fixed，后续键只在未替换片段中查找。
func replaceProtected(text string, d *Dictionary) string {
	spans := []span{{text: text}}
	for _, k := range d.keys {
		v := d.entries[k]
		next := spans[:0:0]
		for _, s := range spans {
			if s.fixed || !strings.Contains(s.text, k) {
				next = append(next, s)
				continue
			}
			parts := strings.Split(s.text, k)
			for i, p := range parts {
				if i > 0 {
					next = append(next, span{text: pad(v), fixed: true})
				}
				if p != "" {
					next = append(next, span{text: p})
				}
			}
		}
		spans = next
	}

	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.text)
	}
	return b.String()
}

// pad 罗马字结果前后补空格，使其与相邻文字分隔；汉字结果原样拼接，
// 以便下一层继续按词匹配。
func pad(v string) string {
	if containsHan(v) {
		return v
	}
	return " " + v + " "
}

// Scan 单遍扫描：每个位置在窗口内从长到短查找，未命中的字原样输出为独立 token。
func (c *Converter) Scan(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	runes := []rune(text)
	maxLen := c.opts.Window
	if m := c.flat.MaxKeyLen(); m < maxLen {
		maxLen = m
	}

	var b strings.Builder
	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) || isPunct(runes[i]) {
			b.WriteString(pad(string(runes[i])))
			i++
			continue
		}
		matched := false
		for l := min(maxLen, len(runes)-i); l >= 1; l-- {
			if v, ok := c.flat.Lookup(string(runes[i : i+l])); ok {
				b.WriteString(pad(v))
				i += l
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(' ')
			b.WriteRune(runes[i])
			b.WriteByte(' ')
			i++
		}
	}
	return c.render(b.String())
}

// render 切分 token：空白分隔，标点独立，连字符留在词内。
// 剩余汉字在配置了 Residual 时逐字替换为近似读音。
func (c *Converter) render(s string) string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, c.residual(string(cur))...)
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			flush()
		case isPunct(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return strings.Join(tokens, " ")
}

func (c *Converter) residual(token string) []string {
	if c.opts.Residual == nil || !containsHan(token) {
		return []string{token}
	}
	var out []string
	var cur []rune
	for _, r := range token {
		if unicode.Is(unicode.Han, r) {
			if v, ok := c.opts.Residual.Romanize(r); ok {
				if len(cur) > 0 {
					out = append(out, string(cur))
					cur = cur[:0]
				}
				out = append(out, v)
				continue
			}
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

// isPunct 判断是否为需要独立成 token 的标点。连字符属于词的一部分。
func isPunct(r rune) bool {
	if r == '-' {
		return false
	}
	return unicode.IsPunct(r)
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
