package lexicon

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/iabetor/taigivoice/internal/logger"
)

// DictionaryLoadError 表示某个词典资源加载失败。该层级退化为恒等映射，不致命。
type DictionaryLoadError struct {
	Tier Tier
	Path string
	Err  error
}

func (e *DictionaryLoadError) Error() string {
	return fmt.Sprintf("加载 %s 词典 %s 失败: %v", e.Tier, e.Path, e.Err)
}

func (e *DictionaryLoadError) Unwrap() error { return e.Err }

// DefaultSkipWords 易误转的字词，不进入词汇层。
var DefaultSkipWords = []string{
	"我", "你", "日", "工", "人", "會", "看", "公", "學校", "買", "說", "不", "很", "好", "了", "的",
	"她", "他", "它", "在", "去", "來", "和", "多", "少", "是", "有", "無", "都", "也", "還", "但",
	"可", "要", "能", "大", "小", "高", "低", "新", "舊", "快", "慢", "上", "下", "前", "後",
	"左", "右", "裡", "外", "中", "同", "不同", "一樣", "對", "錯", "真", "假", "開", "關", "天", "天氣",
}

// Sources 描述构建层级词典所需的资源，路径为空表示不加载。
type Sources struct {
	PhraseTSV    string
	LexiconTSV   string // 词汇层主来源，按长度分流到 phrase/word/character
	ManualTSV    string
	CharacterTSV string
	SutianCSV    string // 教育部台语辞典导出 CSV
	SkipWords    []string
	Builtin      bool
}

// Build 加载全部来源并组装层级词典。返回的错误均为 *DictionaryLoadError，
// 调用方只需记录；对应来源被跳过，其余照常使用。
func Build(src Sources, normalize func(string) string) (*Tiers, []error) {
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	skip := make(map[string]bool)
	for _, w := range src.SkipWords {
		skip[norm.NFC.String(strings.TrimSpace(w))] = true
	}

	b := newBuilder()
	if src.Builtin {
		b.addAll(TierManual, builtinManual, nil)
		b.addAll(TierPhrase, builtinPhrases, normalize)
		b.addAll(TierCharacter, builtinCharacters, normalize)
		for k, v := range builtinWords {
			b.add(routeByLength(k), k, normalize(v))
		}
	}

	var errs []error
	record := func(err error) {
		if err == nil {
			return
		}
		logger.Warnf("[lexicon] %v，该来源按恒等映射处理", err)
		errs = append(errs, err)
	}

	if src.PhraseTSV != "" {
		pairs, err := readTSV(src.PhraseTSV)
		if err != nil {
			record(&DictionaryLoadError{Tier: TierPhrase, Path: src.PhraseTSV, Err: err})
		}
		for _, p := range pairs {
			b.add(TierPhrase, p[0], normalize(p[1]))
		}
	}
	if src.LexiconTSV != "" {
		pairs, err := readTSV(src.LexiconTSV)
		if err != nil {
			record(&DictionaryLoadError{Tier: TierWord, Path: src.LexiconTSV, Err: err})
		}
		for _, p := range pairs {
			// 跳过表只作用于词汇层，单字照常进入单字层
			tier := routeByLength(p[0])
			if tier == TierWord && skip[p[0]] {
				continue
			}
			b.add(tier, p[0], normalize(p[1]))
		}
	}
	if src.ManualTSV != "" {
		pairs, err := readTSV(src.ManualTSV)
		if err != nil {
			record(&DictionaryLoadError{Tier: TierManual, Path: src.ManualTSV, Err: err})
		}
		for _, p := range pairs {
			b.add(TierManual, p[0], p[1])
		}
	}
	if src.CharacterTSV != "" {
		pairs, err := readTSV(src.CharacterTSV)
		if err != nil {
			record(&DictionaryLoadError{Tier: TierCharacter, Path: src.CharacterTSV, Err: err})
		}
		for _, p := range pairs {
			b.add(TierCharacter, p[0], normalize(p[1]))
		}
	}
	if src.SutianCSV != "" {
		if err := loadSutian(b, src.SutianCSV, skip, normalize); err != nil {
			record(&DictionaryLoadError{Tier: TierWord, Path: src.SutianCSV, Err: err})
		}
	}

	tiers := b.build()
	sizes := tiers.Sizes()
	logger.Infof("[lexicon] 词典已加载: phrase=%d word=%d manual=%d character=%d",
		sizes[TierPhrase], sizes[TierWord], sizes[TierManual], sizes[TierCharacter])
	return tiers, errs
}

// routeByLength 5 字以上归片语层，2-4 字归词汇层，单字归单字层。
func routeByLength(key string) Tier {
	switch n := utf8.RuneCountInString(key); {
	case n > 4:
		return TierPhrase
	case n >= 2:
		return TierWord
	default:
		return TierCharacter
	}
}

type builder struct {
	maps [NumTiers]map[string]string
}

func newBuilder() *builder {
	b := &builder{}
	for i := range b.maps {
		b.maps[i] = make(map[string]string)
	}
	return b
}

func (b *builder) add(tier Tier, key, value string) {
	key = norm.NFC.String(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return
	}
	b.maps[tier][key] = value
}

func (b *builder) addAll(tier Tier, entries map[string]string, normalize func(string) string) {
	for k, v := range entries {
		if normalize != nil {
			v = normalize(v)
		}
		b.add(tier, k, v)
	}
}

func (b *builder) build() *Tiers {
	dicts := make([]*Dictionary, 0, NumTiers)
	for _, tier := range AllTiers() {
		dicts = append(dicts, NewDictionary(tier, b.maps[tier]))
	}
	return NewTiers(dicts...)
}

// LoadTSV 读取两列 TSV 为单个层级词典。失败时返回空词典和 *DictionaryLoadError。
func LoadTSV(tier Tier, path string, normalize func(string) string) (*Dictionary, error) {
	pairs, err := readTSV(path)
	entries := make(map[string]string, len(pairs))
	for _, p := range pairs {
		v := p[1]
		if normalize != nil {
			v = normalize(v)
		}
		entries[norm.NFC.String(p[0])] = v
	}
	if err != nil {
		return NewDictionary(tier, entries), &DictionaryLoadError{Tier: tier, Path: path, Err: err}
	}
	return NewDictionary(tier, entries), nil
}

// readTSV 解析 "原文<TAB>对照" 行，# 开头为注释，列数不足的行跳过。
func readTSV(path string) ([][2]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseTSV(f)
}

func parseTSV(r io.Reader) ([][2]string, error) {
	var pairs [][2]string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			continue
		}
		src, dst := strings.TrimSpace(cols[0]), strings.TrimSpace(cols[1])
		if src == "" || dst == "" {
			continue
		}
		pairs = append(pairs, [2]string{norm.NFC.String(src), dst})
	}
	if err := scanner.Err(); err != nil {
		return pairs, fmt.Errorf("读取 TSV 失败: %w", err)
	}
	return pairs, nil
}

var (
	variantSep  = regexp.MustCompile(`[、，,]`)
	pureDigits  = regexp.MustCompile(`^[0-9]+$`)
	parenthetic = regexp.MustCompile(`\([^)]*\)|（[^）]*）`)
	pureLetters = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// loadSutian 读取辞典 CSV：
// HoaBun（华语，多个变体以、，分隔）→ HanLoTaibunKip（台语汉字）进入 word/phrase 层；
// HanLoTaibunKip → KipInput（台罗）进入 character 层。
func loadSutian(b *builder, path string, skip map[string]bool, normalize func(string) string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(bufio.NewReader(f))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("读取表头失败: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	hanIdx, ok1 := col["HanLoTaibunKip"]
	kipIdx, ok2 := col["KipInput"]
	hoaIdx, ok3 := col["HoaBun"]
	if !ok1 || !ok2 {
		return errors.New("缺少 HanLoTaibunKip 或 KipInput 列")
	}

	field := func(rec []string, i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	rows := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("第 %d 行解析失败: %w", rows+2, err)
		}
		rows++

		// 括号内为替代写法，去掉后保留词条
		han := norm.NFC.String(strings.TrimSpace(parenthetic.ReplaceAllString(field(rec, hanIdx), "")))
		kip := firstAlternative(strings.TrimSpace(parenthetic.ReplaceAllString(field(rec, kipIdx), "")))
		if han == "" {
			continue
		}
		if kip != "" {
			b.add(TierCharacter, han, normalize(kip))
		}

		if !ok3 {
			continue
		}
		hoa := field(rec, hoaIdx)
		if hoa == "" || hoa == han {
			continue
		}
		for _, variant := range variantSep.Split(hoa, -1) {
			variant = norm.NFC.String(strings.TrimSpace(variant))
			if variant == "" || variant == han || skip[variant] ||
				pureDigits.MatchString(variant) || pureLetters.MatchString(variant) ||
				utf8.RuneCountInString(variant) < 2 {
				continue
			}
			b.add(routeByLength(variant), variant, han)
		}
	}
	logger.Debugf("[lexicon] 辞典 CSV 读取 %d 行: %s", rows, path)
	return nil
}

// firstAlternative 取 "a/b" 形式的第一个读音。
func firstAlternative(s string) string {
	if i := strings.IndexAny(s, "/／"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// LoadEndings 读取句尾词表（单列），按长度降序返回。
func LoadEndings(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key := strings.TrimSpace(strings.SplitN(scanner.Text(), "\t", 2)[0])
		if key == "" || strings.HasPrefix(key, "#") {
			continue
		}
		keys = append(keys, norm.NFC.String(key))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取句尾词表失败: %w", err)
	}
	sortKeys(keys)
	return keys, nil
}
