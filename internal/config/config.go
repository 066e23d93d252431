package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/iabetor/taigivoice/internal/lexicon"
	"github.com/iabetor/taigivoice/internal/script"
	"github.com/iabetor/taigivoice/internal/stt"
	"github.com/iabetor/taigivoice/internal/tonal"
	"github.com/iabetor/taigivoice/internal/tts"
)

// Config 是 taigivoice 的顶层配置结构。
type Config struct {
	DataDir   string              `yaml:"data_dir"`
	Log       LogConfig           `yaml:"log"`
	Lexicon   LexiconConfig       `yaml:"lexicon"`
	Script    script.Config       `yaml:"script"`
	Assembler tts.AssemblerConfig `yaml:"assembler"`
	TTS       TTSConfig           `yaml:"tts"`
	Tonal     tonal.Config        `yaml:"tonal"`
	STT       STTConfig           `yaml:"stt"`
	Store     StoreConfig         `yaml:"store"`
	Cache     CacheConfig         `yaml:"cache"`
	Server    ServerConfig        `yaml:"server"`
	Telemetry TelemetryConfig     `yaml:"telemetry"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// LexiconConfig 词典资源与转换参数。
type LexiconConfig struct {
	PhraseTSV    string   `yaml:"phrase_tsv"`
	LexiconTSV   string   `yaml:"lexicon_tsv"`
	ManualTSV    string   `yaml:"manual_tsv"`
	CharacterTSV string   `yaml:"character_tsv"`
	SutianCSV    string   `yaml:"sutian_csv"`
	EndingsFile  string   `yaml:"endings_file"`
	SkipWords    []string `yaml:"skip_words"`
	// Builtin 是否加载内置种子词典。
	Builtin *bool `yaml:"builtin"`
	// Mode cascade 或 scan。
	Mode string `yaml:"mode"`
	// Chaining protected 或 literal，仅 cascade 模式使用。
	Chaining    string `yaml:"chaining"`
	Window      int    `yaml:"window"`
	DefaultTone int    `yaml:"default_tone"`
	// PinyinFallback 词典未收录的汉字用华语拼音近似。
	PinyinFallback bool `yaml:"pinyin_fallback"`
}

// UseBuiltin 未配置时默认加载内置词典。
func (c LexiconConfig) UseBuiltin() bool {
	return c.Builtin == nil || *c.Builtin
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	// Engine 可选 sherpa、exec、http、tonal。
	Engine string `yaml:"engine"`
	// Fallback 神经合成失败时改用程序化声调合成。
	Fallback bool             `yaml:"fallback"`
	Sherpa   tts.SherpaConfig `yaml:"sherpa"`
	Exec     tts.ExecConfig   `yaml:"exec"`
	HTTP     tts.HTTPConfig   `yaml:"http"`
}

// STTConfig 语音识别路由配置。
type STTConfig struct {
	Threshold   float64          `yaml:"threshold"`
	TrimSilence *bool            `yaml:"trim_silence"`
	Google      stt.GoogleConfig `yaml:"google"`
	Yating      stt.YatingConfig `yaml:"yating"`
}

// StoreConfig 历史记录数据库配置。
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig 合成结果缓存配置。
type CacheConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int64  `yaml:"max_size_mb"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowOrigins   []string `yaml:"allow_origins"`
	MaxAudioMB     int64    `yaml:"max_audio_mb"`
	RequestTimeout int      `yaml:"request_timeout"` // 秒
}

// TelemetryConfig 指标配置。
type TelemetryConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// On 未配置时默认开启。
func (c TelemetryConfig) On() bool {
	return c.Enabled == nil || *c.Enabled
}

// Load 读取 YAML 配置文件并返回 Config。
// 先加载同目录和当前目录下的 .env，再展开 ${VAR_NAME} 形式的环境变量。
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	// 展开环境变量，如 ${GOOGLE_API_KEY}
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// Default 返回不依赖配置文件的默认配置，凭据仍从环境变量读取。
func Default() *Config {
	_ = loadDotEnv(".env")
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// loadDotEnv 加载 .env 文件，文件不存在不算错误，已有的环境变量不会被覆盖。
func loadDotEnv(paths ...string) error {
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if err := godotenv.Load(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("加载 %s 失败: %w", p, err)
		}
	}
	return nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.DataDir = home + "/.taigivoice"
		} else {
			cfg.DataDir = "./.taigivoice-data"
		}
	} else if strings.HasPrefix(cfg.DataDir, "~/") {
		// Go 不会自动展开 ~，需要手动替换为用户主目录
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.DataDir = home + cfg.DataDir[1:]
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Lexicon.Mode == "" {
		cfg.Lexicon.Mode = "cascade"
	}
	if cfg.Lexicon.Chaining == "" {
		cfg.Lexicon.Chaining = "protected"
	}
	if cfg.Lexicon.SkipWords == nil {
		cfg.Lexicon.SkipWords = append([]string(nil), lexicon.DefaultSkipWords...)
	}
	if cfg.Lexicon.Window == 0 {
		cfg.Lexicon.Window = 10
	}
	if cfg.Lexicon.DefaultTone == 0 {
		cfg.Lexicon.DefaultTone = 1
	}

	if cfg.Assembler.FadeMs == 0 {
		cfg.Assembler.FadeMs = tts.DefaultFadeMs
	}
	if cfg.Assembler.SentencePauseMs == 0 {
		cfg.Assembler.SentencePauseMs = tts.DefaultPauseMs
	}

	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "tonal"
	}

	if cfg.Tonal.SampleRate == 0 {
		cfg.Tonal.SampleRate = tonal.DefaultSampleRate
	}
	if cfg.Tonal.Duration == 0 {
		cfg.Tonal.Duration = tonal.DefaultDuration
	}
	if cfg.Tonal.Amplitude == 0 {
		cfg.Tonal.Amplitude = tonal.DefaultAmplitude
	}
	if cfg.Tonal.DefaultTone == 0 {
		cfg.Tonal.DefaultTone = tonal.DefaultTone
	}

	if cfg.STT.Threshold == 0 {
		cfg.STT.Threshold = stt.DefaultThreshold
	}
	if cfg.STT.TrimSilence == nil {
		on := true
		cfg.STT.TrimSilence = &on
	}
	if cfg.STT.Google.MaxSeconds == 0 {
		cfg.STT.Google.MaxSeconds = 55
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.DataDir, "history.db")
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(cfg.DataDir, "cache")
	}
	if cfg.Cache.MaxSizeMB == 0 {
		cfg.Cache.MaxSizeMB = 200
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Server.MaxAudioMB == 0 {
		cfg.Server.MaxAudioMB = 20
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 120
	}

	// 凭据未写入 YAML 时从环境变量读取
	cfg.STT.Google.APIKey = firstNonEmpty(cfg.STT.Google.APIKey, os.Getenv("GOOGLE_API_KEY"))
	cfg.STT.Yating.APIKey = firstNonEmpty(cfg.STT.Yating.APIKey, os.Getenv("YATING_API_KEY"))
	cfg.Script.SecretID = firstNonEmpty(cfg.Script.SecretID, os.Getenv("TENCENT_SECRET_ID"))
	cfg.Script.SecretKey = firstNonEmpty(cfg.Script.SecretKey, os.Getenv("TENCENT_SECRET_KEY"))
}

// firstNonEmpty 去除两端空白（环境变量展开后常见）后返回第一个非空值。
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
