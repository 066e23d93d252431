// Package tonal 不依赖模型的声调合成：按每个音节的调号生成正弦音高轮廓，
// 在神经合成不可用时仍能给出可听的结果。
package tonal

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/iabetor/taigivoice/internal/audio"
)

// 默认参数。
const (
	DefaultSampleRate = 22050
	DefaultDuration   = time.Second
	DefaultAmplitude  = 0.4
	DefaultTone       = 2

	// 每个音节 80% 发声，20% 停顿
	voicedShare = 0.8
	silentShare = 0.2
	onsetRamp   = 100 // 起音线性淡入的采样点数
	defaultHz   = 300
)

// Config 合成参数。零值字段取默认值。
type Config struct {
	SampleRate int           `yaml:"sample_rate"`
	Duration   time.Duration `yaml:"duration"`
	Amplitude  float64       `yaml:"amplitude"`
	// DefaultTone 没有调号的音节使用的声调。
	DefaultTone int `yaml:"default_tone"`
}

// Synth 过程式声调合成器。输出确定，同样输入得到同样的字节。
type Synth struct {
	rate      int
	total     int
	amplitude int
	defTone   int
}

// New 创建合成器。
func New(cfg Config) *Synth {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Amplitude <= 0 || cfg.Amplitude > 1 {
		cfg.Amplitude = DefaultAmplitude
	}
	if cfg.DefaultTone < 1 || cfg.DefaultTone > 8 {
		cfg.DefaultTone = DefaultTone
	}
	return &Synth{
		rate:      cfg.SampleRate,
		total:     int(int64(cfg.SampleRate) * int64(cfg.Duration) / int64(time.Second)),
		amplitude: int(math.MaxInt16 * cfg.Amplitude),
		defTone:   cfg.DefaultTone,
	}
}

// TotalSamples 输出的固定采样点数。
func (s *Synth) TotalSamples() int { return s.total }

// SampleRate 输出采样率。
func (s *Synth) SampleRate() int { return s.rate }

// ToneOf 从音节末尾往前找第一个数字作为调号，没有则返回默认调。
func (s *Synth) ToneOf(token string) int {
	rs := []rune(token)
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] >= '0' && rs[i] <= '9' {
			return int(rs[i] - '0')
		}
	}
	return s.defTone
}

// contour 返回第 t 个采样点的频率，n 为发声段长度。
func contour(tone, t, n int) float64 {
	p := 0.0
	if n > 0 {
		p = float64(t) / float64(n)
	}
	switch tone {
	case 1:
		return 350
	case 2:
		return 250 + p*150
	case 3:
		return 400 - p*150
	case 4:
		return 200
	case 5:
		return 200 + p*200
	case 6:
		return 380 - p*100
	case 7:
		return 180
	case 8:
		return 360
	}
	return defaultHz
}

// Samples 生成固定长度的 int16 样本。空文本得到全静音。
func (s *Synth) Samples(text string) []int16 {
	out := make([]int16, s.total)
	words := strings.FieldsFunc(text, unicode.IsSpace)
	if len(words) == 0 {
		return out
	}

	per := s.total / len(words)
	voiced := int(float64(per) * voicedShare)
	silent := int(float64(per) * silentShare)

	pos := 0
	for _, w := range words {
		tone := s.ToneOf(w)
		for i := 0; i < voiced && pos < s.total; i++ {
			env := math.Min(1, float64(i)/onsetRamp)
			v := float64(s.amplitude) * env * math.Sin(2*math.Pi*contour(tone, i, voiced)*float64(i)/float64(s.rate))
			out[pos] = int16(int32(v))
			pos++
		}
		pos += silent
	}
	return out
}

// Clip 生成音频。
func (s *Synth) Clip(text string) *audio.Clip {
	return audio.NewClip16(s.Samples(text), s.rate, 1)
}

// WAV 生成完整的 WAV 字节，长度恒为 44 + 2*TotalSamples。
func (s *Synth) WAV(text string) []byte {
	return audio.EncodeWAV(s.Clip(text))
}
