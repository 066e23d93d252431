package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/lexicon"
	"github.com/iabetor/taigivoice/internal/logger"
	"github.com/iabetor/taigivoice/internal/segment"
	"github.com/iabetor/taigivoice/internal/tonal"
	"github.com/iabetor/taigivoice/internal/tone"
)

// Mode 标明音频的生成方式。使用过程式合成时必须显式标出。
type Mode string

const (
	ModeNeural        Mode = "neural"
	ModeTonalFallback Mode = "tonal-fallback"
	// ModeTonal 配置为只用过程式合成。
	ModeTonal Mode = "tonal"
)

// ScriptNormalizer 在转换前把文本统一为繁体字形。
type ScriptNormalizer interface {
	Normalize(ctx context.Context, text string) (string, error)
}

// Result 一次合成的结果。
type Result struct {
	ID        string
	Text      string
	Romanized string
	Mode      Mode
	// Reason 回退时记录神经合成的失败原因。
	Reason   string
	Segments int
	Cached   bool
	Clip     *audio.Clip
	Elapsed  time.Duration
}

// WAV 返回完整 WAV 字节。
func (r *Result) WAV() []byte {
	return audio.EncodeWAV(r.Clip)
}

// Hook 在每次合成成功后调用，用于记录历史和指标。
type Hook func(ctx context.Context, r *Result)

// Options 服务依赖。Assembler 为 nil 时只用过程式合成。
type Options struct {
	Converter *lexicon.Converter
	Tone      *tone.Normalizer
	Script    ScriptNormalizer
	Endings   []string
	Assembler *Assembler
	Tonal     *tonal.Synth
	// Fallback 神经合成失败时是否回退到过程式合成。
	Fallback bool
	Cache    *audio.ClipCache
	Hooks    []Hook
}

// Service 文本到语音的完整流程：字形统一 → 词典转换 → 调号规范化 → 分段 → 拼接。
type Service struct {
	opts Options
	log  *zap.Logger
}

// NewService 创建服务。
func NewService(opts Options) (*Service, error) {
	if opts.Converter == nil || opts.Tone == nil {
		return nil, fmt.Errorf("缺少词典转换器或调号规范化器")
	}
	if opts.Tonal == nil {
		opts.Tonal = tonal.New(tonal.Config{})
	}
	if opts.Endings == nil {
		opts.Endings = lexicon.DefaultEndings
	}
	return &Service{opts: opts, log: logger.Named("tts")}, nil
}

// Romanize 把文本转为数字调罗马字。已是罗马字的输入只做调号规范化。
func (s *Service) Romanize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if !lexicon.HasContent(text) {
		return "", ErrNoContent
	}
	if lexicon.IsRomanized(text) {
		return s.opts.Tone.Normalize(text), nil
	}

	src := text
	if s.opts.Script != nil {
		if normalized, err := s.opts.Script.Normalize(ctx, text); err != nil {
			s.log.Warn("字形统一失败，使用原文", zap.Error(err))
		} else {
			src = normalized
		}
	}

	converted := s.opts.Converter.Convert(src)
	romanized := s.opts.Tone.Normalize(converted)
	return lexicon.FuseEnding(src, romanized, s.opts.Endings), nil
}

// Speak 合成文本。神经合成失败且允许回退时改用过程式合成并标记 tonal-fallback；
// 格式不一致不回退，直接返回错误。
func (s *Service) Speak(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	romanized, err := s.Romanize(ctx, text)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:        uuid.NewString(),
		Text:      text,
		Romanized: romanized,
	}
	log := s.log.With(zap.String("id", res.ID))

	segs := segment.Split(romanized)
	res.Segments = len(segs)

	engineName := string(ModeTonal)
	if s.opts.Assembler != nil {
		engineName = s.opts.Assembler.Engine().Name()
	}
	if clip, mode, ok := s.opts.Cache.Get(engineName, romanized); ok {
		res.Clip, res.Mode, res.Cached = clip, Mode(mode), true
		return s.finish(ctx, res, start), nil
	}

	switch {
	case s.opts.Assembler == nil:
		res.Clip, res.Mode = s.opts.Tonal.Clip(tonalInput(segs)), ModeTonal
	default:
		clip, err := s.opts.Assembler.Assemble(ctx, segs)
		switch {
		case err == nil:
			res.Clip, res.Mode = clip, ModeNeural
		case errors.Is(err, ErrSynthesisFailed) && s.opts.Fallback && ctx.Err() == nil:
			log.Warn("神经合成失败，改用过程式合成", zap.Error(err))
			res.Clip, res.Mode, res.Reason = s.opts.Tonal.Clip(tonalInput(segs)), ModeTonalFallback, err.Error()
		default:
			return nil, err
		}
	}

	// 回退结果不缓存，下次仍尝试神经合成
	if res.Mode != ModeTonalFallback {
		if err := s.opts.Cache.Put(engineName, romanized, string(res.Mode), res.Clip); err != nil {
			log.Warn("写入缓存失败", zap.Error(err))
		}
	}
	return s.finish(ctx, res, start), nil
}

func (s *Service) finish(ctx context.Context, res *Result, start time.Time) *Result {
	res.Elapsed = time.Since(start)
	s.log.Info("合成完成",
		zap.String("id", res.ID),
		zap.String("mode", string(res.Mode)),
		zap.Bool("cached", res.Cached),
		zap.Duration("audio", res.Clip.Duration()),
		zap.Duration("elapsed", res.Elapsed))
	for _, h := range s.opts.Hooks {
		h(ctx, res)
	}
	return res
}

// tonalInput 去掉标点，只保留各段的音节。
func tonalInput(segs []segment.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		if seg.Content != "" {
			parts = append(parts, seg.Content)
		}
	}
	return strings.Join(parts, " ")
}
