package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/logger"
	"github.com/iabetor/taigivoice/internal/segment"
)

// AssemblerConfig 拼接参数。
type AssemblerConfig struct {
	FadeMs int `yaml:"fade_ms"`
	// ClausePauseMs , ; : 之后的静音。
	ClausePauseMs int `yaml:"clause_pause_ms"`
	// SentencePauseMs . ! ? 之后的静音。
	SentencePauseMs int `yaml:"sentence_pause_ms"`
	// Parallel 同时合成的段数，<=1 为顺序合成。
	Parallel int `yaml:"parallel"`
}

// 默认参数。
const (
	DefaultFadeMs  = 10
	DefaultPauseMs = 180
)

// Assembler 逐段合成并拼接。
type Assembler struct {
	engine Engine
	cfg    AssemblerConfig
	log    *zap.Logger
}

// NewAssembler 创建拼接器。
func NewAssembler(engine Engine, cfg AssemblerConfig) *Assembler {
	// 0 取默认值，负数关闭淡入淡出
	if cfg.FadeMs == 0 {
		cfg.FadeMs = DefaultFadeMs
	}
	if cfg.ClausePauseMs <= 0 {
		cfg.ClausePauseMs = DefaultPauseMs
	}
	if cfg.SentencePauseMs <= 0 {
		cfg.SentencePauseMs = cfg.ClausePauseMs
	}
	return &Assembler{engine: engine, cfg: cfg, log: logger.Named("tts")}
}

// Engine 返回合成后端。
func (a *Assembler) Engine() Engine { return a.engine }

func (a *Assembler) pauseMs(c segment.Class) int {
	if c == segment.ClassSentenceEnd {
		return a.cfg.SentencePauseMs
	}
	return a.cfg.ClausePauseMs
}

// Assemble 合成所有非空段，淡入淡出后按顺序拼接，有标点的段后插入静音。
// 任一段失败返回 *SynthesisError，格式不一致返回 *FormatMismatchError，均不产出部分结果。
func (a *Assembler) Assemble(ctx context.Context, segs []segment.Segment) (*audio.Clip, error) {
	start := time.Now()

	clips, err := a.synthesizeAll(ctx, segs)
	if err != nil {
		return nil, err
	}

	var (
		format audio.Format
		known  bool
		parts  []*audio.Clip
	)
	for i, seg := range segs {
		if c := clips[i]; c != nil {
			if !known {
				format, known = c.Format, true
			} else if c.Format != format {
				return nil, &FormatMismatchError{Index: seg.Index, Want: format, Got: c.Format}
			}
			parts = append(parts, c)
		}
		// 空内容的标点段同样插入停顿，但必须已知格式
		if seg.Punct != "" && known {
			parts = append(parts, audio.Silence(format, a.pauseMs(seg.Class)))
		}
	}

	if !known {
		return nil, &SynthesisError{Index: -1, Err: ErrNoContent}
	}

	out, err := audio.Concat(parts...)
	if err != nil {
		return nil, fmt.Errorf("拼接音频失败: %w", err)
	}
	a.log.Info("拼接完成",
		zap.String("engine", a.engine.Name()),
		zap.Int("segments", len(segs)),
		zap.Duration("audio", out.Duration()),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// synthesizeAll 返回与 segs 对齐的音频，空内容段为 nil。
func (a *Assembler) synthesizeAll(ctx context.Context, segs []segment.Segment) ([]*audio.Clip, error) {
	clips := make([]*audio.Clip, len(segs))
	if a.cfg.Parallel <= 1 {
		for i, seg := range segs {
			c, err := a.synthesizeOne(ctx, seg)
			if err != nil {
				return nil, err
			}
			clips[i] = c
		}
		return clips, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs = make([]error, len(segs))
		sem  = make(chan struct{}, a.cfg.Parallel)
	)
	for i, seg := range segs {
		if seg.Content == "" {
			continue
		}
		wg.Add(1)
		go func(i int, seg segment.Segment) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = &SynthesisError{Index: seg.Index, Content: seg.Content, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			c, err := a.synthesizeOne(ctx, seg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			clips[i] = c
		}(i, seg)
	}
	wg.Wait()

	// 报告序号最小的真实失败段，被连带取消的段排在后面
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return nil, err
		}
		if first == nil {
			first = err
		}
	}
	if first != nil {
		return nil, first
	}
	return clips, nil
}

func (a *Assembler) synthesizeOne(ctx context.Context, seg segment.Segment) (*audio.Clip, error) {
	if seg.Content == "" {
		return nil, nil
	}
	c, err := a.engine.Synthesize(ctx, seg.Content)
	if err == nil && (c == nil || len(c.Data) == 0) {
		err = ErrNoAudio
	}
	if err != nil {
		a.log.Warn("分段合成失败",
			zap.Int("segment", seg.Index),
			zap.String("content", seg.Content),
			zap.Error(err))
		return nil, &SynthesisError{Index: seg.Index, Content: seg.Content, Err: err}
	}
	c.Index = seg.Index
	audio.ApplyFade(c, a.cfg.FadeMs)
	return c, nil
}
