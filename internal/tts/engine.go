// Package tts 把数字调罗马字逐段送入合成后端并拼接成完整音频。
package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/iabetor/taigivoice/internal/audio"
)

// Engine 定义语音合成后端接口。
type Engine interface {
	// Synthesize 把一段罗马字合成为音频，保留后端原始格式。
	Synthesize(ctx context.Context, text string) (*audio.Clip, error)
	// Name 用于日志和缓存键。
	Name() string
}

// EngineFunc 把普通函数适配为 Engine。
type EngineFunc struct {
	ID string
	Fn func(ctx context.Context, text string) (*audio.Clip, error)
}

func (f EngineFunc) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	return f.Fn(ctx, text)
}

func (f EngineFunc) Name() string { return f.ID }

var (
	// ErrSynthesisFailed 某段合成失败，整次拼接作废。
	ErrSynthesisFailed = errors.New("合成失败")
	// ErrAudioFormatMismatch 各段音频格式不一致。
	ErrAudioFormatMismatch = errors.New("音频格式不一致")
	// ErrNoContent 文本没有可读内容。
	ErrNoContent = errors.New("文本没有可合成的内容")
	// ErrNoAudio 后端返回空音频。
	ErrNoAudio = errors.New("未收到音频数据")
)

// SynthesisError 记录失败的段序号和内容。
type SynthesisError struct {
	Index   int
	Content string
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("第 %d 段合成失败 (%q): %v", e.Index, e.Content, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func (e *SynthesisError) Is(target error) bool { return target == ErrSynthesisFailed }

// FormatMismatchError 第 Index 段格式与首段不同。
type FormatMismatchError struct {
	Index int
	Want  audio.Format
	Got   audio.Format
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("第 %d 段格式 %s 与 %s 不一致", e.Index, e.Got, e.Want)
}

func (e *FormatMismatchError) Is(target error) bool { return target == ErrAudioFormatMismatch }
