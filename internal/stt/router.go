package stt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/logger"
)

// Route 结果来源标记。
type Route string

const (
	RoutePrimary              Route = "primary"
	RouteSecondary            Route = "secondary"
	RoutePrimaryLowConfidence Route = "primary-low-confidence"
)

// DefaultThreshold 直接采用通用识别结果所需的最低置信度。
const DefaultThreshold = 0.80

// 尾部静音裁剪参数
const (
	silenceThreshold = 300
	silenceMinMs     = 500
	silenceTailMs    = 200
)

// Result 一次路由识别的结果。
type Result struct {
	ID         string   `json:"id"`
	Transcript string   `json:"transcript"`
	Route      Route    `json:"route,omitempty"`
	Confidence *float64 `json:"confidence"`
	// PrimaryConfidence 通用识别的置信度，即使最终采用了专用识别。
	PrimaryConfidence *float64         `json:"primary_confidence,omitempty"`
	State             State            `json:"-"`
	Errors            []*ProviderError `json:"-"`
	AudioDuration     time.Duration    `json:"audio_duration"`
	Elapsed           time.Duration    `json:"elapsed"`
}

// Hook 在每次请求结束时调用，err 为 nil 表示成功。
type Hook func(ctx context.Context, res *Result, err error)

// RouterConfig 路由配置。
type RouterConfig struct {
	Threshold   float64
	TrimSilence bool
	Hooks       []Hook
}

// Router 置信度路由。每个请求严格顺序执行：先通用识别，置信度不足再请求专用识别。
type Router struct {
	primary   Recognizer
	secondary Recognizer
	threshold float64
	trim      bool
	hooks     []Hook
	log       *zap.Logger
}

// NewRouter 创建路由。primary 和 secondary 至少需要一个。
func NewRouter(primary, secondary Recognizer, cfg RouterConfig) (*Router, error) {
	if primary == nil && secondary == nil {
		return nil, fmt.Errorf("至少需要一个识别服务")
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Router{
		primary:   primary,
		secondary: secondary,
		threshold: cfg.Threshold,
		trim:      cfg.TrimSilence,
		hooks:     cfg.Hooks,
		log:       logger.Named("stt"),
	}, nil
}

// AddHook 追加请求结束回调。
func (r *Router) AddHook(h Hook) {
	r.hooks = append(r.hooks, h)
}

// Threshold 返回置信度阈值。
func (r *Router) Threshold() float64 { return r.threshold }

// Recognize 识别任意格式的 16-bit 音频片段。
func (r *Router) Recognize(ctx context.Context, clip *audio.Clip) (*Result, error) {
	res := &Result{ID: uuid.New().String()}
	sm := NewStateMachine()
	sm.SetOnChange(func(from, to State) { res.State = to })
	sm.Transition(StateListening)

	pcm, err := audio.ToSpeechPCM(clip)
	if err != nil {
		sm.Transition(StateFailed)
		return r.finish(ctx, res, time.Now(), err)
	}
	return r.route(ctx, sm, res, pcm)
}

// RecognizePCM 识别 16kHz 单声道 int16 音频。
func (r *Router) RecognizePCM(ctx context.Context, pcm []int16) (*Result, error) {
	res := &Result{ID: uuid.New().String()}
	sm := NewStateMachine()
	sm.SetOnChange(func(from, to State) { res.State = to })
	sm.Transition(StateListening)
	return r.route(ctx, sm, res, pcm)
}

func (r *Router) route(ctx context.Context, sm *StateMachine, res *Result, pcm []int16) (*Result, error) {
	start := time.Now()
	if r.trim {
		pcm = audio.TrimTrailingSilence(pcm, audio.SpeechRate, silenceThreshold, silenceMinMs, silenceTailMs)
	}
	res.AudioDuration = time.Duration(len(pcm)) * time.Second / audio.SpeechRate
	sm.Transition(StateProcessing)

	log := r.log.With(zap.String("request_id", res.ID))

	var primary Recognition
	if r.primary != nil {
		primary = r.attempt(ctx, log, res, r.primary, pcm)
		if primary.HasConfidence {
			conf := primary.Confidence
			res.PrimaryConfidence = &conf
		}
		if primary.Transcript != "" && primary.HasConfidence && primary.Confidence >= r.threshold {
			return r.resolve(ctx, sm, res, start, primary.Transcript, RoutePrimary, res.PrimaryConfidence)
		}
		log.Info("通用识别置信度不足", zap.Float64("confidence", primary.Confidence), zap.Float64("threshold", r.threshold))
	}

	if ctx.Err() == nil && r.secondary != nil {
		secondary := r.attempt(ctx, log, res, r.secondary, pcm)
		if secondary.Transcript != "" {
			var conf *float64
			if secondary.HasConfidence {
				c := secondary.Confidence
				conf = &c
			}
			return r.resolve(ctx, sm, res, start, secondary.Transcript, RouteSecondary, conf)
		}
	}

	if primary.Transcript != "" {
		return r.resolve(ctx, sm, res, start, primary.Transcript, RoutePrimaryLowConfidence, res.PrimaryConfidence)
	}

	sm.Transition(StateFailed)
	err := ErrNoTranscript
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ErrNoTranscript, ctxErr)
	}
	return r.finish(ctx, res, start, err)
}

// attempt 调用单个识别服务，任何失败都视为无结果。
func (r *Router) attempt(ctx context.Context, log *zap.Logger, res *Result, rec Recognizer, pcm []int16) Recognition {
	t0 := time.Now()
	out, err := rec.Recognize(ctx, pcm, audio.SpeechRate)
	if err != nil {
		pe := newProviderError(rec.Name(), err)
		res.Errors = append(res.Errors, pe)
		log.Warn("识别服务无结果", zap.String("provider", rec.Name()), zap.Bool("timeout", pe.Timeout), zap.Error(err))
		return Recognition{}
	}
	log.Debug("识别服务返回",
		zap.String("provider", rec.Name()),
		zap.String("text", out.Transcript),
		zap.Float64("confidence", out.Confidence),
		zap.Duration("elapsed", time.Since(t0)))
	return out
}

func (r *Router) resolve(ctx context.Context, sm *StateMachine, res *Result, start time.Time, text string, route Route, conf *float64) (*Result, error) {
	res.Transcript = text
	res.Route = route
	res.Confidence = conf
	sm.Transition(StateResolved)
	return r.finish(ctx, res, start, nil)
}

func (r *Router) finish(ctx context.Context, res *Result, start time.Time, err error) (*Result, error) {
	res.Elapsed = time.Since(start)
	if err != nil {
		r.log.Warn("识别失败", zap.String("request_id", res.ID), zap.Int("attempts", len(res.Errors)), zap.Error(err))
	} else {
		r.log.Info("识别完成",
			zap.String("request_id", res.ID),
			zap.String("route", string(res.Route)),
			zap.String("text", res.Transcript),
			zap.Duration("elapsed", res.Elapsed))
	}
	for _, h := range r.hooks {
		h(ctx, res, err)
	}
	return res, err
}

// TimedOut 返回超时的识别服务名。
func (res *Result) TimedOut() []string {
	var names []string
	for _, e := range res.Errors {
		if errors.Is(e, ErrNetworkTimeout) {
			names = append(names, e.Provider)
		}
	}
	return names
}
