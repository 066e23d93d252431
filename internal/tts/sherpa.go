package tts

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/logger"
)

// SherpaConfig 本地 VITS 模型配置。
type SherpaConfig struct {
	// ModelDir 包含 model.onnx、tokens.txt、lexicon.txt 的目录。
	ModelDir   string  `yaml:"model_dir"`
	Model      string  `yaml:"model"`
	NumThreads int     `yaml:"num_threads"`
	SpeakerID  int     `yaml:"speaker_id"`
	Speed      float32 `yaml:"speed"`
}

// SherpaEngine 封装 sherpa-onnx 离线 VITS 合成器。
type SherpaEngine struct {
	mu    sync.Mutex
	tts   *sherpa.OfflineTts
	sid   int
	speed float32
}

var _ Engine = (*SherpaEngine)(nil)

// NewSherpaEngine 加载模型。
func NewSherpaEngine(cfg SherpaConfig) (*SherpaEngine, error) {
	if cfg.Model == "" {
		cfg.Model = "model.onnx"
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 2
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}

	config := sherpa.OfflineTtsConfig{}
	config.Model.Vits.Model = filepath.Join(cfg.ModelDir, cfg.Model)
	config.Model.Vits.Tokens = filepath.Join(cfg.ModelDir, "tokens.txt")
	config.Model.Vits.Lexicon = filepath.Join(cfg.ModelDir, "lexicon.txt")
	config.Model.Vits.NoiseScale = 0.667
	config.Model.Vits.NoiseScaleW = 0.8
	config.Model.Vits.LengthScale = 1.0
	config.Model.NumThreads = cfg.NumThreads
	config.Model.Provider = "cpu"

	tts := sherpa.NewOfflineTts(&config)
	if tts == nil {
		return nil, fmt.Errorf("创建离线合成器失败，模型目录: %s", cfg.ModelDir)
	}

	logger.Infof("[tts] Sherpa 引擎已初始化 (model=%s, threads=%d)", config.Model.Vits.Model, cfg.NumThreads)
	return &SherpaEngine{tts: tts, sid: cfg.SpeakerID, speed: cfg.Speed}, nil
}

func (e *SherpaEngine) Name() string { return "sherpa" }

// Synthesize 合成单段。推理不可并发，内部串行。
func (e *SherpaEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tts == nil {
		return nil, fmt.Errorf("合成器已关闭")
	}

	generated := e.tts.Generate(text, e.sid, e.speed)
	if generated == nil || len(generated.Samples) == 0 {
		return nil, ErrNoAudio
	}
	return audio.NewClipFloat32(generated.Samples, generated.SampleRate), nil
}

// Close 释放底层资源。
func (e *SherpaEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tts != nil {
		sherpa.DeleteOfflineTts(e.tts)
		e.tts = nil
	}
	logger.Info("[tts] Sherpa 引擎已关闭")
}
