package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/config"
	"github.com/iabetor/taigivoice/internal/lexicon"
	"github.com/iabetor/taigivoice/internal/logger"
	"github.com/iabetor/taigivoice/internal/script"
	"github.com/iabetor/taigivoice/internal/store"
	"github.com/iabetor/taigivoice/internal/stt"
	"github.com/iabetor/taigivoice/internal/telemetry"
	"github.com/iabetor/taigivoice/internal/tone"
	"github.com/iabetor/taigivoice/internal/tonal"
	"github.com/iabetor/taigivoice/internal/tts"
)

// app 持有各命令共用的组件。
type app struct {
	cfg     *config.Config
	speech  *tts.Service
	router  *stt.Router
	history *store.DB
	metrics *telemetry.Metrics
	closers []func()
}

// appNeeds 声明命令需要的可选组件。
type appNeeds struct {
	stt     bool
	history bool
	metrics bool
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if cfgFile == "" {
		cfg = config.Default()
	} else {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, nil
}

// buildTiers 加载层级词典。失败的来源已由 lexicon 逐条记录，这里只汇总数量。
func buildTiers(cfg *config.Config, normalize func(string) string) (*lexicon.Tiers, []error) {
	tiers, errs := lexicon.Build(lexicon.Sources{
		PhraseTSV:    cfg.Lexicon.PhraseTSV,
		LexiconTSV:   cfg.Lexicon.LexiconTSV,
		ManualTSV:    cfg.Lexicon.ManualTSV,
		CharacterTSV: cfg.Lexicon.CharacterTSV,
		SutianCSV:    cfg.Lexicon.SutianCSV,
		SkipWords:    cfg.Lexicon.SkipWords,
		Builtin:      cfg.Lexicon.UseBuiltin(),
	}, normalize)
	if len(errs) > 0 {
		logger.Warnf("[main] 词典已加载: %v，%d 个来源加载失败", tiers.Sizes(), len(errs))
	} else {
		logger.Infof("[main] 词典已加载: %v", tiers.Sizes())
	}
	return tiers, errs
}

func newApp(needs appNeeds) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	if needs.history {
		if a.history, err = store.Open(cfg.Store.Path); err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { a.history.Close() })
	}
	if needs.metrics && cfg.Telemetry.On() {
		if a.metrics, err = telemetry.New("taigivoice"); err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { a.metrics.Shutdown(context.Background()) })
	}

	if a.speech, err = a.buildSpeech(); err != nil {
		a.Close()
		return nil, err
	}
	if needs.stt {
		if a.router, err = a.buildRouter(); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) buildSpeech() (*tts.Service, error) {
	cfg := a.cfg
	norm, err := tone.New(cfg.Lexicon.DefaultTone)
	if err != nil {
		return nil, err
	}
	norm.OnAmbiguous = func(e *tone.AmbiguousError) {
		logger.Debugf("[tone] %v", e)
	}

	tiers, _ := buildTiers(cfg, norm.Normalize)

	opts := lexicon.Options{
		Mode:     lexicon.ParseMode(cfg.Lexicon.Mode),
		Chaining: lexicon.ParseChaining(cfg.Lexicon.Chaining),
		Window:   cfg.Lexicon.Window,
	}
	if cfg.Lexicon.PinyinFallback {
		opts.Residual = lexicon.NewPinyinResidual()
	}

	endings := lexicon.DefaultEndings
	if cfg.Lexicon.EndingsFile != "" {
		extra, err := lexicon.LoadEndings(cfg.Lexicon.EndingsFile)
		if err != nil {
			logger.Warnf("[main] %v，使用内置句尾助词", err)
		} else {
			endings = append(append([]string{}, endings...), extra...)
		}
	}

	so := tts.Options{
		Converter: lexicon.NewConverter(tiers, opts),
		Tone:      norm,
		Endings:   endings,
		Tonal:     tonal.New(cfg.Tonal),
		Fallback:  cfg.TTS.Fallback,
	}

	if cfg.Script.Enabled {
		sn, err := script.New(cfg.Script)
		if err != nil {
			logger.Warnf("[main] 字形统一不可用: %v", err)
		} else {
			so.Script = sn
		}
	}

	engine, err := a.buildEngine()
	if err != nil {
		if !cfg.TTS.Fallback {
			return nil, err
		}
		logger.Warnf("[main] 合成引擎不可用，只使用过程式合成: %v", err)
	}
	if engine != nil {
		so.Assembler = tts.NewAssembler(engine, cfg.Assembler)
	}

	if so.Cache, err = audio.NewClipCache(cfg.Cache.Dir, cfg.Cache.MaxSizeMB); err != nil {
		logger.Warnf("[main] 缓存不可用: %v", err)
	}

	if a.history != nil {
		so.Hooks = append(so.Hooks, a.history.SynthesisHook())
	}
	if a.metrics != nil {
		so.Hooks = append(so.Hooks, a.metrics.SynthesisHook())
	}
	return tts.NewService(so)
}

// buildEngine 按配置创建神经合成引擎；tonal 返回 nil。
func (a *app) buildEngine() (tts.Engine, error) {
	switch a.cfg.TTS.Engine {
	case "tonal":
		return nil, nil
	case "sherpa":
		e, err := tts.NewSherpaEngine(a.cfg.TTS.Sherpa)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, e.Close)
		return e, nil
	case "exec":
		e, err := tts.NewExecEngine(a.cfg.TTS.Exec)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "http":
		e, err := tts.NewHTTPEngine(a.cfg.TTS.HTTP)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("不支持的合成引擎: %s", a.cfg.TTS.Engine)
}

func (a *app) buildRouter() (*stt.Router, error) {
	cfg := a.cfg.STT
	var primary, secondary stt.Recognizer
	if cfg.Google.APIKey != "" {
		g, err := stt.NewGoogleRecognizer(cfg.Google)
		if err != nil {
			return nil, err
		}
		primary = g
	}
	if cfg.Yating.APIKey != "" {
		y, err := stt.NewYatingRecognizer(cfg.Yating)
		if err != nil {
			return nil, err
		}
		secondary = y
	}
	if primary == nil && secondary == nil {
		logger.Warn("[main] 未配置 GOOGLE_API_KEY 或 YATING_API_KEY，语音识别不可用")
		return nil, nil
	}

	rc := stt.RouterConfig{Threshold: cfg.Threshold, TrimSilence: cfg.TrimSilence == nil || *cfg.TrimSilence}
	if a.history != nil {
		rc.Hooks = append(rc.Hooks, a.history.RecognitionHook())
	}
	if a.metrics != nil {
		rc.Hooks = append(rc.Hooks, a.metrics.RecognitionHook())
	}
	return stt.NewRouter(primary, secondary, rc)
}

// Close 按创建的逆序释放资源。
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	logger.Sync()
}

// signalContext 在 SIGINT/SIGTERM 时取消。
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
