package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/logger"
)

const (
	defaultGoogleURL        = "https://speech.googleapis.com/v1/speech:recognize"
	defaultGoogleLanguage   = "nan-TW"
	defaultGoogleMaxSeconds = 55
)

var defaultGoogleAlternates = []string{"zh-TW", "en-US"}

// GoogleConfig Google Speech-to-Text REST 配置。
type GoogleConfig struct {
	APIKey     string        `yaml:"api_key"`
	URL        string        `yaml:"url"`
	Language   string        `yaml:"language"`
	Alternates []string      `yaml:"alternates"`
	MaxSeconds int           `yaml:"max_seconds"`
	Timeout    time.Duration `yaml:"timeout"`
}

// GoogleRecognizer 通用识别服务，返回带置信度的文本。
type GoogleRecognizer struct {
	cfg    GoogleConfig
	client *http.Client
}

// NewGoogleRecognizer 创建 Google 识别器。
func NewGoogleRecognizer(cfg GoogleConfig) (*GoogleRecognizer, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Google API Key 不能为空")
	}
	if cfg.URL == "" {
		cfg.URL = defaultGoogleURL
	}
	if cfg.Language == "" {
		cfg.Language = defaultGoogleLanguage
	}
	if cfg.Alternates == nil {
		cfg.Alternates = defaultGoogleAlternates
	}
	if cfg.MaxSeconds <= 0 {
		cfg.MaxSeconds = defaultGoogleMaxSeconds
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Infof("[stt] Google 识别已初始化 (language=%s, alternates=%v)", cfg.Language, cfg.Alternates)
	return &GoogleRecognizer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name 实现 Recognizer 接口。
func (g *GoogleRecognizer) Name() string { return "google" }

type googleRequest struct {
	Config googleRecognitionConfig `json:"config"`
	Audio  googleAudio             `json:"audio"`
}

type googleRecognitionConfig struct {
	Encoding                   string   `json:"encoding"`
	SampleRateHertz            int      `json:"sampleRateHertz"`
	LanguageCode               string   `json:"languageCode"`
	AlternativeLanguageCodes   []string `json:"alternativeLanguageCodes,omitempty"`
	EnableAutomaticPunctuation bool     `json:"enableAutomaticPunctuation"`
}

type googleAudio struct {
	Content string `json:"content"`
}

type googleResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Recognize 实现 Recognizer 接口。音频超过 MaxSeconds 时截断。
func (g *GoogleRecognizer) Recognize(ctx context.Context, pcm []int16, sampleRate int) (Recognition, error) {
	if max := g.cfg.MaxSeconds * sampleRate; len(pcm) > max {
		logger.Debugf("[stt] 音频超过 %d 秒，截断", g.cfg.MaxSeconds)
		pcm = pcm[:max]
	}

	body, err := json.Marshal(googleRequest{
		Config: googleRecognitionConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            sampleRate,
			LanguageCode:               g.cfg.Language,
			AlternativeLanguageCodes:   g.cfg.Alternates,
			EnableAutomaticPunctuation: true,
		},
		Audio: googleAudio{Content: base64.StdEncoding.EncodeToString(audio.Int16ToBytes(pcm))},
	})
	if err != nil {
		return Recognition{}, fmt.Errorf("序列化请求失败: %w", err)
	}

	endpoint := g.cfg.URL + "?key=" + url.QueryEscape(g.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Recognition{}, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Recognition{}, fmt.Errorf("请求 Google 识别失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Recognition{}, fmt.Errorf("读取响应失败: %w", err)
	}

	var result googleResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return Recognition{}, fmt.Errorf("解析响应失败 (status=%d): %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return Recognition{}, fmt.Errorf("Google 识别错误 (code=%d): %s", result.Error.Code, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Recognition{}, fmt.Errorf("Google 识别返回状态 %d", resp.StatusCode)
	}

	if len(result.Results) == 0 || len(result.Results[0].Alternatives) == 0 {
		return Recognition{HasConfidence: true}, nil
	}
	alt := result.Results[0].Alternatives[0]
	return Recognition{
		Transcript:    strings.TrimSpace(alt.Transcript),
		Confidence:    alt.Confidence,
		HasConfidence: true,
	}, nil
}
