package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/logger"
)

// HTTPConfig 远程合成服务配置。
type HTTPConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Speaker string        `yaml:"speaker"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPEngine 调用远程合成服务。请求体为 {"text": ...}；
// 响应可以是 WAV/MP3 字节，也可以是带 base64 "audio" 字段的 JSON。
type HTTPEngine struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPEngine 创建远程合成引擎。
func NewHTTPEngine(cfg HTTPConfig) (*HTTPEngine, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("远程合成地址为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPEngine{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (e *HTTPEngine) Name() string { return "http" }

type httpSynthRequest struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}

type httpSynthResponse struct {
	Success bool   `json:"success"`
	Audio   string `json:"audio"`
	Error   string `json:"error"`
}

// Synthesize 发送一段罗马字并解码返回的音频。
func (e *HTTPEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	body, err := json.Marshal(httpSynthRequest{Text: text, Speaker: e.cfg.Speaker})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("远程合成请求失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("远程合成返回 %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var r httpSynthResponse
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("解析响应失败: %w", err)
		}
		if r.Error != "" {
			return nil, fmt.Errorf("远程合成失败: %s", r.Error)
		}
		if data, err = base64.StdEncoding.DecodeString(r.Audio); err != nil {
			return nil, fmt.Errorf("Base64 解码失败: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, ErrNoAudio
	}

	logger.Debugf("[tts] http: 收到 %d 字节音频", len(data))
	if audio.IsMP3(data) {
		return audio.DecodeMP3(ctx, data)
	}
	return audio.DecodeWAVBytes(data)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
