package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/logger"
)

const (
	defaultYatingTokenURL  = "https://asr.api.yating.tw/v1/token"
	defaultYatingStreamURL = "wss://asr.api.yating.tw/ws/v1/"
	defaultYatingPipeline  = "asr-zh-en-nan"
	defaultChunkSamples    = 1000
	defaultFinalWait       = 6 * time.Second
	tokenTimeout           = 10 * time.Second
	endOfStreamGap         = 100 * time.Millisecond
)

// YatingConfig 雅婷台语流式识别配置。
type YatingConfig struct {
	APIKey       string        `yaml:"api_key"`
	TokenURL     string        `yaml:"token_url"`
	StreamURL    string        `yaml:"stream_url"`
	Pipeline     string        `yaml:"pipeline"`
	ChunkSamples int           `yaml:"chunk_samples"`
	FinalWait    time.Duration `yaml:"final_wait"`
}

// YatingRecognizer 台语专用识别服务，不提供置信度。
// 每次请求使用独立的 WebSocket 连接。
type YatingRecognizer struct {
	cfg    YatingConfig
	client *http.Client
	log    *zap.Logger
}

// NewYatingRecognizer 创建雅婷识别器。
func NewYatingRecognizer(cfg YatingConfig) (*YatingRecognizer, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Yating API Key 不能为空")
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultYatingTokenURL
	}
	if cfg.StreamURL == "" {
		cfg.StreamURL = defaultYatingStreamURL
	}
	if cfg.Pipeline == "" {
		cfg.Pipeline = defaultYatingPipeline
	}
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = defaultChunkSamples
	}
	if cfg.FinalWait <= 0 {
		cfg.FinalWait = defaultFinalWait
	}

	logger.Infof("[stt] Yating 识别已初始化 (pipeline=%s)", cfg.Pipeline)
	return &YatingRecognizer{
		cfg:    cfg,
		client: &http.Client{Timeout: tokenTimeout},
		log:    logger.Named("stt").With(zap.String("provider", "yating")),
	}, nil
}

// Name 实现 Recognizer 接口。
func (y *YatingRecognizer) Name() string { return "yating" }

type yatingTokenResponse struct {
	AuthToken string `json:"auth_token"`
}

type yatingEvent struct {
	Pipe struct {
		ASRFinal    bool   `json:"asr_final"`
		ASRSentence string `json:"asr_sentence"`
	} `json:"pipe"`
}

// token 换取短期令牌。
func (y *YatingRecognizer) token(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{"pipeline": y.cfg.Pipeline})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建令牌请求失败: %w", err)
	}
	req.Header.Set("key", y.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("获取令牌失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("获取令牌失败 (status=%d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tr yatingTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("解析令牌响应失败: %w", err)
	}
	if tr.AuthToken == "" {
		return "", fmt.Errorf("响应中没有 auth_token")
	}
	return tr.AuthToken, nil
}

// Recognize 实现 Recognizer 接口：按实时节奏推送音频，发送两次结束标记，
// 在 FinalWait 内等待 asr_final 消息。
func (y *YatingRecognizer) Recognize(ctx context.Context, pcm []int16, sampleRate int) (Recognition, error) {
	if sampleRate != audio.SpeechRate {
		pcm = audio.Resample(pcm, sampleRate, audio.SpeechRate)
	}

	token, err := y.token(ctx)
	if err != nil {
		return Recognition{}, err
	}

	wsURL := y.cfg.StreamURL + "?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return Recognition{}, fmt.Errorf("WebSocket 连接失败: %w", err)
	}
	defer conn.Close()

	resultChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			msgType, message, err := conn.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}

			var ev yatingEvent
			if err := json.Unmarshal(message, &ev); err != nil {
				continue
			}
			if ev.Pipe.ASRFinal {
				resultChan <- ev.Pipe.ASRSentence
				return
			}
		}
	}()

	data := audio.Int16ToBytes(pcm)
	chunkBytes := y.cfg.ChunkSamples * 2
	pace := time.Duration(float64(time.Second) * float64(y.cfg.ChunkSamples) / float64(audio.SpeechRate))
	y.log.Debug("开始推送音频", zap.Int("bytes", len(data)), zap.Int("chunk", chunkBytes))

	for i := 0; i < len(data); i += chunkBytes {
		end := i + chunkBytes
		if end > len(data) {
			end = len(data)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data[i:end]); err != nil {
			return Recognition{}, fmt.Errorf("发送音频失败: %w", err)
		}
		if err := sleepCtx(ctx, pace); err != nil {
			return Recognition{}, err
		}
	}

	// 两次空帧表示结束
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{}); err != nil {
		return Recognition{}, fmt.Errorf("发送结束信号失败: %w", err)
	}
	if err := sleepCtx(ctx, endOfStreamGap); err != nil {
		return Recognition{}, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{}); err != nil {
		return Recognition{}, fmt.Errorf("发送结束信号失败: %w", err)
	}

	select {
	case <-ctx.Done():
		return Recognition{}, ctx.Err()
	case text := <-resultChan:
		text = strings.TrimSpace(text)
		y.log.Debug("收到最终结果", zap.String("text", text))
		return Recognition{Transcript: text}, nil
	case err := <-errChan:
		return Recognition{}, fmt.Errorf("读取识别结果失败: %w", err)
	case <-time.After(y.cfg.FinalWait):
		return Recognition{}, fmt.Errorf("等待最终结果 %v: %w", y.cfg.FinalWait, ErrNetworkTimeout)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
