package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/stt"
	"github.com/iabetor/taigivoice/internal/tts"
)

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"services": gin.H{
			"tts":     true,
			"stt":     s.router != nil,
			"history": s.history != nil,
		},
	})
}

func (s *Server) handleConvert(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "未提供文本"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	romanized, err := s.speech.Romanize(ctx, req.Text)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"text":    req.Text,
		"tlpa":    romanized,
	})
}

// handleTTS 默认返回 JSON（音频为 base64）；?format=wav 时直接返回 WAV。
func (s *Server) handleTTS(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "未提供文本"})
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	res, err := s.speech.Speak(ctx, req.Text)
	if err != nil {
		s.log.Warn("合成失败", zap.Error(err))
		c.JSON(statusOf(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	wav := res.WAV()
	c.Header("X-Synthesis-Mode", string(res.Mode))
	c.Header("X-Synthesis-Id", res.ID)
	if c.Query("format") == "wav" {
		c.Data(http.StatusOK, "audio/wav", wav)
		return
	}

	body := gin.H{
		"success":   true,
		"id":        res.ID,
		"text":      res.Text,
		"tlpa":      res.Romanized,
		"mode":      res.Mode,
		"cached":    res.Cached,
		"file_size": len(wav),
		"audio":     base64.StdEncoding.EncodeToString(wav),
	}
	if res.Reason != "" {
		body["fallback_reason"] = res.Reason
	}
	c.JSON(http.StatusOK, body)
}

type sttRequest struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sample_rate"`
	// Format pcm（默认，16-bit 单声道）、wav 或 mp3。
	Format string `json:"format"`
}

// handleSTT 接受 multipart 文件或 base64 JSON。
func (s *Server) handleSTT(c *gin.Context) {
	if s.router == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "未配置语音识别服务"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxAudioBytes)

	ctx, cancel := s.requestContext(c)
	defer cancel()

	var (
		data   []byte
		rate   = audio.SpeechRate
		format string
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("audio")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "未提供音频数据"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		data, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		if v, err := strconv.Atoi(c.PostForm("sample_rate")); err == nil && v > 0 {
			rate = v
		}
		format = c.PostForm("format")
	} else {
		var req sttRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Audio == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "未提供音频数据"})
			return
		}
		raw, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "音频不是合法的 base64"})
			return
		}
		data = raw
		if req.SampleRate > 0 {
			rate = req.SampleRate
		}
		format = req.Format
	}

	clip, err := decodeUpload(c, data, rate, format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	res, err := s.router.Recognize(ctx, clip)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"success": false, "id": res.ID, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"id":                 res.ID,
		"provider":           res.Route,
		"transcript":         res.Transcript,
		"confidence":         res.Confidence,
		"primary_confidence": res.PrimaryConfidence,
	})
}

// decodeUpload 按声明格式解码；RIFF 头总是按 WAV 处理。
func decodeUpload(c *gin.Context, data []byte, rate int, format string) (*audio.Clip, error) {
	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("音频为空")
	case format == "wav" || bytes.HasPrefix(data, []byte("RIFF")):
		return audio.DecodeWAVBytes(data)
	case format == "mp3":
		return audio.DecodeMP3(c.Request.Context(), data)
	case format == "" || format == "pcm":
		if len(data)%2 != 0 {
			data = data[:len(data)-1]
		}
		return audio.NewClip16(audio.BytesToInt16(data), rate, 1), nil
	}
	return nil, fmt.Errorf("不支持的音频格式: %s", format)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "未启用历史记录"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	kind := c.DefaultQuery("kind", "all")
	ctx := c.Request.Context()

	body := gin.H{}
	if kind == "all" || kind == "tts" {
		syn, err := s.history.ListSyntheses(ctx, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		body["syntheses"] = nonNil(syn)
	}
	if kind == "all" || kind == "stt" {
		rec, err := s.history.ListRecognitions(ctx, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		body["recognitions"] = nonNil(rec)
	}
	c.JSON(http.StatusOK, body)
}

// statusOf 把领域错误映射为 HTTP 状态码。
func statusOf(err error) int {
	switch {
	case errors.Is(err, tts.ErrNoContent), errors.Is(err, stt.ErrNoTranscript):
		return http.StatusBadRequest
	case errors.Is(err, tts.ErrSynthesisFailed), errors.Is(err, tts.ErrAudioFormatMismatch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
