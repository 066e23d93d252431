package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/iabetor/taigivoice/internal/audio"
	"github.com/iabetor/taigivoice/internal/logger"
)

// 命令模板中的占位符。
const (
	PlaceholderText   = "{text}"
	PlaceholderOutput = "{output}"
)

// ExecConfig 子进程合成配置。
type ExecConfig struct {
	// Command 命令模板，如 `piper --model tw.onnx --output_file {output}`。
	// 不含 {text} 时文本从 stdin 传入；不含 {output} 时从 stdout 读取原始 PCM。
	Command string `yaml:"command"`
	// RawSampleRate stdout 原始 PCM（16-bit 单声道）的采样率。
	RawSampleRate int `yaml:"raw_sample_rate"`
}

// ExecEngine 通过外部命令（piper、自训练模型脚本等）合成，每段一个临时 WAV 文件。
type ExecEngine struct {
	args    []string
	rawRate int
}

// NewExecEngine 解析命令模板。
func NewExecEngine(cfg ExecConfig) (*ExecEngine, error) {
	args, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("解析合成命令失败: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("合成命令为空")
	}
	if cfg.RawSampleRate <= 0 {
		cfg.RawSampleRate = 22050
	}
	return &ExecEngine{args: args, rawRate: cfg.RawSampleRate}, nil
}

func (e *ExecEngine) Name() string { return "exec:" + e.args[0] }

func (e *ExecEngine) usesOutputFile() bool {
	for _, a := range e.args {
		if strings.Contains(a, PlaceholderOutput) {
			return true
		}
	}
	return false
}

// Synthesize 运行命令。临时文件在返回前删除，成功失败都一样。
func (e *ExecEngine) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	logger.Debugf("[tts] exec: 正在合成 %d 个字符", len([]rune(text)))

	var outPath string
	if e.usesOutputFile() {
		tmpFile, err := os.CreateTemp("", "taigivoice-seg-*.wav")
		if err != nil {
			return nil, fmt.Errorf("创建临时文件失败: %w", err)
		}
		outPath = tmpFile.Name()
		tmpFile.Close()
		defer os.Remove(outPath)
	}

	textInArgs := false
	args := make([]string, len(e.args))
	for i, a := range e.args {
		if strings.Contains(a, PlaceholderText) {
			textInArgs = true
		}
		a = strings.ReplaceAll(a, PlaceholderText, text)
		args[i] = strings.ReplaceAll(a, PlaceholderOutput, outPath)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if !textInArgs {
		cmd.Stdin = strings.NewReader(text)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if s := stderr.String(); s != "" {
			logger.Warnf("[tts] exec stderr: %s", s)
		}
		return nil, fmt.Errorf("合成命令执行失败: %w", err)
	}

	if outPath == "" {
		if stdout.Len() == 0 {
			return nil, ErrNoAudio
		}
		logger.Debugf("[tts] exec: 收到 %d 字节原始 PCM", stdout.Len())
		return &audio.Clip{Format: audio.Mono16(e.rawRate), Data: stdout.Bytes(), Index: -1}, nil
	}

	clip, err := audio.ReadWAVFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("读取合成结果失败: %w", err)
	}
	logger.Debugf("[tts] exec: 收到 %s 音频 %v", clip.Format, clip.Duration())
	return clip, nil
}
