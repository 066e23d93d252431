package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/iabetor/taigivoice/internal/logger"
)

// Player 使用 malgo (miniaudio) 播放合成结果。
type Player struct {
	ctx    *malgo.AllocatedContext
	mu     sync.Mutex
	closed bool
	log    *zap.Logger
}

// NewPlayer 创建播放器。
func NewPlayer() (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("初始化播放上下文失败: %w", err)
	}
	return &Player{ctx: ctx, log: logger.Named("audio")}, nil
}

// Play 按音频自身的采样率和声道数播放，阻塞直到播完或 ctx 取消。
func (p *Player) Play(ctx context.Context, c *Clip) error {
	if len(c.Data) == 0 {
		return nil
	}
	if c.Format.BitDepth != 16 {
		return fmt.Errorf("播放仅支持 16-bit，当前 %s", c.Format)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("播放器已关闭")
	}
	p.mu.Unlock()

	channels := uint32(c.Format.Channels)
	pcm := c.Data
	pos := 0
	done := make(chan struct{})

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = channels
	deviceConfig.SampleRate = uint32(c.Format.SampleRate)
	deviceConfig.PeriodSizeInFrames = 512
	deviceConfig.Periods = 2

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			need := int(frameCount) * int(channels) * 2
			if need > len(out) {
				need = len(out)
			}
			if pos >= len(pcm) {
				clear(out[:need])
				select {
				case done <- struct{}{}:
				default:
				}
				return
			}
			n := copy(out[:need], pcm[pos:])
			clear(out[n:need])
			pos += n
		},
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("初始化播放设备失败: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("启动播放设备失败: %w", err)
	}
	defer device.Stop()

	select {
	case <-ctx.Done():
		p.log.Info("播放被取消")
		return ctx.Err()
	case <-done:
		p.log.Debug("播放完成", zap.Duration("duration", c.Duration()))
		return nil
	}
}

// Close 释放资源。
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if p.ctx != nil {
		_ = p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil
	}
}
