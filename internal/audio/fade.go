package audio

import (
	"bytes"
	"fmt"
)

// ApplyFade 对 16-bit 音频首尾做线性淡入淡出，原地修改。
// 淡入长度超过声音本身时按整段处理；非 16-bit 数据不做处理。
func ApplyFade(c *Clip, fadeMs int) {
	if c.Format.BitDepth != 16 || c.Format.Channels <= 0 {
		return
	}
	nch := c.Format.Channels
	fadeLen := c.Format.SampleRate * fadeMs / 1000
	if fadeLen <= 0 {
		return
	}

	samples := BytesToInt16(c.Data)
	if frames := len(samples) / nch; fadeLen > frames {
		fadeLen = frames
	}
	if fadeLen <= 1 {
		return
	}

	for ch := 0; ch < nch; ch++ {
		for i := 0; i < fadeLen; i++ {
			idx := i*nch + ch
			samples[idx] = int16(float64(samples[idx]) * float64(i) / float64(fadeLen))
		}
		for i := 0; i < fadeLen; i++ {
			idx := len(samples) - nch + ch - i*nch
			if idx < 0 {
				break
			}
			samples[idx] = int16(float64(samples[idx]) * float64(fadeLen-i) / float64(fadeLen))
		}
	}
	copy(c.Data, Int16ToBytes(samples))
}

// Silence 生成指定时长的静音。
func Silence(f Format, ms int) *Clip {
	frames := f.SampleRate * ms / 1000
	return &Clip{Format: f, Data: make([]byte, frames*f.BytesPerFrame()), Index: -1}
}

// Concat 拼接同格式的音频。格式不一致返回错误。
func Concat(clips ...*Clip) (*Clip, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("没有可拼接的音频")
	}
	f := clips[0].Format
	var buf bytes.Buffer
	for i, c := range clips {
		if c.Format != f {
			return nil, fmt.Errorf("第 %d 段格式 %s 与 %s 不一致", i, c.Format, f)
		}
		buf.Write(c.Data)
	}
	return &Clip{Format: f, Data: buf.Bytes(), Index: -1}, nil
}
