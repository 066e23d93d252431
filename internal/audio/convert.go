package audio

import (
	"fmt"
	"math"
	"time"
)

// Format 描述 PCM 数据的格式。拼接的各段必须完全一致。
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Mono16 返回指定采样率的单声道 16-bit 格式。
func Mono16(sampleRate int) Format {
	return Format{SampleRate: sampleRate, Channels: 1, BitDepth: 16}
}

// BytesPerFrame 每帧（所有声道各一个样本）的字节数。
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitDepth / 8
}

// Valid 检查格式字段是否可用。
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0 && f.BitDepth > 0 && f.BitDepth%8 == 0
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// Clip 是一段交错存储的小端 PCM 音频。
type Clip struct {
	Format Format
	Data   []byte
	// Index 对应的文本段序号，非分段来源为 -1。
	Index int
}

// NewClip16 用 int16 样本构造 16-bit 音频。
func NewClip16(samples []int16, sampleRate, channels int) *Clip {
	return &Clip{
		Format: Format{SampleRate: sampleRate, Channels: channels, BitDepth: 16},
		Data:   Int16ToBytes(samples),
		Index:  -1,
	}
}

// NewClipFloat32 用 [-1, 1] 的单声道 float32 样本构造 16-bit 音频。
func NewClipFloat32(samples []float32, sampleRate int) *Clip {
	return &Clip{
		Format: Mono16(sampleRate),
		Data:   Float32ToBytes(samples),
		Index:  -1,
	}
}

// Frames 返回帧数。
func (c *Clip) Frames() int {
	bpf := c.Format.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return len(c.Data) / bpf
}

// Duration 返回时长。
func (c *Clip) Duration() time.Duration {
	if c.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.Format.SampleRate)
}

// Samples16 把 16-bit 数据解释为 int16 样本（交错）。
func (c *Clip) Samples16() ([]int16, error) {
	if c.Format.BitDepth != 16 {
		return nil, fmt.Errorf("不支持的位深: %d", c.Format.BitDepth)
	}
	return BytesToInt16(c.Data), nil
}

// MonoFloat32 返回各声道平均后的单声道 float32 样本，用于播放。
func (c *Clip) MonoFloat32() ([]float32, error) {
	samples, err := c.Samples16()
	if err != nil {
		return nil, err
	}
	return Int16ToFloat32(DownmixInt16(samples, c.Format.Channels)), nil
}

// Int16ToFloat32 将 PCM int16 样本转换为 [-1.0, 1.0] 范围的 float32。
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// Float32ToInt16 将 [-1.0, 1.0] 范围的 float32 样本转换为 PCM int16，超出范围的值被钳位。
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(s * math.MaxInt16)
	}
	return out
}

// BytesToInt16 将小端字节切片转换为 int16 样本。
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

// Int16ToBytes 将 int16 样本转换为小端字节切片。
func Int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// BytesToFloat32 将原始 16-bit PCM 字节直接转换为 float32。
func BytesToFloat32(b []byte) []float32 {
	return Int16ToFloat32(BytesToInt16(b))
}

// Float32ToBytes 将 float32 样本直接转换为 16-bit PCM 字节。
func Float32ToBytes(in []float32) []byte {
	return Int16ToBytes(Float32ToInt16(in))
}

// DownmixInt16 交错多声道取平均为单声道。
func DownmixInt16(in []int16, channels int) []int16 {
	if channels <= 1 {
		return in
	}
	n := len(in) / channels
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += int(in[i*channels+ch])
		}
		out[i] = int16(sum / channels)
	}
	return out
}
