package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// WAVHeaderSize 规范 PCM WAV 头长度。
const WAVHeaderSize = 44

// ErrInvalidWAV 不是可解析的 PCM WAV。
var ErrInvalidWAV = errors.New("无效的 WAV 数据")

// EncodeWAV 输出规范的 44 字节头 + PCM 数据。
func EncodeWAV(c *Clip) []byte {
	f := c.Format
	buf := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+len(c.Data)))
	le := binary.LittleEndian

	buf.WriteString("RIFF")
	binary.Write(buf, le, uint32(36+len(c.Data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, le, uint32(16))
	binary.Write(buf, le, uint16(1)) // PCM
	binary.Write(buf, le, uint16(f.Channels))
	binary.Write(buf, le, uint32(f.SampleRate))
	binary.Write(buf, le, uint32(f.SampleRate*f.BytesPerFrame()))
	binary.Write(buf, le, uint16(f.BytesPerFrame()))
	binary.Write(buf, le, uint16(f.BitDepth))
	buf.WriteString("data")
	binary.Write(buf, le, uint32(len(c.Data)))
	buf.Write(c.Data)
	return buf.Bytes()
}

// WriteWAVFile 写 WAV 文件。
func WriteWAVFile(path string, c *Clip) error {
	if err := os.WriteFile(path, EncodeWAV(c), 0644); err != nil {
		return fmt.Errorf("写入 WAV 文件失败: %w", err)
	}
	return nil
}

// DecodeWAV 解析 PCM WAV，保留原始采样率、声道数和位深。
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("读取 PCM 数据失败: %w", err)
	}

	f := Format{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}
	if !f.Valid() {
		return nil, fmt.Errorf("%w: 格式 %s", ErrInvalidWAV, f)
	}

	return &Clip{Format: f, Data: packSamples(buf.Data, f.BitDepth), Index: -1}, nil
}

// DecodeWAVBytes 解析内存中的 WAV。
func DecodeWAVBytes(data []byte) (*Clip, error) {
	return DecodeWAV(bytes.NewReader(data))
}

// ReadWAVFile 读取 WAV 文件。
func ReadWAVFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 WAV 文件失败: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// packSamples 把解码器给出的整型样本按位深还原为小端字节。8-bit 为无符号。
func packSamples(samples []int, bitDepth int) []byte {
	width := bitDepth / 8
	out := make([]byte, len(samples)*width)
	for i, s := range samples {
		off := i * width
		switch width {
		case 1:
			out[off] = byte(s)
		default:
			v := uint32(int32(s))
			for b := 0; b < width; b++ {
				out[off+b] = byte(v >> (8 * b))
			}
		}
	}
	return out
}
