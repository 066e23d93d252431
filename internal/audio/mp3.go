package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 把 MP3 解码为 16-bit 立体声 PCM（go-mp3 固定输出双声道）。
func DecodeMP3(ctx context.Context, data []byte) (*Clip, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("MP3 解码失败: %w", err)
	}

	pcmBuf := new(bytes.Buffer)
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		n, err := decoder.Read(buf)
		pcmBuf.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取 MP3 数据失败: %w", err)
		}
	}

	const bytesPerFrame = 4
	pcm := pcmBuf.Bytes()
	pcm = pcm[:len(pcm)/bytesPerFrame*bytesPerFrame]

	return &Clip{
		Format: Format{SampleRate: decoder.SampleRate(), Channels: 2, BitDepth: 16},
		Data:   pcm,
		Index:  -1,
	}, nil
}

// IsMP3 根据 ID3 标签或帧同步字判断数据是否为 MP3。
func IsMP3(data []byte) bool {
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}
