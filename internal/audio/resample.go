package audio

import "fmt"

// SpeechRate 识别服务要求的采样率。
const SpeechRate = 16000

// Resample 线性插值重采样单声道 int16 样本。
func Resample(in []int16, from, to int) []int16 {
	if from == to || len(in) == 0 || from <= 0 || to <= 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]int16, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(in[j])*(1-frac) + float64(in[j+1])*frac)
	}
	return out
}

// ToSpeechPCM 把任意 16-bit 音频转为 16kHz 单声道 int16。
func ToSpeechPCM(c *Clip) ([]int16, error) {
	samples, err := c.Samples16()
	if err != nil {
		return nil, fmt.Errorf("转换识别音频失败: %w", err)
	}
	mono := DownmixInt16(samples, c.Format.Channels)
	return Resample(mono, c.Format.SampleRate, SpeechRate), nil
}

// TrimTrailingSilence 裁掉末尾低于阈值的静音，保留 tailMs 缓冲。
// 结果不短于 minMs；全部为静音时原样返回。
func TrimTrailingSilence(pcm []int16, sampleRate, threshold, minMs, tailMs int) []int16 {
	minSamples := sampleRate * minMs / 1000
	if len(pcm) <= minSamples {
		return pcm
	}

	lastVoice := -1
	for i := len(pcm) - 1; i >= 0; i-- {
		s := int(pcm[i])
		if s < 0 {
			s = -s
		}
		if s > threshold {
			lastVoice = i
			break
		}
	}
	if lastVoice < 0 {
		return pcm
	}

	end := lastVoice + 1 + sampleRate*tailMs/1000
	if end < minSamples {
		end = minSamples
	}
	if end >= len(pcm) {
		return pcm
	}
	return pcm[:end]
}
