// Package stt 按置信度在通用识别服务和台语专用识别服务之间路由。
package stt

import "context"

// Recognition 单个识别服务的结果。
type Recognition struct {
	Transcript string
	// Confidence 只在 HasConfidence 为真时有意义。
	Confidence    float64
	HasConfidence bool
}

// Recognizer 识别 16kHz 单声道 int16 音频。
type Recognizer interface {
	Recognize(ctx context.Context, pcm []int16, sampleRate int) (Recognition, error)
	Name() string
}
