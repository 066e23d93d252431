package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoTranscript 所有识别服务都没有给出文本。
	ErrNoTranscript = errors.New("无法识别语音")
	// ErrNetworkTimeout 单个识别服务超时，路由将其视为无结果。
	ErrNetworkTimeout = errors.New("识别服务超时")
)

// ProviderError 记录某个识别服务的失败。
type ProviderError struct {
	Provider string
	Timeout  bool
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s 超时: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s 识别失败: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is 使超时错误匹配 ErrNetworkTimeout。
func (e *ProviderError) Is(target error) bool {
	return target == ErrNetworkTimeout && e.Timeout
}

// IsTimeout 是否为超时。
func (e *ProviderError) IsTimeout() bool { return e.Timeout }

// newProviderError 包装服务错误并判断是否属于超时。
func newProviderError(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Timeout:  errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNetworkTimeout) || IsNetworkError(err),
		Err:      err,
	}
}

// IsNetworkError 判断第三方客户端返回的是否为网络类错误。
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())

	networkErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"eof",
	}

	for _, pattern := range networkErrors {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
