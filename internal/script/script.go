// Package script 用腾讯云机器翻译把简体中文统一为繁体字形，词典只收录繁体词条。
package script

import (
	"context"
	"fmt"
	"unicode"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"

	"github.com/iabetor/taigivoice/internal/logger"
)

// Config 机器翻译凭据。
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	SecretID  string `yaml:"secret_id"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Target    string `yaml:"target"`
}

// translator 便于测试替换。
type translator interface {
	TextTranslateWithContext(ctx context.Context, req *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error)
}

// Normalizer 简转繁。
type Normalizer struct {
	client translator
	target string
}

// New 创建腾讯云客户端。
func New(cfg Config) (*Normalizer, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("缺少腾讯云凭据")
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tmt.tencentcloudapi.com"

	client, err := tmt.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("创建翻译客户端失败: %w", err)
	}

	logger.Info("[script] 字形统一已启用")
	return newWithClient(client, cfg.Target), nil
}

func newWithClient(client translator, target string) *Normalizer {
	if target == "" {
		target = "zh-TW"
	}
	return &Normalizer{client: client, target: target}
}

// Normalize 返回繁体文本。不含汉字时不发请求。
func (n *Normalizer) Normalize(ctx context.Context, text string) (string, error) {
	if !hasHan(text) {
		return text, nil
	}

	request := tmt.NewTextTranslateRequest()
	request.SourceText = common.StringPtr(text)
	request.Source = common.StringPtr("zh")
	request.Target = common.StringPtr(n.target)
	request.ProjectId = common.Int64Ptr(0)

	response, err := n.client.TextTranslateWithContext(ctx, request)
	if err != nil {
		return "", fmt.Errorf("字形转换请求失败: %w", err)
	}
	if response.Response == nil || response.Response.TargetText == nil {
		return "", fmt.Errorf("字形转换响应为空")
	}

	result := *response.Response.TargetText
	logger.Debugf("[script] %s -> %s", text, result)
	return result, nil
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
