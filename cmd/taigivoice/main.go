package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "taigivoice",
	Short: "台语（闽南语）文字转数字调罗马字、语音合成与识别",
	Long: `taigivoice 把中文文本转换为台语数字调罗马字（TLPA），
逐段合成语音并拼接为 WAV；语音识别按置信度在通用服务和台语专用服务之间路由。

命令:
  convert  - 文本转罗马字
  speak    - 合成语音并保存或播放
  listen   - 从麦克风或 WAV 文件识别语音
  serve    - 启动 HTTP 服务`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认使用内置默认值）")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "覆盖配置中的日志级别")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
