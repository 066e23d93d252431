package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/iabetor/taigivoice/internal/logger"
	"github.com/iabetor/taigivoice/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	Long: `启动 HTTP 服务:
  GET  /api/health   健康检查
  POST /api/convert  文本转罗马字
  POST /api/tts      语音合成
  POST /api/stt      语音识别
  GET  /api/history  历史记录
  GET  /metrics      Prometheus 指标`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "监听地址（覆盖配置）")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(appNeeds{stt: true, history: true, metrics: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var metrics http.Handler
	if a.metrics != nil {
		metrics = a.metrics.Handler()
	}

	srv, err := server.New(server.Options{
		Speech:  a.speech,
		Router:  a.router,
		History: a.history,
		Metrics: metrics,
		Config: server.Config{
			AllowOrigins:   a.cfg.Server.AllowOrigins,
			MaxAudioBytes:  a.cfg.Server.MaxAudioMB << 20,
			RequestTimeout: time.Duration(a.cfg.Server.RequestTimeout) * time.Second,
		},
	})
	if err != nil {
		return err
	}

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := srv.Run(ctx, addr); err != nil {
		return err
	}
	logger.Info("[main] taigivoice 已停止")
	return nil
}
