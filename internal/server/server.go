// Package server 提供 HTTP 接口：文本转罗马字、语音合成、语音识别和历史记录。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iabetor/taigivoice/internal/logger"
	"github.com/iabetor/taigivoice/internal/store"
	"github.com/iabetor/taigivoice/internal/stt"
	"github.com/iabetor/taigivoice/internal/tts"
)

// Config HTTP 服务参数。
type Config struct {
	AllowOrigins   []string
	MaxAudioBytes  int64
	RequestTimeout time.Duration
}

// Options 服务依赖。Router、History、Metrics 可为 nil，对应接口返回 503 或不注册。
type Options struct {
	Speech  *tts.Service
	Router  *stt.Router
	History *store.DB
	Metrics http.Handler
	Config  Config
}

// Server 封装 gin 引擎。
type Server struct {
	engine  *gin.Engine
	speech  *tts.Service
	router  *stt.Router
	history *store.DB
	cfg     Config
	log     *zap.Logger
}

// New 创建服务并注册路由。
func New(opts Options) (*Server, error) {
	if opts.Speech == nil {
		return nil, fmt.Errorf("缺少合成服务")
	}
	cfg := opts.Config
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = 20 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}

	s := &Server{
		engine:  gin.New(),
		speech:  opts.Speech,
		router:  opts.Router,
		history: opts.History,
		cfg:     cfg,
		log:     logger.Named("server"),
	}

	s.engine.Use(gin.Recovery(), s.accessLog())
	s.engine.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/convert", s.handleConvert)
	api.POST("/tts", s.handleTTS)
	api.POST("/stt", s.handleSTT)
	api.GET("/history", s.handleHistory)

	if opts.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	c.ExposeHeaders = []string{"X-Synthesis-Mode", "X-Synthesis-Id"}
	return c
}

// Handler 返回 http.Handler，供测试和自定义 http.Server 使用。
func (s *Server) Handler() http.Handler { return s.engine }

// Run 监听 addr，ctx 取消后优雅退出。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[server] 监听 %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP 服务启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("[server] 正在关闭...")
	return srv.Shutdown(shutdownCtx)
}

// accessLog 用 zap 记录请求。
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("请求",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
}
