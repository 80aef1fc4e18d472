// Package admin は稼働状況を確認するための管理用HTTPサーバーを提供する
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PoolInfo はワーカープールの状態
type PoolInfo struct {
	MinWorkers  int `json:"min_workers"`
	MaxWorkers  int `json:"max_workers"`
	LiveWorkers int `json:"live_workers"`
	BusyWorkers int `json:"busy_workers"`
}

// ConnInfo は接続処理の累計
type ConnInfo struct {
	Accepted uint64 `json:"accepted"`
	NotFound uint64 `json:"not_found"`
	Failed   uint64 `json:"failed"`
}

// Status は /api/status が返す稼働状況
type Status struct {
	Status      string    `json:"status"`
	Address     string    `json:"address"`
	DocRoot     string    `json:"doc_root"`
	Routes      []string  `json:"routes"`
	Pool        PoolInfo  `json:"pool"`
	Connections ConnInfo  `json:"connections"`
	Uptime      string    `json:"uptime"`
	Timestamp   time.Time `json:"timestamp"`
}

// StatusFunc は現在の稼働状況を返す
type StatusFunc func() Status

// Server は管理用HTTPサーバー
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	log        zerolog.Logger
}

// New は管理用サーバーを作成する
func New(status StatusFunc, logger zerolog.Logger) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), accessLog(logger))

	s := &Server{
		engine: engine,
		log:    logger,
	}
	s.setupRoutes(status)
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// setupRoutes は管理用のルートを設定する
func (s *Server) setupRoutes(status StatusFunc) {
	// ヘルスチェックエンドポイント
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	s.engine.GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, status())
	})

	s.engine.GET("/api/routes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"routes": status().Routes})
	})
}

// Handler はテスト用にHTTPハンドラーを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve は ln で管理用サーバーを起動する。Shutdown されるまで戻らない
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("管理サーバーを起動しています")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("管理サーバーの起動に失敗: %w", err)
	}
	return nil
}

// Shutdown は管理用サーバーを停止する
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("管理サーバーのシャットダウンに失敗: %w", err)
	}
	return nil
}

func accessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("admin request")
	}
}
