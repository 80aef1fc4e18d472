package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"hatago/internal/admin"
	"hatago/internal/config"
	"hatago/internal/handlers"
	"hatago/internal/router"
	"hatago/internal/static"
)

// shutdownTimeout は処理中の接続の完了を待つ上限
const shutdownTimeout = 5 * time.Second

// Server は待ち受けとワーカープールへの振り分けを管理する構造体
type Server struct {
	config *config.Config
	log    zerolog.Logger
	routes *router.Registry
	static *static.Resolver
	conns  *connHandler
	pool   *Pool
	admin  *admin.Server

	mu            sync.Mutex
	listener      net.Listener
	adminListener net.Listener
	closing       chan struct{}
	closeOnce     sync.Once
	ready         chan struct{}
	started       time.Time
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	resolver, err := static.NewResolver(cfg.Static.DocRoot, cfg.Static.SniffUnknown)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントルートの解決に失敗: %w", err)
	}

	s := &Server{
		config:  cfg,
		log:     logger,
		routes:  router.NewRegistry(),
		static:  resolver,
		closing: make(chan struct{}),
		ready:   make(chan struct{}),
	}
	s.conns = newConnHandler(s.routes, s.static, logger, cfg.Server.ReadTimeout)
	s.pool = NewPool(cfg.Pool.MinWorkers, cfg.Pool.MaxWorkers, cfg.Pool.IdleTimeout, s.conns.ServeConn)
	if cfg.Admin.Enabled {
		s.admin = admin.New(s.status, logger.With().Str("component", "admin").Logger())
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes は組み込みのハンドラーを登録する
func (s *Server) setupRoutes() {
	s.routes.Register("/hello", handlers.HelloHandler{})
	s.routes.Register("/echo", handlers.EchoHandler{})
}

// Handle はハンドラーを登録する。Start より前に呼ぶこと
func (s *Server) Handle(path string, h router.Handler) {
	s.routes.Register(path, h)
}

// Ready は待ち受けを開始すると閉じられるチャンネルを返す
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr は待ち受け中のアドレスを返す。待ち受け前は nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// AdminAddr は管理サーバーのアドレスを返す。無効な場合は nil
func (s *Server) AdminAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adminListener == nil {
		return nil
	}
	return s.adminListener.Addr()
}

// Start はサーバーを起動する
// ctx の終了、シグナルの受信、待ち受けの失敗のいずれかでシャットダウンする
func (s *Server) Start(ctx context.Context) error {
	// ドキュメントルートを作成（失敗しても起動は続ける）
	if err := os.MkdirAll(s.static.Root(), 0755); err != nil {
		s.log.Error().Err(err).Str("doc_root", s.static.Root()).Msg("ドキュメントルートの作成に失敗しました")
	}

	ln, err := net.Listen("tcp", s.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}

	var adminLn net.Listener
	if s.admin != nil {
		adminLn, err = net.Listen("tcp", s.config.AdminAddress())
		if err != nil {
			ln.Close()
			return fmt.Errorf("管理サーバーの起動に失敗: %w", err)
		}
	}

	s.mu.Lock()
	s.listener = ln
	s.adminListener = adminLn
	s.started = time.Now()
	s.mu.Unlock()

	s.pool.Start()

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		if err := s.Serve(serveCtx, ln); err != nil {
			errCh <- err
		}
	}()
	if adminLn != nil {
		go func() {
			if err := s.admin.Serve(adminLn); err != nil {
				errCh <- err
			}
		}()
	}

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("doc_root", s.static.Root()).
		Int("min_workers", s.pool.MinWorkers()).
		Int("max_workers", s.pool.MaxWorkers()).
		Msg("サーバーを起動しました")
	close(s.ready)

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info().Msg("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.log.Info().Str("signal", sig.String()).Msg("シグナルを受信しました")
	case runErr = <-errCh:
	}

	if err := s.Shutdown(); err != nil {
		return err
	}
	return runErr
}

// Serve は ln で接続を受け付け、ワーカープールに渡す
// プールに空きが無い間は次の Accept に進まない
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return nil
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error().Err(err).Msg("accept error")
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := s.pool.Submit(ctx, conn); err != nil {
			conn.Close()
			if errors.Is(err, ErrPoolClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("接続の受け渡しに失敗: %w", err)
		}
	}
}

// Shutdown はサーバーを停止する
// 待ち受けを閉じ、処理中の接続を shutdownTimeout まで待つ
func (s *Server) Shutdown() error {
	var shutdownErr error
	s.closeOnce.Do(func() {
		s.log.Info().Msg("サーバーをシャットダウンしています...")
		close(s.closing)

		s.mu.Lock()
		ln := s.listener
		s.mu.Unlock()
		if ln != nil {
			ln.Close()
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if s.admin != nil {
			if err := s.admin.Shutdown(ctx); err != nil {
				shutdownErr = err
			}
		}

		done := make(chan struct{})
		go func() {
			s.pool.Close()
			close(done)
		}()
		select {
		case <-done:
			s.log.Info().Msg("サーバーが正常にシャットダウンされました")
		case <-ctx.Done():
			s.log.Warn().Int("busy_workers", s.pool.Busy()).Msg("処理中の接続を残してシャットダウンしました")
		}
	})
	return shutdownErr
}

// status は管理サーバー向けに稼働状況を返す
func (s *Server) status() admin.Status {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	addr := s.config.ServerAddress()
	if a := s.Addr(); a != nil {
		addr = a.String()
	}

	return admin.Status{
		Status:  "running",
		Address: addr,
		DocRoot: s.static.Root(),
		Routes:  s.routes.Paths(),
		Pool: admin.PoolInfo{
			MinWorkers:  s.pool.MinWorkers(),
			MaxWorkers:  s.pool.MaxWorkers(),
			LiveWorkers: s.pool.Live(),
			BusyWorkers: s.pool.Busy(),
		},
		Connections: admin.ConnInfo{
			Accepted: s.conns.stats.accepted.Load(),
			NotFound: s.conns.stats.notFound.Load(),
			Failed:   s.conns.stats.failed.Load(),
		},
		Uptime:    time.Since(started).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}
