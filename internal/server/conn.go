package server

import (
	"bufio"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hatago/internal/router"
	"hatago/internal/static"
	"hatago/internal/wire"
)

// faviconPath はルーティングに関係なく 204 を返すパス
const faviconPath = "/favicon.ico"

// HandlerError は登録されたハンドラーの実行中に起きた失敗
type HandlerError struct {
	Path string
	Err  error
}

func (e *HandlerError) Error() string {
	return e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// connStats は接続処理の累計
type connStats struct {
	accepted atomic.Uint64
	notFound atomic.Uint64
	failed   atomic.Uint64
}

// connHandler は1つの接続について 解析 → 振り分け → 送信 を行う
// 共有するのは読み取り専用のルートテーブルと静的ファイル設定だけ
type connHandler struct {
	routes      *router.Registry
	static      *static.Resolver
	log         zerolog.Logger
	readTimeout time.Duration
	stats       *connStats
}

func newConnHandler(routes *router.Registry, resolver *static.Resolver, logger zerolog.Logger, readTimeout time.Duration) *connHandler {
	return &connHandler{
		routes:      routes,
		static:      resolver,
		log:         logger,
		readTimeout: readTimeout,
		stats:       &connStats{},
	}
}

// ServeConn は接続を処理して閉じる
func (h *connHandler) ServeConn(conn net.Conn) {
	defer conn.Close()
	h.stats.accepted.Add(1)

	logger := h.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote", remoteAddr(conn)).
		Logger()

	if h.readTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}

	req, err := wire.ParseRequest(bufio.NewReader(conn))
	if err != nil {
		logger.Warn().Err(err).Msg("リクエストの解析に失敗しました")
		h.sendError(conn, err, logger)
		return
	}

	res := wire.NewResponse(conn)
	if err := h.dispatch(req, res); err != nil {
		if !res.Sent() {
			h.sendError(conn, err, logger)
		}
		logger.Info().Str("method", req.Method).Str("path", req.Path).Int("status", 500).Msg("served")
		return
	}

	if !res.Sent() {
		if err := res.Send(); err != nil {
			logger.Debug().Err(err).Msg("レスポンスの送信に失敗しました")
			return
		}
	}
	logger.Info().Str("method", req.Method).Str("path", req.Path).Int("status", res.Status()).Msg("served")
}

// dispatch はレスポンスを組み立てる。エラーはハンドラーの失敗だけ
func (h *connHandler) dispatch(req *wire.Request, res *wire.Response) error {
	if req.Path == faviconPath {
		res.SetStatus(204)
		res.SetHeader("Content-Type", "image/x-icon")
		res.SetBody([]byte{})
		return nil
	}

	if handler, ok := h.routes.Match(req.Path); ok {
		return h.service(handler, req, res)
	}

	if h.static.TryServe(req.Path, res) {
		return nil
	}

	h.stats.notFound.Add(1)
	res.SetStatus(404)
	res.SetText("Not Found")
	return nil
}

// service はハンドラーを呼び出し、panic もエラーとして扱う
func (h *connHandler) service(handler router.Handler, req *wire.Request, res *wire.Response) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Path: req.Path, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := handler.Service(req, res); err != nil {
		return &HandlerError{Path: req.Path, Err: err}
	}
	return nil
}

// sendError は新しいレスポンスで 500 を送る。送信の失敗はこの接続を諦めるだけ
func (h *connHandler) sendError(conn net.Conn, cause error, logger zerolog.Logger) {
	h.stats.failed.Add(1)

	res := wire.NewResponse(conn)
	res.SetStatus(500)
	res.SetText("Internal Server Error: " + cause.Error())
	if err := res.Send(); err != nil {
		logger.Debug().Err(err).Msg("エラーレスポンスの送信に失敗しました")
	}
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
