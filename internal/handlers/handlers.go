// Package handlers は組み込みのデモ用ハンドラーを提供する
package handlers

import (
	"fmt"

	"github.com/goccy/go-json"

	"hatago/internal/wire"
)

// HelloHandler は name クエリパラメータに挨拶を返す
type HelloHandler struct{}

// Service はハンドラーの実装
func (HelloHandler) Service(req *wire.Request, res *wire.Response) error {
	name, ok := req.Query["name"]
	if !ok {
		name = "world"
	}
	res.SetHeader("Content-Type", "text/plain; charset=UTF-8")
	res.SetText(fmt.Sprintf("Hello %s!\n(method=%s, path=%s)", name, req.Method, req.Path))
	return nil
}

// EchoResponse は EchoHandler が返すJSONの形
type EchoResponse struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Version string            `json:"version"`
	Headers map[string]string `json:"headers"`
	Query   map[string]string `json:"query"`
	Body    string            `json:"body"`
}

// EchoHandler は解析済みのリクエストをJSONで返す
type EchoHandler struct{}

// Service はハンドラーの実装
func (EchoHandler) Service(req *wire.Request, res *wire.Response) error {
	data, err := json.Marshal(EchoResponse{
		Method:  req.Method,
		Path:    req.Path,
		Version: req.Version,
		Headers: req.Headers,
		Query:   req.Query,
		Body:    string(req.Body),
	})
	if err != nil {
		return fmt.Errorf("echo: %w", err)
	}
	res.SetHeader("Content-Type", "application/json; charset=UTF-8")
	res.SetBody(data)
	return nil
}
