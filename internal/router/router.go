// Package router はURLパスからハンドラーを解決するルートテーブルを提供する
package router

import (
	"sort"
	"strings"
	"sync"

	"hatago/internal/wire"
)

// Handler はリクエストを処理してレスポンスを組み立てる
// エラーを返した場合は接続処理側で500に変換される
type Handler interface {
	Service(req *wire.Request, res *wire.Response) error
}

// HandlerFunc は関数を Handler として扱うためのアダプター
type HandlerFunc func(req *wire.Request, res *wire.Response) error

// Service は f(req, res) を呼び出す
func (f HandlerFunc) Service(req *wire.Request, res *wire.Response) error {
	return f(req, res)
}

// Registry はパスプレフィックスとハンドラーの対応表
// 起動時に登録を済ませ、その後は読み取り専用として複数のワーカーから参照する
type Registry struct {
	mu       sync.RWMutex
	routes   map[string]Handler
	prefixes []string // 長い順、同じ長さなら辞書順
}

// NewRegistry は空のルートテーブルを作成する
func NewRegistry() *Registry {
	return &Registry{
		routes: make(map[string]Handler),
	}
}

// Normalize は末尾のスラッシュを1つだけ取り除く（ルートを除く）
func Normalize(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}

// Register はハンドラーを登録する。同じパスへの登録は後勝ち
func (r *Registry) Register(path string, h Handler) {
	path = Normalize(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[path]; !exists {
		r.prefixes = append(r.prefixes, path)
		sort.Slice(r.prefixes, func(i, j int) bool {
			a, b := r.prefixes[i], r.prefixes[j]
			if len(a) != len(b) {
				return len(a) > len(b)
			}
			return a < b
		})
	}
	r.routes[path] = h
}

// Match はパスに対応するハンドラーを返す
// 完全一致を優先し、無ければ最長のプレフィックス一致を選ぶ
func (r *Registry) Match(path string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if path == "" {
		h, ok := r.routes["/"]
		return h, ok
	}

	if h, ok := r.routes[path]; ok {
		return h, true
	}

	// prefixes は長い順なので最初の一致が最長
	for _, p := range r.prefixes {
		if strings.HasPrefix(path, p) {
			return r.routes[p], true
		}
	}
	return nil, false
}

// Paths は登録済みのパスを長い順に返す
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.prefixes...)
}
