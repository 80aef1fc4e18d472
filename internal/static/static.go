// Package static はドキュメントルート配下のファイルを配信する
package static

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"hatago/internal/wire"
)

// DefaultContentType は拡張子から判定できない場合のMIMEタイプ
const DefaultContentType = "application/octet-stream"

var contentTypes = []struct {
	suffix string
	ctype  string
}{
	{".html", "text/html; charset=UTF-8"},
	{".htm", "text/html; charset=UTF-8"},
	{".css", "text/css; charset=UTF-8"},
	{".js", "application/javascript; charset=UTF-8"},
	{".json", "application/json; charset=UTF-8"},
	{".png", "image/png"},
	{".jpg", "image/jpeg"},
	{".jpeg", "image/jpeg"},
	{".gif", "image/gif"},
}

// ContentType はファイル名の拡張子からMIMEタイプを推定する
func ContentType(filename string) string {
	l := strings.ToLower(filename)
	for _, ct := range contentTypes {
		if strings.HasSuffix(l, ct.suffix) {
			return ct.ctype
		}
	}
	return DefaultContentType
}

// Resolver はURLパスをルート配下のファイルに対応付ける
// ルートは起動時に固定され、以降は読み取り専用
type Resolver struct {
	root  string
	sniff bool
}

// NewResolver は root を絶対パスにしてリゾルバーを作成する
// sniff が true の場合、拡張子で判定できないファイルは内容からMIMEタイプを推定する
func NewResolver(root string, sniff bool) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Resolver{root: abs, sniff: sniff}, nil
}

// Root はドキュメントルートの絶対パスを返す
func (r *Resolver) Root() string {
	return r.root
}

// TryServe はパスに対応するファイルをレスポンスに設定する
// ファイルが無い、ディレクトリである、ルート外を指す、読み込みに失敗した場合は false を返す
func (r *Resolver) TryServe(path string, res *wire.Response) bool {
	name, file, ok := r.resolve(path)
	if !ok {
		return false
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return false
	}

	res.SetHeader("Content-Type", r.contentType(name, data))
	res.SetBody(data)
	return true
}

// resolve は path を正規化し、ルート配下の通常ファイルであれば
// 要求されたファイル名とリンク解決後の実パスを返す
func (r *Resolver) resolve(path string) (string, string, bool) {
	if path == "/" {
		path = "/index.html"
	}

	root, err := filepath.EvalSymlinks(r.root)
	if err != nil {
		return "", "", false
	}

	target := filepath.Join(root, "."+filepath.FromSlash(path))
	if !within(root, target) {
		return "", "", false
	}

	// シンボリックリンク経由でルート外に出ていないか
	resolved, err := filepath.EvalSymlinks(target)
	if err != nil || !within(root, resolved) {
		return "", "", false
	}

	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return "", "", false
	}
	return target, resolved, true
}

func (r *Resolver) contentType(name string, data []byte) string {
	ct := ContentType(name)
	if ct == DefaultContentType && r.sniff {
		return mimetype.Detect(data).String()
	}
	return ct
}

func within(root, target string) bool {
	if target == root {
		return true
	}
	return strings.HasPrefix(target, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
