package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ServerName は Server ヘッダーの既定値
const ServerName = "Hatago/0.1"

// ErrAlreadySent は Send が二度呼ばれたことを示す
var ErrAlreadySent = errors.New("response already sent")

// Response は1リクエスト分のステータス・ヘッダー・ボディを蓄積する
// 1つの接続処理だけが所有し、Send の後は変更しない
type Response struct {
	w       io.Writer
	status  int
	keys    []string // ヘッダーの挿入順
	headers map[string]string
	body    []byte
	sent    bool
}

// NewResponse は既定ヘッダー付きのレスポンスを作成する
func NewResponse(w io.Writer) *Response {
	res := &Response{
		w:       w,
		status:  200,
		headers: make(map[string]string),
		body:    []byte{},
	}
	res.SetHeader("Server", ServerName)
	res.SetHeader("Connection", "close")
	res.SetHeader("Content-Type", "text/plain; charset=UTF-8")
	return res
}

// SetStatus はステータスコードを上書きする
func (r *Response) SetStatus(code int) {
	r.status = code
}

// Status は現在のステータスコードを返す
func (r *Response) Status() int {
	return r.status
}

// SetHeader はヘッダーを追加または上書きする。キーは大文字小文字を区別する
func (r *Response) SetHeader(k, v string) {
	if _, ok := r.headers[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.headers[k] = v
}

// Header はヘッダー値を返す
func (r *Response) Header(k string) (string, bool) {
	v, ok := r.headers[k]
	return v, ok
}

// HeaderKeys は挿入順のヘッダー名を返す
func (r *Response) HeaderKeys() []string {
	return append([]string(nil), r.keys...)
}

// SetBody はボディを置き換え、Content-Length を再計算する
func (r *Response) SetBody(b []byte) {
	if b == nil {
		b = []byte{}
	}
	r.body = b
	r.SetHeader("Content-Length", strconv.Itoa(len(b)))
}

// SetText は文字列をUTF-8のボディとして設定する
func (r *Response) SetText(s string) {
	r.SetBody([]byte(s))
}

// Body は現在のボディを返す
func (r *Response) Body() []byte {
	return r.body
}

// Sent は Send が呼ばれたかを返す
func (r *Response) Sent() bool {
	return r.sent
}

// Send はレスポンスを書き出す。一度しか呼べない
func (r *Response) Send() error {
	if r.sent {
		return ErrAlreadySent
	}
	r.sent = true

	bw := bufio.NewWriter(r.w)
	fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", r.status, StatusText(r.status))
	for _, k := range r.keys {
		fmt.Fprintf(bw, "%s: %s\r\n", k, r.headers[k])
	}
	bw.WriteString("\r\n")
	bw.Write(r.body)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}
