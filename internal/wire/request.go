package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// DefaultVersion はリクエストラインにバージョンが無い場合に使われる
const DefaultVersion = "HTTP/1.1"

// ErrMalformedRequest はリクエストラインを解析できなかったことを示す
var ErrMalformedRequest = errors.New("malformed request")

// Request は解析済みのHTTPリクエスト
// 解析後に変更してはならない
type Request struct {
	Method  string            // メソッドトークン
	Path    string            // デコード済みのパス（クエリ文字列を含まない）
	Version string            // HTTPバージョントークン
	Headers map[string]string // 小文字化したヘッダー名 -> 値
	Query   map[string]string // デコード済みのクエリパラメータ
	Body    []byte            // リクエストボディ
}

// Header は大文字小文字を区別せずにヘッダー値を返す
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers[strings.ToLower(name)]
	return v, ok
}

// ParseRequest はストリームの先頭からリクエストを1つ読み込む
func ParseRequest(r io.Reader) (*Request, error) {
	var br *bufio.Reader
	if casted, ok := r.(*bufio.Reader); ok {
		br = casted
	} else {
		br = bufio.NewReader(r)
	}

	req := &Request{}
	target, err := readRequestLine(br, req)
	if err != nil {
		return nil, err
	}

	if req.Headers, err = readHeaders(br); err != nil {
		return nil, err
	}

	if req.Body, err = readBody(br, contentLength(req.Headers)); err != nil {
		return nil, err
	}

	if err := splitTarget(target, req); err != nil {
		return nil, err
	}

	return req, nil
}

// similar to readLineSlice() in net/textproto/reader.go
func readLine(r *bufio.Reader) (string, error) {
	var line []byte
	for {
		l, more, err := r.ReadLine()
		if err != nil {
			return "", err
		}
		if line == nil && !more {
			return string(l), nil
		}
		line = append(line, l...)
		if !more {
			break
		}
	}
	return string(line), nil
}

func readRequestLine(r *bufio.Reader, req *Request) (string, error) {
	rl, err := readLine(r)
	if err == io.EOF {
		return "", fmt.Errorf("%w: missing request line", ErrMalformedRequest)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read request line: %w", err)
	}
	if rl == "" {
		return "", fmt.Errorf("%w: empty request line", ErrMalformedRequest)
	}

	fields := strings.Split(rl, " ")
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	if len(fields) < 2 {
		return "", fmt.Errorf("%w: invalid request line %q", ErrMalformedRequest, rl)
	}

	req.Method = fields[0]
	req.Version = DefaultVersion
	if len(fields) > 2 {
		req.Version = fields[2]
	}
	return fields[1], nil
}

// readHeaders は空行またはストリーム終端までヘッダーを読む
// コロンを含まない行は無視する
func readHeaders(r *bufio.Reader) (map[string]string, error) {
	headers := make(map[string]string)
	for {
		line, err := readLine(r)
		if err == io.EOF {
			return headers, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read headers: %w", err)
		}
		if len(line) == 0 {
			return headers, nil
		}
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			continue
		}
		hdr := strings.ToLower(strings.TrimSpace(line[:idx]))
		headers[hdr] = strings.TrimSpace(line[idx+1:])
	}
}

func contentLength(h map[string]string) int64 {
	cls, ok := h["content-length"]
	if !ok {
		return 0
	}
	cl, err := strconv.ParseInt(cls, 10, 64)
	if err != nil || cl < 0 {
		return 0
	}
	return cl
}

// readBody は最大 n バイトを読む。途中でストリームが終わっても読めた分を返す
func readBody(r io.Reader, n int64) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, n); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return buf.Bytes(), nil
}

func splitTarget(target string, req *Request) error {
	rawPath, rawQuery, hasQuery := strings.Cut(target, "?")

	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return fmt.Errorf("%w: invalid path %q", ErrMalformedRequest, rawPath)
	}
	req.Path = path

	req.Query = make(map[string]string)
	if !hasQuery {
		return nil
	}
	for _, kv := range strings.Split(rawQuery, "&") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return fmt.Errorf("%w: invalid query key %q", ErrMalformedRequest, k)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return fmt.Errorf("%w: invalid query value %q", ErrMalformedRequest, v)
		}
		req.Query[key] = value
	}
	return nil
}
