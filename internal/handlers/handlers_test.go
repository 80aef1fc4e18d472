package handlers

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"

	"hatago/internal/wire"
)

func TestHelloHandler(t *testing.T) {
	testCases := []struct {
		name   string
		query  map[string]string
		expect string
	}{
		{"デフォルト", map[string]string{}, "Hello world!\n(method=GET, path=/hello)"},
		{"名前指定", map[string]string{"name": "旅人"}, "Hello 旅人!\n(method=GET, path=/hello)"},
		{"空の名前", map[string]string{"name": ""}, "Hello !\n(method=GET, path=/hello)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := &wire.Request{Method: "GET", Path: "/hello", Query: tc.query}
			res := wire.NewResponse(new(bytes.Buffer))

			if err := (HelloHandler{}).Service(req, res); err != nil {
				t.Fatalf("Service failed: %v", err)
			}
			if string(res.Body()) != tc.expect {
				t.Errorf("body: got %q, want %q", res.Body(), tc.expect)
			}
			if ct, _ := res.Header("Content-Type"); ct != "text/plain; charset=UTF-8" {
				t.Errorf("Content-Type: got %q", ct)
			}
		})
	}
}

func TestEchoHandler(t *testing.T) {
	req := &wire.Request{
		Method:  "POST",
		Path:    "/echo",
		Version: "HTTP/1.1",
		Headers: map[string]string{"content-length": "5"},
		Query:   map[string]string{"a": "1"},
		Body:    []byte("hello"),
	}
	res := wire.NewResponse(new(bytes.Buffer))

	if err := (EchoHandler{}).Service(req, res); err != nil {
		t.Fatalf("Service failed: %v", err)
	}

	var got EchoResponse
	if err := json.Unmarshal(res.Body(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Method != "POST" || got.Path != "/echo" || got.Body != "hello" {
		t.Errorf("unexpected echo: %+v", got)
	}
	if got.Query["a"] != "1" || got.Headers["content-length"] != "5" {
		t.Errorf("unexpected echo maps: %+v", got)
	}
	if ct, _ := res.Header("Content-Type"); ct != "application/json; charset=UTF-8" {
		t.Errorf("Content-Type: got %q", ct)
	}
}
