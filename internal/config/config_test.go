package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg == nil {
		t.Fatal("設定がnilです")
	}

	// サーバー設定の検証
	if cfg.Server.Host == "" {
		t.Error("サーバーホストが設定されていません")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		t.Errorf("無効なポート番号: %d", cfg.Server.Port)
	}
	// ReadTimeout は 0（無効）がデフォルト
	if cfg.Server.ReadTimeout < 0 {
		t.Error("読み込みタイムアウトが負の値です")
	}

	// プール設定の検証
	if cfg.Pool.MinWorkers != 10 || cfg.Pool.MaxWorkers != 100 {
		t.Errorf("プールサイズが想定と異なります: min=%d max=%d", cfg.Pool.MinWorkers, cfg.Pool.MaxWorkers)
	}
	if cfg.Pool.IdleTimeout != 60*time.Second {
		t.Errorf("アイドルタイムアウトが想定と異なります: %v", cfg.Pool.IdleTimeout)
	}

	if cfg.Static.DocRoot == "" {
		t.Error("ドキュメントルートが設定されていません")
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name      string
		modify    func(c *Config)
		expectErr bool
	}{
		{
			name:      "正常な設定",
			modify:    func(c *Config) {},
			expectErr: false,
		},
		{
			name:      "無効なポート番号",
			modify:    func(c *Config) { c.Server.Port = 99999 },
			expectErr: true,
		},
		{
			name:      "ドキュメントルートなし",
			modify:    func(c *Config) { c.Static.DocRoot = "" },
			expectErr: true,
		},
		{
			name: "最大ワーカー数が常駐数より小さい",
			modify: func(c *Config) {
				c.Pool.MinWorkers = 20
				c.Pool.MaxWorkers = 10
			},
			expectErr: true,
		},
		{
			name:      "最大ワーカー数が0",
			modify:    func(c *Config) { c.Pool.MinWorkers, c.Pool.MaxWorkers = 0, 0 },
			expectErr: true,
		},
		{
			name:      "未知のログレベル",
			modify:    func(c *Config) { c.Log.Level = "verbose" },
			expectErr: true,
		},
		{
			name: "管理サーバーのポートなし",
			modify: func(c *Config) {
				c.Admin.Enabled = true
				c.Admin.Port = 0
			},
			expectErr: true,
		},
		{
			name: "管理サーバー無効ならポート0でも正常",
			modify: func(c *Config) {
				c.Admin.Enabled = false
				c.Admin.Port = 0
			},
			expectErr: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
		Admin: AdminConfig{
			Host: "127.0.0.1",
			Port: 9091,
		},
	}

	if actual := cfg.ServerAddress(); actual != "192.168.1.100:9090" {
		t.Errorf("サーバーアドレスが一致しません: got %s, want 192.168.1.100:9090", actual)
	}
	if actual := cfg.AdminAddress(); actual != "127.0.0.1:9091" {
		t.Errorf("管理アドレスが一致しません: got %s, want 127.0.0.1:9091", actual)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_HOST", "test.example.com")
	t.Setenv("PORT", "9999")
	t.Setenv("DOC_ROOT", "/srv/www")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "test.example.com" {
		t.Errorf("環境変数のホストが反映されていません: got %s, want test.example.com", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("環境変数のポートが反映されていません: got %d, want 9999", cfg.Server.Port)
	}
	if cfg.Static.DocRoot != "/srv/www" {
		t.Errorf("環境変数のドキュメントルートが反映されていません: got %s", cfg.Static.DocRoot)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("環境変数のログレベルが反映されていません: got %s", cfg.Log.Level)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("ファイルの書き込みに失敗しました: %v", err)
	}
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "hatago.yaml", `
server:
  port: 9000
static:
  doc_root: www
  sniff_unknown: true
pool:
  min_workers: 2
  max_workers: 4
  idle_timeout: 5s
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port: got %d, want 9000", cfg.Server.Port)
	}
	// ファイルに無い値はデフォルトのまま
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host: got %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Static.DocRoot != "www" || !cfg.Static.SniffUnknown {
		t.Errorf("static: got %+v", cfg.Static)
	}
	if cfg.Pool.MinWorkers != 2 || cfg.Pool.MaxWorkers != 4 {
		t.Errorf("pool: got %+v", cfg.Pool)
	}
	if cfg.Pool.IdleTimeout != 5*time.Second {
		t.Errorf("idle_timeout: got %v, want 5s", cfg.Pool.IdleTimeout)
	}
}

func TestLoadFile_TOML(t *testing.T) {
	path := writeFile(t, "hatago.toml", `
[server]
host = "127.0.0.1"
port = 8088

[admin]
enabled = true
port = 8089

[log]
format = "json"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.ServerAddress() != "127.0.0.1:8088" {
		t.Errorf("server address: got %s", cfg.ServerAddress())
	}
	if !cfg.Admin.Enabled || cfg.Admin.Port != 8089 {
		t.Errorf("admin: got %+v", cfg.Admin)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format: got %s, want json", cfg.Log.Format)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	testCases := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"存在しないファイル", func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") }},
		{"未対応の拡張子", func(t *testing.T) string { return writeFile(t, "hatago.ini", "port=1") }},
		{"壊れたYAML", func(t *testing.T) string { return writeFile(t, "broken.yaml", "server: [") }},
		{"検証エラー", func(t *testing.T) string { return writeFile(t, "bad.yaml", "server:\n  port: 0\n") }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFile(tc.path(t)); err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
		})
	}
}
