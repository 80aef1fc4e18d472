package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `yaml:"server" toml:"server"`
	Static StaticConfig `yaml:"static" toml:"static"`
	Pool   PoolConfig   `yaml:"pool" toml:"pool"`
	Admin  AdminConfig  `yaml:"admin" toml:"admin"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`                            // リッスンするホスト
	Port int    `yaml:"port" toml:"port" validate:"min=1,max=65535"` // リッスンするポート番号

	// 0 の場合は読み込みデッドラインを設定しない
	ReadTimeout time.Duration `yaml:"read_timeout" toml:"read_timeout" validate:"min=0"`
}

// StaticConfig は静的ファイル配信の設定
type StaticConfig struct {
	DocRoot string `yaml:"doc_root" toml:"doc_root" validate:"required"` // ドキュメントルート

	// 拡張子から判定できないファイルを内容から推定するか
	SniffUnknown bool `yaml:"sniff_unknown" toml:"sniff_unknown"`
}

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	MinWorkers  int           `yaml:"min_workers" toml:"min_workers" validate:"min=0"`                     // 常駐ワーカー数
	MaxWorkers  int           `yaml:"max_workers" toml:"max_workers" validate:"min=1,gtefield=MinWorkers"` // 最大ワーカー数
	IdleTimeout time.Duration `yaml:"idle_timeout" toml:"idle_timeout" validate:"min=0"`                   // 常駐数を超えたワーカーの待機上限
}

// AdminConfig は管理用HTTPサーバーの設定
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Host    string `yaml:"host" toml:"host"`
	Port    int    `yaml:"port" toml:"port" validate:"min=0,max=65535"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" toml:"format" validate:"oneof=auto json console"`
}

var validate = validator.New()

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			ReadTimeout: 0,
		},
		Static: StaticConfig{
			DocRoot: "public",
		},
		Pool: PoolConfig{
			MinWorkers:  10,
			MaxWorkers:  100,
			IdleTimeout: 60 * time.Second,
		},
		Admin: AdminConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8081,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load は設定を読み込む
// CONFIG_FILE が指定されていればファイルを読み、その後に環境変数で上書きする
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// LoadFile は指定されたYAMLまたはTOMLファイルをデフォルト設定に重ねて読み込む
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.decodeFile(path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("未対応の設定ファイル形式: %s", path)
	}
	if err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Static.DocRoot = getEnvOrDefault("DOC_ROOT", c.Static.DocRoot)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("無効な設定: %w", err)
	}

	if c.Admin.Enabled && c.Admin.Port == 0 {
		return fmt.Errorf("管理サーバーのポート番号が設定されていません")
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AdminAddress は管理サーバーのリッスンアドレスを返す
func (c *Config) AdminAddress() string {
	return fmt.Sprintf("%s:%d", c.Admin.Host, c.Admin.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
