// Package main はHatagoサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"hatago/internal/config"
	"hatago/internal/logging"
	"hatago/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		configFile = flag.String("config", "", "設定ファイル (YAML または TOML)")
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		docRoot    = flag.String("docroot", "", "ドキュメントルート (デフォルト: public)")
		admin      = flag.Bool("admin", false, "管理サーバーを有効にする")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Hatago")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger := logging.New(config.Default().Log, os.Stderr)
		logger.Fatal().Err(err).Msg("設定の読み込みに失敗しました")
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *docRoot != "" {
		cfg.Static.DocRoot = *docRoot
	}
	if *admin {
		cfg.Admin.Enabled = true
	}

	logger := logging.New(cfg.Log, os.Stderr)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("設定が不正です")
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("サーバーの作成に失敗しました")
	}

	logger.Info().Str("addr", cfg.ServerAddress()).Msg("Hatago サーバーを起動します")
	if err := srv.Start(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("サーバーの起動に失敗しました")
	}
}
