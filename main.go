package main

import (
	"context"
	"os"

	"hatago/internal/config"
	"hatago/internal/logging"
	"hatago/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		logger := logging.New(config.Default().Log, os.Stderr)
		logger.Fatal().Err(err).Msg("設定の読み込みに失敗しました")
	}

	logger := logging.New(cfg.Log, os.Stderr)

	// サーバーを作成
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("サーバーの作成に失敗しました")
	}

	// サーバーを起動
	if err := srv.Start(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("サーバーの起動に失敗しました")
	}
}
