// ordersサービスのエントリポイント。
// Bearerトークンで認証した呼び出し元の注文の作成、参照、変更、キャンセルを担当する。
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/nao1215/ordergate/internal/config"
	"github.com/nao1215/ordergate/internal/orders"
	"github.com/nao1215/ordergate/pkg/logger"
)

func main() {
	cfg, err := config.LoadOrders()
	if err != nil {
		slog.Error("設定の読み込みに失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.Setup(os.Stdout, cfg.LogLevel, "orders")
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Warn("JWT_SECRET is not set; using the development secret")
	}

	server, err := orders.NewServer(context.Background(), cfg, log)
	if err != nil {
		log.Error("ordersサーバーの初期化に失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("ordersサービスを起動します", slog.String("port", cfg.Port))
	runErr := server.Run()
	if err := server.Close(); err != nil {
		log.Error("データベースのクローズに失敗", slog.String("error", err.Error()))
	}
	if runErr != nil {
		log.Error("ordersサービスの起動に失敗", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}
