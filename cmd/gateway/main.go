// API Gatewayサービスのエントリポイント。
// 外部からアクセス可能な唯一のサービスで、パスの接頭辞でusersとordersへ転送する。
package main

import (
	"log/slog"
	"os"

	"github.com/nao1215/ordergate/internal/config"
	"github.com/nao1215/ordergate/internal/gateway"
	"github.com/nao1215/ordergate/pkg/logger"
)

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		slog.Error("設定の読み込みに失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.Setup(os.Stdout, cfg.LogLevel, "gateway")

	server, err := gateway.NewServer(cfg, log)
	if err != nil {
		log.Error("Gatewayサーバーの初期化に失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("Gatewayサービスを起動します",
		slog.String("port", cfg.Port),
		slog.String("users", cfg.UsersServiceURL),
		slog.String("orders", cfg.OrdersServiceURL),
	)
	if err := server.Run(); err != nil {
		log.Error("Gatewayサービスの起動に失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
