// usersサービスのエントリポイント。
// アカウント登録とログインを担当し、ログイン成功時にIDトークンを発行する。
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/nao1215/ordergate/internal/config"
	"github.com/nao1215/ordergate/internal/users"
	"github.com/nao1215/ordergate/pkg/logger"
)

func main() {
	cfg, err := config.LoadUsers()
	if err != nil {
		slog.Error("設定の読み込みに失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.Setup(os.Stdout, cfg.LogLevel, "users")
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Warn("JWT_SECRET is not set; using the development secret")
	}

	server, err := users.NewServer(context.Background(), cfg, log)
	if err != nil {
		log.Error("usersサーバーの初期化に失敗", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("usersサービスを起動します", slog.String("port", cfg.Port))
	runErr := server.Run()
	if err := server.Close(); err != nil {
		log.Error("データベースのクローズに失敗", slog.String("error", err.Error()))
	}
	if runErr != nil {
		log.Error("usersサービスの起動に失敗", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}
