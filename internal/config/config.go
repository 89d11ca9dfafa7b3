// Package config は各サービスの設定を環境変数から読み込む。
// 起動時に1回読み込み、イミュータブルとして扱う。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/ordergate/pkg/logger"
)

// DefaultJWTSecret は開発用の共有シークレット。本番環境では必ずJWT_SECRETで上書きする。
const DefaultJWTSecret = "super-secret-for-dev"

// Users はusersサービスの設定。
type Users struct {
	// Port はリッスンポート。
	Port string
	// DatabaseDSN はSQLiteのDSN。
	DatabaseDSN string
	// JWTSecret はトークン署名用の共有シークレット。
	JWTSecret string
	// TokenTTL は発行するトークンの有効期間。
	TokenTTL time.Duration
	// BcryptCost はパスワードハッシュのコスト。
	BcryptCost int
	// LogLevel はログの出力レベル。
	LogLevel slog.Level
}

// Orders はordersサービスの設定。
type Orders struct {
	// Port はリッスンポート。
	Port string
	// DatabaseDSN はSQLiteのDSN。
	DatabaseDSN string
	// JWTSecret はトークン検証用の共有シークレット。usersサービスと同じ値を設定する。
	JWTSecret string
	// LogLevel はログの出力レベル。
	LogLevel slog.Level
}

// Gateway はGatewayサービスの設定。
type Gateway struct {
	// Port はリッスンポート。
	Port string
	// UsersServiceURL はusersサービスのベースURL。
	UsersServiceURL string
	// OrdersServiceURL はordersサービスのベースURL。
	OrdersServiceURL string
	// UpstreamTimeout は上流サービス呼び出しのタイムアウト。
	UpstreamTimeout time.Duration
	// CORSAllowedOrigins はCORSで許可するオリジン。
	CORSAllowedOrigins []string
	// LogLevel はログの出力レベル。
	LogLevel slog.Level
}

// LoadUsers は環境変数からusersサービスの設定を読み込む。
func LoadUsers() (*Users, error) {
	var errs parseErrors
	cfg := &Users{
		Port:        getEnvString("PORT", "3001"),
		DatabaseDSN: getEnvString("DATABASE_DSN", ":memory:"),
		JWTSecret:   getEnvString("JWT_SECRET", DefaultJWTSecret),
		TokenTTL:    errs.duration("TOKEN_TTL", 24*time.Hour),
		BcryptCost:  errs.int("BCRYPT_COST", 10),
		LogLevel:    logger.ParseLevel(os.Getenv("LOG_LEVEL")),
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, "TOKEN_TTL must be positive")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrders は環境変数からordersサービスの設定を読み込む。
func LoadOrders() (*Orders, error) {
	return &Orders{
		Port:        getEnvString("PORT", "3002"),
		DatabaseDSN: getEnvString("DATABASE_DSN", ":memory:"),
		JWTSecret:   getEnvString("JWT_SECRET", DefaultJWTSecret),
		LogLevel:    logger.ParseLevel(os.Getenv("LOG_LEVEL")),
	}, nil
}

// LoadGateway は環境変数からGatewayサービスの設定を読み込む。
func LoadGateway() (*Gateway, error) {
	var errs parseErrors
	cfg := &Gateway{
		Port:               getEnvString("PORT", "8085"),
		UsersServiceURL:    strings.TrimRight(getEnvString("USERS_SERVICE_URL", "http://localhost:3001"), "/"),
		OrdersServiceURL:   strings.TrimRight(getEnvString("ORDERS_SERVICE_URL", "http://localhost:3002"), "/"),
		UpstreamTimeout:    errs.duration("UPSTREAM_TIMEOUT", 10*time.Second),
		CORSAllowedOrigins: splitList(getEnvString("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:           logger.ParseLevel(os.Getenv("LOG_LEVEL")),
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseErrors は解釈できなかった環境変数を集める。
type parseErrors []string

func (p *parseErrors) int(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*p = append(*p, fmt.Sprintf("%s=%q is not an integer", key, v))
		return defaultVal
	}
	return i
}

func (p *parseErrors) duration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*p = append(*p, fmt.Sprintf("%s=%q is not a duration", key, v))
		return defaultVal
	}
	return d
}

func (p parseErrors) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment variables: %s", strings.Join(p, "; "))
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// splitList はカンマ区切りの値を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
