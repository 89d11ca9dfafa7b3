package users

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ordergate/internal/config"
	"github.com/nao1215/ordergate/pkg/apperror"
	"github.com/nao1215/ordergate/pkg/metrics"
	"github.com/nao1215/ordergate/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Server はusersサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// service はアカウント操作のビジネスロジック。
	service *Service
	// logger は構造化ロガー。
	logger *slog.Logger
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しいusersサーバーを生成する。
// SQLiteデータベースの初期化とマイグレーションを行う。
func NewServer(ctx context.Context, cfg *config.Users, logger *slog.Logger) (*Server, error) {
	db, err := OpenDB(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		return nil, err
	}

	svc, err := NewService(
		NewSQLiteStore(db),
		NewBcryptHasher(cfg.BcryptCost),
		middleware.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("サービスの初期化に失敗: %w", err)
	}

	s := newServer(svc, logger, prometheus.NewRegistry())
	s.port = cfg.Port
	s.db = db
	return s, nil
}

// newServer はルーティング済みのServerを生成する。
func newServer(svc *Service, logger *slog.Logger, reg *prometheus.Registry) *Server {
	collector := metrics.NewCollector(reg, "users")

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(collector.Middleware())

	s := &Server{
		router:  router,
		service: svc,
		logger:  logger,
	}
	s.setupRoutes(reg)
	return s
}

// Handler はルーティング済みのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	v1 := s.router.Group("/v1/users")
	{
		// アカウント登録
		v1.POST("/register", s.handleRegister())
		// ログイン
		v1.POST("/login", s.handleLogin())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "users"})
	})
	s.router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
}

// credentialsRequest は登録・ログインリクエストのJSON構造。
type credentialsRequest struct {
	// Email はメールアドレス。
	Email string `json:"email"`
	// Password は平文のパスワード。
	Password string `json:"password"`
}

// handleRegister はアカウント登録ハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperror.Write(c, s.logger, apperror.ErrInvalidInput.WithMessage("リクエストボディが不正です"))
			return
		}

		summary, err := s.service.Register(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			apperror.Write(c, s.logger, err)
			return
		}

		s.logger.InfoContext(c.Request.Context(), "account registered", slog.String("user_id", summary.ID))
		c.JSON(http.StatusCreated, summary)
	}
}

// handleLogin はログインハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperror.Write(c, s.logger, apperror.ErrInvalidInput.WithMessage("リクエストボディが不正です"))
			return
		}

		result, err := s.service.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			apperror.Write(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
