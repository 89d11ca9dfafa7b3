package orders

import (
	"context"
	"database/sql"
	"errors"
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

// Server はordersサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// service は注文操作のビジネスロジック。
	service *Service
	// verifier はBearerトークンの検証器。
	verifier *middleware.TokenVerifier
	// collector は注文操作の結果を記録する。
	collector *metrics.Collector
	// logger は構造化ロガー。
	logger *slog.Logger
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しいordersサーバーを生成する。
// SQLiteデータベースの初期化とマイグレーションを行う。
func NewServer(ctx context.Context, cfg *config.Orders, logger *slog.Logger) (*Server, error) {
	db, err := OpenDB(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		return nil, err
	}

	s := newServer(NewService(NewSQLiteStore(db)), middleware.NewTokenVerifier(cfg.JWTSecret), logger, prometheus.NewRegistry())
	s.port = cfg.Port
	s.db = db
	return s, nil
}

// newServer はルーティング済みのServerを生成する。
func newServer(svc *Service, verifier *middleware.TokenVerifier, logger *slog.Logger, reg *prometheus.Registry) *Server {
	router := gin.New()
	collector := metrics.NewCollector(reg, "orders")
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(collector.Middleware())

	s := &Server{
		router:    router,
		service:   svc,
		verifier:  verifier,
		collector: collector,
		logger:    logger,
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
	api := s.router.Group("/v1/orders")
	api.Use(middleware.JWTAuth(s.verifier, func(c *gin.Context, err error) {
		apperror.Write(c, s.logger, err)
	}))
	{
		// 注文作成
		api.POST("", s.handleCreate())
		// 注文一覧取得
		api.GET("", s.handleList())
		// 注文詳細取得
		api.GET("/:id", s.handleGet())
		// 注文変更
		api.PATCH("/:id", s.handleUpdate())
		// 注文キャンセル
		api.PATCH("/:id/cancel", s.handleCancel())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "orders"})
	})
	s.router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
}

// createOrderRequest は注文作成リクエストのJSON構造。
// statusは受け付けず、作成された注文は常にpendingになる。
type createOrderRequest struct {
	// Items は注文明細。
	Items []Item `json:"items"`
	// TotalAmount は合計金額。
	TotalAmount float64 `json:"totalAmount"`
}

// updateOrderRequest は注文変更リクエストのJSON構造。
type updateOrderRequest struct {
	// Items は変更後の注文明細。省略時は変更しない。
	Items []Item `json:"items"`
	// TotalAmount は変更後の合計金額。省略時は変更しない。
	TotalAmount *float64 `json:"totalAmount"`
}

// errMalformedBody はリクエストボディがJSONとして解釈できないことを表す。
var errMalformedBody = apperror.ErrInvalidInput.WithMessage("リクエストボディが不正です")

// handleCreate は注文作成ハンドラを返す。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, "create", errMalformedBody)
			return
		}

		order, err := s.service.Create(c.Request.Context(), middleware.GetUserID(c), Draft{
			Items:       req.Items,
			TotalAmount: req.TotalAmount,
		})
		if err != nil {
			s.fail(c, "create", err)
			return
		}

		s.collector.RecordTransition("create", "ok")
		c.JSON(http.StatusCreated, order)
	}
}

// handleList は注文一覧取得ハンドラを返す。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := s.service.List(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			apperror.Write(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// handleGet は注文詳細取得ハンドラを返す。
func (s *Server) handleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := s.service.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
		if err != nil {
			apperror.Write(c, s.logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// handleUpdate は注文変更ハンドラを返す。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		// ボディの不正は存在確認と所有者確認の後に報告する。
		var req updateOrderRequest
		patch := Patch{}
		if err := c.ShouldBindJSON(&req); err != nil {
			patch.bodyErr = errMalformedBody
		} else {
			patch.Items = req.Items
			patch.TotalAmount = req.TotalAmount
		}

		order, err := s.service.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), patch)
		if err != nil {
			s.fail(c, "update", err)
			return
		}

		s.collector.RecordTransition("update", "ok")
		c.JSON(http.StatusOK, order)
	}
}

// handleCancel は注文キャンセルハンドラを返す。
func (s *Server) handleCancel() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := s.service.Cancel(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
		if err != nil {
			s.fail(c, "cancel", err)
			return
		}

		s.logger.InfoContext(c.Request.Context(), "order cancelled",
			slog.String("order_id", order.ID),
			slog.String("user_id", order.OwnerID),
		)
		s.collector.RecordTransition("cancel", "ok")
		c.JSON(http.StatusOK, order)
	}
}

// fail は操作の失敗を記録してエラーレスポンスを書き込む。
func (s *Server) fail(c *gin.Context, operation string, err error) {
	result := "INTERNAL_ERROR"
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		result = appErr.Code
	}
	s.collector.RecordTransition(operation, result)
	apperror.Write(c, s.logger, err)
}
