package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ordergate/internal/config"
	"github.com/nao1215/ordergate/pkg/apperror"
	"github.com/nao1215/ordergate/pkg/httpclient"
	"github.com/nao1215/ordergate/pkg/metrics"
	"github.com/nao1215/ordergate/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// availableRoutes は未定義のルートへのリクエストに対して案内するルート一覧。
var availableRoutes = []string{
	"GET /health",
	"POST /v1/users/register",
	"POST /v1/users/login",
	"POST /v1/orders",
	"GET /v1/orders",
	"GET /v1/orders/:id",
	"PATCH /v1/orders/:id",
	"PATCH /v1/orders/:id/cancel",
}

// hopByHopHeaders は転送時に引き継がないヘッダー。
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// upstream は転送先の内部サービス。
type upstream struct {
	// name はサービス名。
	name string
	// prefix はこのサービスへ転送するパスの接頭辞。
	prefix string
	// client は転送先へのHTTPクライアント。
	client *httpclient.Client
}

// matches はpathがこのサービスの接頭辞配下かどうかを判定する。
func (u upstream) matches(path string) bool {
	return path == u.prefix || strings.HasPrefix(path, u.prefix+"/")
}

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// upstreams は接頭辞と転送先の対応。
	upstreams []upstream
	// logger は構造化ロガー。
	logger *slog.Logger
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(cfg *config.Gateway, logger *slog.Logger) (*Server, error) {
	if cfg.UsersServiceURL == "" || cfg.OrdersServiceURL == "" {
		return nil, fmt.Errorf("上流サービスのURLが設定されていません")
	}

	s := newServer([]upstream{
		{name: "users", prefix: "/v1/users", client: httpclient.New(cfg.UsersServiceURL, cfg.UpstreamTimeout)},
		{name: "orders", prefix: "/v1/orders", client: httpclient.New(cfg.OrdersServiceURL, cfg.UpstreamTimeout)},
	}, cfg.CORSAllowedOrigins, logger, prometheus.NewRegistry())
	s.port = cfg.Port
	return s, nil
}

// newServer はルーティング済みのServerを生成する。
func newServer(upstreams []upstream, allowedOrigins []string, logger *slog.Logger, reg *prometheus.Registry) *Server {
	collector := metrics.NewCollector(reg, "gateway")

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(collector.Middleware())

	s := &Server{
		router:    router,
		upstreams: upstreams,
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

// setupRoutes はルーティングを設定する。
// /v1 配下は固定のルートを持たず、NoRouteで接頭辞を照合して転送する。
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/health", s.handleHealth())
	s.router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
	s.router.NoRoute(s.handleForward())
}

// upstreamHealth は上流サービス1件のヘルスチェック結果。
type upstreamHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth は自身と上流サービスの状態を返すハンドラを返す。
// 上流のいずれかが応答しない場合は503とdegradedを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		results := s.probeUpstreams(c.Request.Context())

		status, code := "ok", http.StatusOK
		for _, r := range results {
			if r.Status != "ok" {
				status, code = "degraded", http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(code, gin.H{
			"status":    status,
			"service":   "gateway",
			"upstreams": results,
		})
	}
}

// probeUpstreams は全上流サービスの /health を並行に問い合わせる。
func (s *Server) probeUpstreams(ctx context.Context) map[string]upstreamHealth {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]upstreamHealth, len(s.upstreams))
	)
	for _, u := range s.upstreams {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var body struct {
				Status string `json:"status"`
			}
			h := upstreamHealth{Status: "ok"}
			if err := u.client.GetJSON(ctx, "/health", &body); err != nil {
				h = upstreamHealth{Status: "down", Error: err.Error()}
			} else if body.Status != "ok" {
				h = upstreamHealth{Status: "down", Error: fmt.Sprintf("unexpected status %q", body.Status)}
			}

			mu.Lock()
			results[u.name] = h
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// handleForward は接頭辞が一致する上流サービスへリクエストを転送するハンドラを返す。
// 一致しない場合は404と利用可能なルートの一覧を返す。
func (s *Server) handleForward() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, u := range s.upstreams {
			if u.matches(c.Request.URL.Path) {
				s.doProxy(c, u)
				return
			}
		}

		c.JSON(http.StatusNotFound, gin.H{
			"error":           "ルートが見つかりません",
			"code":            "ROUTE_NOT_FOUND",
			"availableRoutes": availableRoutes,
		})
	}
}

// doProxy はリクエストをメソッド、パス、クエリ、ヘッダー、ボディを保ったまま上流へ転送し、
// 上流のステータス、ヘッダー、ボディをそのまま返す。
func (s *Server) doProxy(c *gin.Context, u upstream) {
	url := u.client.BaseURL() + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		url += "?" + c.Request.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, url, c.Request.Body)
	if err != nil {
		apperror.Write(c, s.logger, fmt.Errorf("プロキシリクエストの作成に失敗: %w", err))
		return
	}
	copyHeaders(req.Header, c.Request.Header)
	req.ContentLength = c.Request.ContentLength
	req.Header.Set("X-Forwarded-For", c.ClientIP())
	req.Header.Set("X-Forwarded-Host", c.Request.Host)

	resp, err := u.client.HTTPClient().Do(req)
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "upstream request failed",
			slog.String("upstream", u.name),
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		apperror.Write(c, s.logger, apperror.ErrUpstreamUnavailable)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "upstream response read failed",
			slog.String("upstream", u.name),
			slog.String("error", err.Error()),
		)
		apperror.Write(c, s.logger, apperror.ErrUpstreamUnavailable)
		return
	}

	copyHeaders(c.Writer.Header(), resp.Header)
	// Content-Lengthはc.Dataが書き込む
	c.Writer.Header().Del("Content-Length")
	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), body)
}

// copyHeaders はhop-by-hopヘッダーを除いてsrcのヘッダーをdstへ複製する。
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if hopByHopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
