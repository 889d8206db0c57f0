// Package server 控制面 HTTP API：查询账本状态，暂停/恢复各个循环，手动触发全量同步
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/infrastructure/websocket"
	"github.com/betbot/flyerbot/internal/journal"
	"github.com/betbot/flyerbot/internal/ports"
)

var serverLog = logrus.WithField("component", "controlplane")

type Config struct {
	Listen         string
	AllowedOrigins []string
	ProductCode    string
}

// OrderSource 订单账本
type OrderSource interface {
	List() []domain.Order
}

// PositionSource 持仓账本
type PositionSource interface {
	List() []domain.Position
	NetSize(side domain.Side) float64
}

// PortfolioSource 账户快照
type PortfolioSource interface {
	Snapshot() domain.PortfolioSnapshot
}

// ExecutionSource 成交流水
type ExecutionSource interface {
	Recent(ctx context.Context, limit int) ([]journal.Execution, error)
	RealizedPnL(ctx context.Context) (float64, error)
}

// ExchangeStatus 交易所状态与全量同步
type ExchangeStatus interface {
	ports.Syncer
	BoardState() domain.BoardState
	LastSync() time.Time
}

// StreamControl 实时流
type StreamControl interface {
	ports.Pausable
	State() websocket.State
	Backlog() int
}

// RiskControl 熔断器
type RiskControl interface {
	ports.Pausable
	DailyPnL() float64
}

// Deps 控制面依赖的运行时组件；Executions 和 Risk 可以为 nil
type Deps struct {
	Orders      OrderSource
	Positions   PositionSource
	Portfolio   PortfolioSource
	Executions  ExecutionSource
	Exchange    ExchangeStatus
	Stream      StreamControl
	Batch       ports.Pausable
	HealthCheck ports.Pausable
	Risk        RiskControl
}

type Server struct {
	cfg   Config
	deps  Deps
	loops map[string]ports.Pausable
}

func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Orders == nil || deps.Positions == nil || deps.Portfolio == nil || deps.Exchange == nil {
		return nil, faults.Logic("controlplane.new", "ledgers and exchange are required")
	}
	if deps.Stream == nil || deps.Batch == nil || deps.HealthCheck == nil {
		return nil, faults.Logic("controlplane.new", "stream, batch and health check are required")
	}
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:8090"
	}
	loops := map[string]ports.Pausable{
		"stream":      deps.Stream,
		"batch":       deps.Batch,
		"healthcheck": deps.HealthCheck,
	}
	if deps.Risk != nil {
		loops["risk"] = deps.Risk
	}
	return &Server{cfg: cfg, deps: deps, loops: loops}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.wrap(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	api := r.Group("/api")
	api.GET("/status", s.wrap(s.handleStatus))
	api.GET("/orders", s.wrap(s.handleOrders))
	api.GET("/positions", s.wrap(s.handlePositions))
	api.GET("/portfolio", s.wrap(s.handlePortfolio))
	api.GET("/executions", s.wrap(s.handleExecutions))
	api.POST("/sync", s.wrap(s.handleSync))

	loop := api.Group("/:loop")
	loop.POST("/pause", s.wrap(s.handlePause))
	loop.POST("/resume", s.wrap(s.handleResume))

	if len(s.cfg.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

// Start 非阻塞启动，ctx 结束时优雅关闭
func (s *Server) Start(ctx context.Context) (*http.Server, error) {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return nil, faults.Logic("controlplane.start", "listen %s: %v", s.cfg.Listen, err)
	}
	srv := &http.Server{Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		serverLog.Infof("控制面监听 %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLog.Errorf("控制面异常退出: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv, nil
}

type paramsKeyType string

const paramsKey paramsKeyType = "flyerbot_path_params"

// wrap adapts net/http handlers to gin, injecting path params into request context.
func (s *Server) wrap(h func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return func(c *gin.Context) {
		m := map[string]string{}
		for _, p := range c.Params {
			m[p.Key] = p.Value
		}
		ctx := context.WithValue(c.Request.Context(), paramsKey, m)
		c.Request = c.Request.WithContext(ctx)
		h(c.Writer, c.Request)
	}
}

func pathParam(r *http.Request, key string) string {
	m, _ := r.Context().Value(paramsKey).(map[string]string)
	return m[key]
}
