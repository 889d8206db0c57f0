package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/faults"
)

// Status /api/status 的响应
type Status struct {
	ProductCode  string                   `json:"product_code"`
	BoardState   domain.BoardState        `json:"board_state"`
	Healthy      bool                     `json:"healthy"`
	LastSync     *time.Time               `json:"last_sync,omitempty"`
	Stream       StreamStatus             `json:"stream"`
	Batch        LoopStatus               `json:"batch"`
	HealthCheck  LoopStatus               `json:"healthcheck"`
	ActiveOrders int                      `json:"active_orders"`
	NetBuy       float64                  `json:"net_buy"`
	NetSell      float64                  `json:"net_sell"`
	Portfolio    domain.PortfolioSnapshot `json:"portfolio"`
	RealizedPnL  *float64                 `json:"realized_pnl,omitempty"`
	Risk         *RiskStatus              `json:"risk,omitempty"`
}

type RiskStatus struct {
	Halted   bool    `json:"halted"`
	DailyPnL float64 `json:"daily_pnl"`
}

type StreamStatus struct {
	State   string `json:"state"`
	Paused  bool   `json:"paused"`
	Backlog int    `json:"backlog"`
}

type LoopStatus struct {
	Paused bool `json:"paused"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// writeFault ExchangeFault 是上游问题，其余按服务端错误处理
func writeFault(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if faults.IsExchange(err) {
		code = http.StatusBadGateway
	}
	writeError(w, code, err.Error())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	board := s.deps.Exchange.BoardState()
	st := Status{
		ProductCode: s.cfg.ProductCode,
		BoardState:  board,
		Healthy:     board.Healthy(),
		Stream: StreamStatus{
			State:   s.deps.Stream.State().String(),
			Paused:  s.deps.Stream.Paused(),
			Backlog: s.deps.Stream.Backlog(),
		},
		Batch:       LoopStatus{Paused: s.deps.Batch.Paused()},
		HealthCheck: LoopStatus{Paused: s.deps.HealthCheck.Paused()},
		NetBuy:      s.deps.Positions.NetSize(domain.SideBuy),
		NetSell:     s.deps.Positions.NetSize(domain.SideSell),
		Portfolio:   s.deps.Portfolio.Snapshot(),
	}
	if s.deps.Risk != nil {
		st.Risk = &RiskStatus{Halted: s.deps.Risk.Paused(), DailyPnL: s.deps.Risk.DailyPnL()}
	}
	if last := s.deps.Exchange.LastSync(); !last.IsZero() {
		st.LastSync = &last
	}
	for _, o := range s.deps.Orders.List() {
		if o.IsActive() {
			st.ActiveOrders++
		}
	}
	if s.deps.Executions != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if pnl, err := s.deps.Executions.RealizedPnL(ctx); err == nil {
			st.RealizedPnL = &pnl
		} else {
			serverLog.Warnf("查询已实现盈亏失败: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.deps.Orders.List()
	state := domain.OrderState(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("state"))))
	if state != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.ChildOrderState == state {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.deps.Positions.List()
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Portfolio.Snapshot())
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Executions == nil {
		writeError(w, http.StatusNotFound, "execution journal disabled")
		return
	}
	limit := 100
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	items, err := s.deps.Executions.Recent(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("db list executions: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := s.deps.Exchange.Sync(ctx); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "last_sync": s.deps.Exchange.LastSync()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, true)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.toggle(w, r, false)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, pause bool) {
	name := pathParam(r, "loop")
	loop, ok := s.loops[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown loop %q", name))
		return
	}
	if pause {
		loop.Pause()
	} else {
		loop.Resume()
	}
	serverLog.Infof("手动切换 %s paused=%v", name, loop.Paused())
	writeJSON(w, http.StatusOK, map[string]any{"loop": name, "paused": loop.Paused()})
}
