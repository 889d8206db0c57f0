package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/flyerbot/internal/controlplane/server"
	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/journal"
	sdkhttp "github.com/betbot/flyerbot/pkg/sdk/http"
)

type stubAPI struct {
	mu      sync.Mutex
	status  server.Status
	err     error
	toggles []string
	syncs   int
}

func (s *stubAPI) Status(context.Context) (server.Status, error) { return s.status, s.err }
func (s *stubAPI) ActiveOrders(context.Context) ([]domain.Order, error) {
	return []domain.Order{{Side: domain.SideBuy, Price: 101, OutstandingSize: 0.01, ChildOrderAcceptanceID: "JRF1"}}, nil
}
func (s *stubAPI) Positions(context.Context) ([]domain.Position, error) {
	return []domain.Position{{Side: domain.SideSell, Price: 99, Size: 0.02}}, nil
}
func (s *stubAPI) Executions(context.Context, int) ([]journal.Execution, error) { return nil, nil }

func (s *stubAPI) Toggle(_ context.Context, loop string, pause bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pause {
		s.toggles = append(s.toggles, loop+":pause")
	} else {
		s.toggles = append(s.toggles, loop+":resume")
	}
	return nil
}

func (s *stubAPI) Sync(context.Context) error {
	s.syncs++
	return nil
}

func key(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func loadedModel(t *testing.T, api *stubAPI) Model {
	t.Helper()
	m := NewModel(api, time.Second)
	msg := m.fetchCmd()()
	next, _ := m.Update(msg)
	return next.(Model)
}

// TestModel_FetchAndRender 拉取后渲染各个面板
func TestModel_FetchAndRender(t *testing.T) {
	pnl := 40.0
	api := &stubAPI{status: server.Status{
		ProductCode: "FX_BTC_JPY",
		BoardState:  domain.BoardState{Health: domain.HealthNormal, State: domain.MarketStateRunning},
		Healthy:     true,
		Stream:      server.StreamStatus{State: "RECEIVING"},
		Batch:       server.LoopStatus{Paused: true},
		RealizedPnL: &pnl,
	}}
	m := loadedModel(t, api)
	require.True(t, m.loaded)

	view := m.View()
	assert.Contains(t, view, "FX_BTC_JPY")
	assert.Contains(t, view, "RECEIVING")
	assert.Contains(t, view, "PAUSED")
	assert.Contains(t, view, "JRF1")
	assert.Contains(t, view, "realized pnl 40")
}

// TestModel_ErrorBeforeLoad 首次拉取失败显示错误
func TestModel_ErrorBeforeLoad(t *testing.T) {
	api := &stubAPI{err: errors.New("connection refused")}
	m := NewModel(api, 0)
	next, _ := m.Update(m.fetchCmd()())
	assert.Contains(t, next.View(), "connection refused")
}

// TestModel_ToggleKeys 按键根据当前状态切换暂停
func TestModel_ToggleKeys(t *testing.T) {
	api := &stubAPI{status: server.Status{Batch: server.LoopStatus{Paused: true}}}
	m := loadedModel(t, api)

	for _, k := range []string{"s", "b", "h"} {
		_, cmd := m.Update(key(k))
		require.NotNil(t, cmd)
		msg := cmd()
		assert.IsType(t, noticeMsg(""), msg)
	}
	assert.Equal(t, []string{"stream:pause", "batch:resume", "healthcheck:pause"}, api.toggles)

	_, cmd := m.Update(key("y"))
	assert.Equal(t, noticeMsg("sync done"), cmd())
	assert.Equal(t, 1, api.syncs)
}

// TestModel_Quit q 退出
func TestModel_Quit(t *testing.T) {
	m := NewModel(&stubAPI{}, time.Second)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

// TestClient 通过 HTTP 访问控制面
func TestClient(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/status":
			_ = json.NewEncoder(w).Encode(server.Status{ProductCode: "FX_BTC_JPY"})
		case "/api/orders":
			_, _ = w.Write([]byte(`[{"child_order_acceptance_id":"A","child_order_state":"ACTIVE"}]`))
		case "/api/executions":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"execution journal disabled"}`))
		case "/api/sync":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream"}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, sdkhttp.Options{Timeout: time.Second})
	ctx := context.Background()

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FX_BTC_JPY", st.ProductCode)

	orders, err := c.ActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	execs, err := c.Executions(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, execs)

	require.NoError(t, c.Toggle(ctx, "stream", true))

	err = c.Sync(ctx)
	var httpErr *sdkhttp.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, paths, "GET /api/orders?state=ACTIVE")
	assert.Contains(t, paths, "GET /api/executions?limit=5")
	assert.Contains(t, paths, "POST /api/stream/pause")
}
