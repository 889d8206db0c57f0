package dashboard

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betbot/flyerbot/internal/controlplane/server"
	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/journal"
)

// API 看板依赖的控制面能力
type API interface {
	Status(ctx context.Context) (server.Status, error)
	ActiveOrders(ctx context.Context) ([]domain.Order, error)
	Positions(ctx context.Context) ([]domain.Position, error)
	Executions(ctx context.Context, limit int) ([]journal.Execution, error)
	Toggle(ctx context.Context, loop string, pause bool) error
	Sync(ctx context.Context) error
}

const (
	requestTimeout = 5 * time.Second
	executionRows  = 10
)

// tickMsg 定时刷新
type tickMsg time.Time

// snapshotMsg 一轮拉取的结果
type snapshotMsg struct {
	status     server.Status
	orders     []domain.Order
	positions  []domain.Position
	executions []journal.Execution
	fetchedAt  time.Time
}

// noticeMsg 操作结果提示
type noticeMsg string

type errMsg struct{ err error }

// Model bubbletea 看板状态
type Model struct {
	api      API
	interval time.Duration

	snap   snapshotMsg
	loaded bool
	err    error
	notice string
	width  int
}

func NewModel(api API, interval time.Duration) Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return Model{api: api, interval: interval}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), m.tickCmd())
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchCmd() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		st, err := api.Status(ctx)
		if err != nil {
			return errMsg{err}
		}
		orders, err := api.ActiveOrders(ctx)
		if err != nil {
			return errMsg{err}
		}
		positions, err := api.Positions(ctx)
		if err != nil {
			return errMsg{err}
		}
		execs, err := api.Executions(ctx, executionRows)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg{status: st, orders: orders, positions: positions, executions: execs, fetchedAt: time.Now()}
	}
}

// actionCmd 执行一个控制操作，然后立即刷新
func (m Model) actionCmd(label string, do func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := do(ctx); err != nil {
			return errMsg{err}
		}
		return noticeMsg(label)
	}
}

func (m Model) toggleCmd(loop string, currentlyPaused bool) tea.Cmd {
	pause := !currentlyPaused
	label := loop + " resumed"
	if pause {
		label = loop + " paused"
	}
	return m.actionCmd(label, func(ctx context.Context) error { return m.api.Toggle(ctx, loop, pause) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		case "s":
			return m, m.toggleCmd("stream", m.snap.status.Stream.Paused)
		case "b":
			return m, m.toggleCmd("batch", m.snap.status.Batch.Paused)
		case "h":
			return m, m.toggleCmd("healthcheck", m.snap.status.HealthCheck.Paused)
		case "k":
			if m.snap.status.Risk != nil {
				return m, m.toggleCmd("risk", m.snap.status.Risk.Halted)
			}
		case "y":
			return m, m.actionCmd("sync done", m.api.Sync)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), m.tickCmd())

	case snapshotMsg:
		m.snap = msg
		m.loaded = true
		m.err = nil
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, m.fetchCmd()

	case errMsg:
		m.err = msg.err
		return m, nil
	}
	return m, nil
}
