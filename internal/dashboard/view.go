package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/betbot/flyerbot/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	buyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	sellStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

func sideStyle(side domain.Side) lipgloss.Style {
	if side == domain.SideSell {
		return sellStyle
	}
	return buyStyle
}

func pausedLabel(paused bool) string {
	if paused {
		return warnStyle.Render("PAUSED")
	}
	return buyStyle.Render("running")
}

func (m Model) View() string {
	if !m.loaded {
		if m.err != nil {
			return fmt.Sprintf("错误: %v\n\n按 q 退出", m.err)
		}
		return "正在连接控制面...\n\n按 q 退出"
	}

	st := m.snap.status
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("flyerbot · %s", st.ProductCode)))
	b.WriteString("\n\n")

	health := buyStyle.Render(fmt.Sprintf("%s / %s", st.BoardState.Health, st.BoardState.State))
	if !st.Healthy {
		health = warnStyle.Render(fmt.Sprintf("%s / %s", st.BoardState.Health, st.BoardState.State))
	}
	lastSync := "never"
	if st.LastSync != nil {
		lastSync = st.LastSync.Local().Format("15:04:05")
	}
	loops := []string{
		titleStyle.Render("交易所 ") + health,
		fmt.Sprintf("%s %s (%s, backlog %d)", titleStyle.Render("stream"), pausedLabel(st.Stream.Paused), st.Stream.State, st.Stream.Backlog),
		fmt.Sprintf("%s %s   %s %s", titleStyle.Render("batch"), pausedLabel(st.Batch.Paused), titleStyle.Render("healthcheck"), pausedLabel(st.HealthCheck.Paused)),
		dimStyle.Render("last sync " + lastSync),
	}
	b.WriteString(borderStyle.Render(strings.Join(loops, "\n")))
	b.WriteString("\n")

	pnl := "n/a"
	if st.RealizedPnL != nil {
		pnl = fmt.Sprintf("%.0f", *st.RealizedPnL)
	}
	account := []string{
		titleStyle.Render("账户"),
		fmt.Sprintf("legal %.0f   crypto %.8f   collateral %.0f", st.Portfolio.LegalAmount, st.Portfolio.CryptoAmount, st.Portfolio.CollateralAmount),
		fmt.Sprintf("net %s / %s   realized pnl %s",
			buyStyle.Render(fmt.Sprintf("BUY %.8f", st.NetBuy)),
			sellStyle.Render(fmt.Sprintf("SELL %.8f", st.NetSell)),
			pnl),
	}
	if st.Risk != nil {
		risk := fmt.Sprintf("risk %s   daily pnl %.0f", buyStyle.Render("ok"), st.Risk.DailyPnL)
		if st.Risk.Halted {
			risk = fmt.Sprintf("risk %s   daily pnl %.0f", warnStyle.Render("HALTED"), st.Risk.DailyPnL)
		}
		account = append(account, risk)
	}
	b.WriteString(borderStyle.Render(strings.Join(account, "\n")))
	b.WriteString("\n")

	orders := []string{titleStyle.Render(fmt.Sprintf("挂单 (%d)", len(m.snap.orders)))}
	for _, o := range m.snap.orders {
		orders = append(orders, sideStyle(o.Side).Render(fmt.Sprintf("%-4s %12.0f x %.8f  %s", o.Side, o.Price, o.OutstandingSize, o.ChildOrderAcceptanceID)))
	}
	positions := []string{titleStyle.Render(fmt.Sprintf("持仓 (%d)", len(m.snap.positions)))}
	for _, p := range m.snap.positions {
		positions = append(positions, sideStyle(p.Side).Render(fmt.Sprintf("%-4s %12.0f x %.8f", p.Side, p.Price, p.Size)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		borderStyle.Render(strings.Join(orders, "\n")),
		borderStyle.Render(strings.Join(positions, "\n")),
	))
	b.WriteString("\n")

	if len(m.snap.executions) > 0 {
		execs := []string{titleStyle.Render("最近成交")}
		for _, e := range m.snap.executions {
			execs = append(execs, fmt.Sprintf("%s %s %12.0f x %.8f  pnl %.0f",
				dimStyle.Render(e.ExecutedAt.Local().Format("15:04:05")),
				sideStyle(e.Side).Render(fmt.Sprintf("%-4s", e.Side)),
				e.Price, e.Size, e.RealizedPnL))
		}
		b.WriteString(borderStyle.Render(strings.Join(execs, "\n")))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(sellStyle.Render(fmt.Sprintf("错误: %v", m.err)))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(dimStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("更新于 %s · s stream · b batch · h healthcheck · k risk · y sync · r 刷新 · q 退出",
		m.snap.fetchedAt.Format("15:04:05"))))
	return b.String()
}
