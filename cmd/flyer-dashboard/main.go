package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betbot/flyerbot/internal/dashboard"
	sdkhttp "github.com/betbot/flyerbot/pkg/sdk/http"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8090", "控制面地址")
	interval := flag.Duration("interval", 2*time.Second, "刷新间隔")
	flag.Parse()

	client := dashboard.NewClient(*addr, sdkhttp.Options{Timeout: 5 * time.Second})
	p := tea.NewProgram(dashboard.NewModel(client, *interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", err)
		os.Exit(1)
	}
}
