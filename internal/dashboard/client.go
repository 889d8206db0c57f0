// Package dashboard 控制面的终端看板
package dashboard

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/betbot/flyerbot/internal/controlplane/server"
	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/internal/journal"
	sdkhttp "github.com/betbot/flyerbot/pkg/sdk/http"
)

// Client 控制面 API 客户端
type Client struct {
	http *sdkhttp.Client
}

func NewClient(baseURL string, opts sdkhttp.Options) *Client {
	if opts.RetryCount == 0 {
		opts.RetryCount = 1
	}
	opts.UserAgent = "flyer-dashboard"
	return &Client{http: sdkhttp.NewClient(baseURL, opts)}
}

func (c *Client) get(ctx context.Context, path string, params map[string]any, out any) error {
	resp, err := c.http.DoRequest(ctx, http.MethodGet, path, &sdkhttp.RequestOptions{Params: params}, out)
	return errors.WithMessagef(sdkhttp.ParseHTTPError(resp, err), "GET %s", path)
}

func (c *Client) post(ctx context.Context, path string) error {
	resp, err := c.http.DoRequest(ctx, http.MethodPost, path, nil, nil)
	return errors.WithMessagef(sdkhttp.ParseHTTPError(resp, err), "POST %s", path)
}

func (c *Client) Status(ctx context.Context) (server.Status, error) {
	var st server.Status
	err := c.get(ctx, "/api/status", nil, &st)
	return st, err
}

func (c *Client) ActiveOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := c.get(ctx, "/api/orders", map[string]any{"state": string(domain.OrderStateActive)}, &orders)
	return orders, err
}

func (c *Client) Positions(ctx context.Context) ([]domain.Position, error) {
	var positions []domain.Position
	err := c.get(ctx, "/api/positions", nil, &positions)
	return positions, err
}

// Executions 执行流水未启用时返回空
func (c *Client) Executions(ctx context.Context, limit int) ([]journal.Execution, error) {
	var execs []journal.Execution
	err := c.get(ctx, "/api/executions", map[string]any{"limit": limit}, &execs)
	var httpErr *sdkhttp.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return nil, nil
	}
	return execs, err
}

// Toggle 暂停或恢复 stream / batch / healthcheck
func (c *Client) Toggle(ctx context.Context, loop string, pause bool) error {
	action := "resume"
	if pause {
		action = "pause"
	}
	return c.post(ctx, "/api/"+loop+"/"+action)
}

func (c *Client) Sync(ctx context.Context) error {
	return c.post(ctx, "/api/sync")
}
