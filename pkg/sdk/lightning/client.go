// Package lightning 是 bitFlyer Lightning REST API 的签名客户端
package lightning

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/domain"
	"github.com/betbot/flyerbot/pkg/ratelimit"
	sdkhttp "github.com/betbot/flyerbot/pkg/sdk/http"
)

var log = logrus.WithField("component", "lightning_rest")

// Config 客户端配置
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	ProxyURL  string
}

// Client Lightning REST 客户端，无状态，可并发使用
type Client struct {
	http    *sdkhttp.Client
	key     string
	secret  string
	limiter *ratelimit.RateLimitManager
	now     func() time.Time
}

// NewClient 创建客户端
func NewClient(cfg Config, limiter *ratelimit.RateLimitManager) *Client {
	if limiter == nil {
		limiter = ratelimit.NewRateLimitManager()
	}
	return &Client{
		http: sdkhttp.NewClient(cfg.BaseURL, sdkhttp.Options{
			Timeout:    cfg.Timeout,
			RetryCount: 2,
			ProxyURL:   cfg.ProxyURL,
		}),
		key:     cfg.APIKey,
		secret:  cfg.APISecret,
		limiter: limiter,
		now:     time.Now,
	}
}

func (c *Client) signer() sdkhttp.Signer {
	return func(method, pathWithQuery string, body []byte) map[string]string {
		return signHeaders(c.key, c.secret, c.now(), method, pathWithQuery, body)
	}
}

// do 限流 + 签名 + 错误转换
func (c *Client) do(ctx context.Context, class, method, endpoint string, params map[string]any, data, out any) error {
	if err := c.limiter.Wait(ctx, class); err != nil {
		return errors.Wrapf(err, "%s %s 等待限流", method, endpoint)
	}
	opt := &sdkhttp.RequestOptions{Params: params, Data: data}
	if class != ratelimit.ClassPublic {
		opt.Signer = c.signer()
	}
	resp, err := c.http.DoRequest(ctx, method, endpoint, opt, out)
	if err := sdkhttp.ParseHTTPError(resp, err); err != nil {
		return errors.Wrapf(err, "%s %s", method, endpoint)
	}
	return nil
}

// GetOrders /v1/me/getchildorders
func (c *Client) GetOrders(ctx context.Context, productCode string, filter domain.OrderFilter) ([]domain.Order, error) {
	params := map[string]any{
		"product_code":              productCode,
		"child_order_state":         string(filter.ChildOrderState),
		"child_order_acceptance_id": filter.ChildOrderAcceptanceID,
	}
	if filter.Count > 0 {
		params["count"] = filter.Count
	}
	var out []domain.Order
	if err := c.do(ctx, ratelimit.ClassPrivate, http.MethodGet, "/v1/me/getchildorders", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPositions /v1/me/getpositions
func (c *Client) GetPositions(ctx context.Context, productCode string) ([]domain.Position, error) {
	var out []domain.Position
	params := map[string]any{"product_code": productCode}
	if err := c.do(ctx, ratelimit.ClassPrivate, http.MethodGet, "/v1/me/getpositions", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBalance /v1/me/getbalance
func (c *Client) GetBalance(ctx context.Context) ([]domain.Balance, error) {
	var out []domain.Balance
	if err := c.do(ctx, ratelimit.ClassPrivate, http.MethodGet, "/v1/me/getbalance", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCollateral /v1/me/getcollateral
func (c *Client) GetCollateral(ctx context.Context) (domain.Collateral, error) {
	var out domain.Collateral
	err := c.do(ctx, ratelimit.ClassPrivate, http.MethodGet, "/v1/me/getcollateral", nil, nil, &out)
	return out, err
}

// GetBoardState /v1/getboardstate
func (c *Client) GetBoardState(ctx context.Context, productCode string) (domain.BoardState, error) {
	var out domain.BoardState
	params := map[string]any{"product_code": productCode}
	err := c.do(ctx, ratelimit.ClassPublic, http.MethodGet, "/v1/getboardstate", params, nil, &out)
	return out, err
}

// GetTicker /v1/getticker
func (c *Client) GetTicker(ctx context.Context, productCode string) (domain.Ticker, error) {
	var out domain.Ticker
	params := map[string]any{"product_code": productCode}
	err := c.do(ctx, ratelimit.ClassPublic, http.MethodGet, "/v1/getticker", params, nil, &out)
	return out, err
}

// CreateOrder /v1/me/sendchildorder
func (c *Client) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error) {
	if !req.Side.Valid() {
		return domain.OrderAck{}, errors.Errorf("非法方向: %q", req.Side)
	}
	if req.ChildOrderType == "" {
		req.ChildOrderType = domain.ChildOrderTypeLimit
	}
	if req.ChildOrderType == domain.ChildOrderTypeMarket {
		req.Price = 0
	}
	var ack domain.OrderAck
	if err := c.do(ctx, ratelimit.ClassOrder, http.MethodPost, "/v1/me/sendchildorder", nil, req, &ack); err != nil {
		return domain.OrderAck{}, err
	}
	log.Debugf("下单受理: %s %s %.8f@%.0f -> %s", req.ProductCode, req.Side, req.Size, req.Price, ack.ChildOrderAcceptanceID)
	return ack, nil
}

// CancelOrder /v1/me/cancelchildorder
func (c *Client) CancelOrder(ctx context.Context, req domain.CancelRequest) error {
	if req.ChildOrderID == "" && req.ChildOrderAcceptanceID == "" {
		return errors.New("撤单需要 child_order_id 或 child_order_acceptance_id")
	}
	return c.do(ctx, ratelimit.ClassOrder, http.MethodPost, "/v1/me/cancelchildorder", nil, req, nil)
}
