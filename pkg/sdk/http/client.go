package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Signer 根据最终发送的 method / 路径(含 query) / body 生成签名头
type Signer func(method, pathWithQuery string, body []byte) map[string]string

// Options 客户端选项
type Options struct {
	Timeout    time.Duration
	RetryCount int
	ProxyURL   string
	UserAgent  string
}

type Client struct {
	client    *resty.Client
	userAgent string
}

func NewClient(host string, opts Options) *Client {
	host = strings.TrimSuffix(host, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "flyerbot"
	}

	client := resty.New().
		SetBaseURL(host).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		// 只重试幂等的 GET，下单/撤单重试可能造成重复
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		}).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			// 如果遇到 429 限流，使用 Retry-After 头
			if resp != nil && resp.StatusCode() == http.StatusTooManyRequests {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return seconds, nil
					}
				}
				return 10 * time.Second, nil
			}
			return 0, nil
		})
	if opts.ProxyURL != "" {
		client.SetProxy(opts.ProxyURL)
	}

	return &Client{client: client, userAgent: opts.UserAgent}
}

type RequestOptions struct {
	Headers map[string]string
	Data    any
	Params  map[string]any
	Signer  Signer
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", c.userAgent)
	return r
}

// DoRequest 发送请求；query 和 body 先序列化成字节，保证签名内容与实际发送一致
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, opt *RequestOptions, out any) (*resty.Response, error) {
	method = strings.ToUpper(method)
	rc := c.newRequest(ctx)

	path := endpoint
	var body []byte
	if opt != nil {
		if q := encodeQuery(opt.Params); q != "" {
			path = endpoint + "?" + q
		}
		if opt.Data != nil {
			var err error
			body, err = encodeBody(opt.Data)
			if err != nil {
				return nil, errors.Wrap(err, "encode request body")
			}
			rc.SetHeader("Content-Type", "application/json")
			rc.SetBody(body)
		}
		for k, v := range opt.Headers {
			rc.SetHeader(k, v)
		}
		if opt.Signer != nil {
			for k, v := range opt.Signer(method, path, body) {
				rc.SetHeader(k, v)
			}
		}
	}
	if out != nil {
		rc.SetResult(out)
	}

	switch method {
	case http.MethodGet:
		return rc.Get(path)
	case http.MethodPost:
		return rc.Post(path)
	case http.MethodDelete:
		return rc.Delete(path)
	case http.MethodPut:
		return rc.Put(path)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
}

func encodeBody(data any) ([]byte, error) {
	switch b := data.(type) {
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(data)
	}
}

// encodeQuery 按 key 排序编码，空值跳过
func encodeQuery(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	v := url.Values{}
	for _, k := range keys {
		switch t := m[k].(type) {
		case []string:
			for _, s := range t {
				v.Add(k, s)
			}
		case string:
			if t != "" {
				v.Add(k, t)
			}
		default:
			v.Add(k, fmt.Sprint(t))
		}
	}
	return v.Encode()
}

// HTTPError 非 2xx 响应
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseHTTPError 把传输错误和非 2xx 统一转换为 error
func ParseHTTPError(resp *resty.Response, err error) error {
	if err != nil {
		return errors.WithStack(err)
	}
	if resp.IsSuccess() {
		return nil
	}
	return errors.WithStack(&HTTPError{Status: resp.StatusCode(), Body: strings.TrimSpace(string(resp.Body()))})
}
