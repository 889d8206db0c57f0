package lightning

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/flyerbot/internal/domain"
)

type recorded struct {
	method string
	uri    string
	body   []byte
	header http.Header
}

func newTestServer(t *testing.T, routes map[string]string) (*httptest.Server, *[]recorded) {
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recorded{method: r.Method, uri: r.URL.RequestURI(), body: b, header: r.Header.Clone()})
		mu.Unlock()
		resp, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":-100,"error_message":"unknown"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(baseURL string) *Client {
	c := NewClient(Config{BaseURL: baseURL, APIKey: "key", APISecret: "secret", Timeout: 2 * time.Second}, nil)
	c.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC) }
	return c
}

// TestSign 签名内容为 timestamp + METHOD + path + body
func TestSign(t *testing.T) {
	a := Sign("secret", "ts", "GET", "/v1/me/getbalance", nil)
	b := Sign("secret", "ts", "GET", "/v1/me/getbalance", []byte{})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Sign("secret", "ts", "POST", "/v1/me/getbalance", nil))
	assert.NotEqual(t, a, Sign("other", "ts", "GET", "/v1/me/getbalance", nil))
}

// TestSignRealtime 实时 API 签名等价于对 "timestamp+nonce" 整体做 HMAC
func TestSignRealtime(t *testing.T) {
	sig := SignRealtime("secret", 1700000000, "abcd")
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("1700000000abcd"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig)
	assert.NotEqual(t, sig, SignRealtime("secret", 1700000001, "abcd"))
}

// TestGetOrders_SignsPathWithQuery 私有 GET 的签名包含 query
func TestGetOrders_SignsPathWithQuery(t *testing.T) {
	srv, calls := newTestServer(t, map[string]string{
		"/v1/me/getchildorders": `[{"id":1,"child_order_id":"JOR1","product_code":"FX_BTC_JPY","side":"BUY","child_order_type":"LIMIT","price":100,"size":0.1,"child_order_state":"ACTIVE","child_order_acceptance_id":"JRF1"}]`,
	})
	c := newTestClient(srv.URL)

	orders, err := c.GetOrders(context.Background(), "FX_BTC_JPY", domain.OrderFilter{ChildOrderState: domain.OrderStateActive})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "JRF1", orders[0].ChildOrderAcceptanceID)
	assert.Equal(t, domain.SideBuy, orders[0].Side)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/v1/me/getchildorders?child_order_state=ACTIVE&product_code=FX_BTC_JPY", call.uri)
	ts := call.header.Get("ACCESS-TIMESTAMP")
	assert.Equal(t, "2024-01-02 03:04:05.000006", ts)
	assert.Equal(t, "key", call.header.Get("ACCESS-KEY"))
	assert.Equal(t, Sign("secret", ts, "GET", call.uri, nil), call.header.Get("ACCESS-SIGN"))
}

// TestCreateOrder_SignsBody POST 的签名包含 body
func TestCreateOrder_SignsBody(t *testing.T) {
	srv, calls := newTestServer(t, map[string]string{
		"/v1/me/sendchildorder": `{"child_order_acceptance_id":"JRF20240102-1"}`,
	})
	c := newTestClient(srv.URL)

	ack, err := c.CreateOrder(context.Background(), domain.OrderRequest{
		ProductCode: "FX_BTC_JPY", Side: domain.SideSell, Price: 5000000, Size: 0.01,
	})
	require.NoError(t, err)
	assert.Equal(t, "JRF20240102-1", ack.ChildOrderAcceptanceID)

	call := (*calls)[0]
	var sent domain.OrderRequest
	require.NoError(t, json.Unmarshal(call.body, &sent))
	assert.Equal(t, domain.ChildOrderTypeLimit, sent.ChildOrderType)
	assert.Equal(t, Sign("secret", call.header.Get("ACCESS-TIMESTAMP"), "POST", "/v1/me/sendchildorder", call.body), call.header.Get("ACCESS-SIGN"))
}

// TestCreateOrder_RejectsBadSide 非法方向不发请求
func TestCreateOrder_RejectsBadSide(t *testing.T) {
	srv, calls := newTestServer(t, nil)
	c := newTestClient(srv.URL)
	_, err := c.CreateOrder(context.Background(), domain.OrderRequest{ProductCode: "FX_BTC_JPY", Side: "HOLD", Size: 1})
	assert.Error(t, err)
	assert.Empty(t, *calls)
}

// TestGetBoardState_PublicUnsigned 公开 API 不签名，缺失字段按正常处理
func TestGetBoardState_PublicUnsigned(t *testing.T) {
	srv, calls := newTestServer(t, map[string]string{"/v1/getboardstate": `{"health":"BUSY"}`})
	c := newTestClient(srv.URL)

	st, err := c.GetBoardState(context.Background(), "FX_BTC_JPY")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthBusy, st.Health)
	assert.Equal(t, domain.MarketStateRunning, st.State)
	assert.Empty(t, (*calls)[0].header.Get("ACCESS-SIGN"))
}

// TestNon2xx 非 2xx 转换为错误
func TestNon2xx(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	c := newTestClient(srv.URL)
	err := c.CancelOrder(context.Background(), domain.CancelRequest{ProductCode: "FX_BTC_JPY", ChildOrderAcceptanceID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 400")

	_, err = c.GetCollateral(context.Background())
	assert.Error(t, err)
}
