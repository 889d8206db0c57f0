package lightning

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// 与 ACCESS-TIMESTAMP 相同格式的时间戳
const timestampLayout = "2006-01-02 15:04:05.000000"

// Sign 计算 ACCESS-SIGN：HMAC-SHA256(secret, timestamp + METHOD + path + body) 的十六进制
func Sign(secret, timestamp, method, pathWithQuery string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(method))
	mac.Write([]byte(pathWithQuery))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// signHeaders 生成一次请求的认证头
func signHeaders(key, secret string, now time.Time, method, pathWithQuery string, body []byte) map[string]string {
	ts := now.Format(timestampLayout)
	return map[string]string{
		"ACCESS-KEY":       key,
		"ACCESS-TIMESTAMP": ts,
		"ACCESS-SIGN":      Sign(secret, ts, method, pathWithQuery, body),
	}
}

// SignRealtime 计算实时 API auth 的签名：HMAC-SHA256(secret, unix 秒 + nonce)
func SignRealtime(secret string, timestamp int64, nonce string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}
