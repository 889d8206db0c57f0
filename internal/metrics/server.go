package metrics

import (
	"context"
	"errors"
	"expvar"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/sirupsen/logrus"
)

var metricsLog = logrus.WithField("component", "metrics")

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// StartAsync 非阻塞启动 expvar(/debug/vars) 与 pprof(/debug/pprof)，ctx 结束时关闭
// 只应监听 localhost 或内网
func StartAsync(ctx context.Context, listenAddr string) (*http.Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}
	s := &http.Server{
		Addr:              listenAddr,
		Handler:           newMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		metricsLog.Infof("📊 metrics/pprof 监听 %s", ln.Addr())
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsLog.Errorf("metrics 服务异常退出: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	return s, nil
}
