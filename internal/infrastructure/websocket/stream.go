// Package websocket 是 bitFlyer Lightning 实时 API（JSON-RPC over WebSocket）的客户端
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/flyerbot/internal/faults"
	"github.com/betbot/flyerbot/internal/metrics"
	"github.com/betbot/flyerbot/internal/ports"
	"github.com/betbot/flyerbot/pkg/sdk/lightning"
	"github.com/betbot/flyerbot/pkg/sigchan"
)

var streamLog = logrus.WithField("component", "lightning_stream")

const (
	defaultPingInterval    = 10 * time.Second
	defaultPongWait        = 30 * time.Second
	defaultPauseBufferSize = 1000
	handshakeTimeout       = 30 * time.Second
	writeTimeout           = 10 * time.Second
	frameQueueSize         = 64
)

// State 连接状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateSubscribed
	StateReceiving
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateReceiving:
		return "RECEIVING"
	case StatePaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// Config 实时 API 连接配置
type Config struct {
	URL             string
	APIKey          string
	APISecret       string
	PublicChannels  []string
	PrivateChannels []string
	PauseBufferSize int
	ProxyURL        string
	Backoff         Backoff
	PingInterval    time.Duration
	PongWait        time.Duration
}

// Stream 单连接的实时 API 客户端
//
// 每次连接依次：订阅公共频道、auth、订阅私有频道，然后进入接收循环。
// 暂停期间照常读取（保持心跳），频道消息进入有界缓冲，满了丢弃最旧的；
// 恢复后先按到达顺序回放缓冲，再处理新的消息。重连是新的会话，旧缓冲丢弃。
type Stream struct {
	cfg        Config
	dispatcher ports.Dispatcher
	dialer     *websocket.Dialer

	state   atomic.Int32
	paused  atomic.Bool
	resumeC *sigchan.Chan

	backlogMu sync.Mutex
	backlog   []frame

	writeMu   sync.Mutex
	requestID atomic.Int64
	authID    atomic.Int64

	now   func() time.Time
	nonce func() string
}

var _ ports.Pausable = (*Stream)(nil)

// NewStream 创建客户端；私有频道需要 API key
func NewStream(cfg Config, dispatcher ports.Dispatcher) (*Stream, error) {
	if dispatcher == nil {
		return nil, faults.Logic("stream.new", "dispatcher is nil")
	}
	if cfg.URL == "" {
		return nil, faults.Logic("stream.new", "websocket url is empty")
	}
	if len(cfg.PrivateChannels) > 0 && (cfg.APIKey == "" || cfg.APISecret == "") {
		return nil, faults.Logic("stream.new", "private channels %v require api credentials", cfg.PrivateChannels)
	}
	if cfg.PauseBufferSize <= 0 {
		cfg.PauseBufferSize = defaultPauseBufferSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.Backoff == (Backoff{}) {
		cfg.Backoff = DefaultBackoff()
	}

	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, faults.Logic("stream.new", "invalid proxy url %q: %v", cfg.ProxyURL, err)
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
		streamLog.Infof("使用代理连接 WebSocket: %s", cfg.ProxyURL)
	}

	return &Stream{
		cfg:        cfg,
		dispatcher: dispatcher,
		dialer:     dialer,
		resumeC:    sigchan.New(),
		now:        time.Now,
		nonce: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}, nil
}

// State 当前连接状态
func (s *Stream) State() State {
	return State(s.state.Load())
}

func (s *Stream) setState(st State) {
	if st == StateReceiving && s.paused.Load() {
		st = StatePaused
	}
	s.state.Store(int32(st))
}

// Pause 暂停分发，之后收到的频道消息进入缓冲
func (s *Stream) Pause() {
	s.paused.Store(true)
	s.state.CompareAndSwap(int32(StateReceiving), int32(StatePaused))
}

// Resume 恢复分发，接收循环会先回放缓冲
func (s *Stream) Resume() {
	s.paused.Store(false)
	s.state.CompareAndSwap(int32(StatePaused), int32(StateReceiving))
	s.resumeC.Emit()
}

func (s *Stream) Paused() bool {
	return s.paused.Load()
}

// Backlog 暂停期间缓存的消息数
func (s *Stream) Backlog() int {
	s.backlogMu.Lock()
	defer s.backlogMu.Unlock()
	return len(s.backlog)
}

// Run 连接并接收直到 ctx 结束；传输错误自动重连，分发返回 LogicFault 时退出
func (s *Stream) Run(ctx context.Context) error {
	streamLog.Infof("🔌 [实时API] 启动: %s", s.cfg.URL)
	defer s.setState(StateDisconnected)

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.setState(StateConnecting)
		established, err := s.connectOnce(ctx)
		s.setState(StateDisconnected)

		if faults.IsLogic(err) {
			streamLog.Errorf("🔌 [实时API] 分发出现逻辑错误，停止: %v", err)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if established {
			attempt = 0
		}
		attempt++
		metrics.StreamReconnects.Add(1)
		wait := s.cfg.Backoff.Next(attempt)
		streamLog.Warnf("🔌 [实时API] 连接中断: %v，%s 后重连（第 %d 次）", err, wait, attempt)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// connectOnce 一次完整的连接生命周期；established 表示订阅已全部发出
func (s *Stream) connectOnce(ctx context.Context) (established bool, err error) {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return false, errors.Wrap(err, "dial")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	pongWait := s.cfg.PongWait
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return false, errors.Wrap(err, "set read deadline")
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := s.subscribe(conn, s.cfg.PublicChannels); err != nil {
		return false, err
	}
	if len(s.cfg.PrivateChannels) > 0 {
		s.setState(StateAuthenticating)
		if err := s.authenticate(conn); err != nil {
			return false, err
		}
		if err := s.subscribe(conn, s.cfg.PrivateChannels); err != nil {
			return false, err
		}
	}
	s.setState(StateSubscribed)
	if n := s.clearBacklog(); n > 0 {
		metrics.FramesDropped.Add(int64(n))
		streamLog.Warnf("🔌 [实时API] 重连后丢弃上一个会话的缓冲消息 %d 条", n)
	}
	streamLog.Infof("🔌 [实时API] 已订阅: public=%v private=%v", s.cfg.PublicChannels, s.cfg.PrivateChannels)

	frames := make(chan frame, frameQueueSize)
	readErr := make(chan error, 1)
	go s.readLoop(ctx, conn, frames, readErr)
	go s.pingLoop(ctx, conn)

	s.setState(StateReceiving)
	return true, s.receive(ctx, frames, readErr)
}

func (s *Stream) receive(ctx context.Context, frames <-chan frame, readErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-s.resumeC.C():
			if err := s.replay(ctx); err != nil {
				return err
			}
		case f := <-frames:
			metrics.FramesReceived.Add(1)
			if s.paused.Load() {
				s.buffer(f)
				continue
			}
			if err := s.replay(ctx); err != nil {
				return err
			}
			if err := s.dispatch(ctx, f); err != nil {
				return err
			}
		}
	}
}

func (s *Stream) write(conn *websocket.Conn, req rpcRequest) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return errors.Wrap(err, "set write deadline")
	}
	return errors.Wrapf(conn.WriteJSON(req), "send %s", req.Method)
}

func (s *Stream) subscribe(conn *websocket.Conn, channels []string) error {
	for _, ch := range channels {
		req := rpcRequest{
			JSONRPC: "2.0",
			ID:      s.requestID.Add(1),
			Method:  methodSubscribe,
			Params:  subscribeParams{Channel: ch},
		}
		if err := s.write(conn, req); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) authenticate(conn *websocket.Conn) error {
	ts := s.now().Unix()
	nonce := s.nonce()
	id := s.requestID.Add(1)
	s.authID.Store(id)
	return s.write(conn, rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  methodAuth,
		Params: authParams{
			APIKey:    s.cfg.APIKey,
			Timestamp: ts,
			Nonce:     nonce,
			Signature: lightning.SignRealtime(s.cfg.APISecret, ts, nonce),
		},
	})
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn, frames chan<- frame, readErr chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- errors.Wrap(err, "read")
			return
		}
		var msg rpcMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			streamLog.Debugf("忽略无法解析的消息: %v", err)
			continue
		}
		if msg.ID != nil {
			s.handleResponse(*msg.ID, msg)
			continue
		}
		f, ok := parseFrame(msg)
		if !ok {
			continue
		}
		select {
		case frames <- f:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Stream) handleResponse(id int64, msg rpcMessage) {
	isAuth := id == s.authID.Load()
	switch {
	case msg.Error != nil && isAuth:
		streamLog.Errorf("🔑 [实时API] 认证失败: %v", msg.Error)
	case msg.Error != nil:
		streamLog.Warnf("🔌 [实时API] 请求 #%d 失败: %v", id, msg.Error)
	case isAuth:
		streamLog.Infof("🔑 [实时API] 认证结果: %s", string(msg.Result))
	default:
		streamLog.Debugf("🔌 [实时API] 请求 #%d 响应: %s", id, string(msg.Result))
	}
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				streamLog.Warnf("发送 PING 失败: %v", err)
				_ = conn.Close()
				return
			}
		}
	}
}

// buffer 暂停期间缓存消息，超出容量丢弃最旧的
func (s *Stream) buffer(f frame) {
	s.backlogMu.Lock()
	defer s.backlogMu.Unlock()
	if len(s.backlog) >= s.cfg.PauseBufferSize {
		drop := len(s.backlog) - s.cfg.PauseBufferSize + 1
		s.backlog = append(s.backlog[:0], s.backlog[drop:]...)
		metrics.FramesDropped.Add(int64(drop))
	}
	s.backlog = append(s.backlog, f)
}

// clearBacklog 清空缓冲，返回丢弃的条数
func (s *Stream) clearBacklog() int {
	s.backlogMu.Lock()
	defer s.backlogMu.Unlock()
	n := len(s.backlog)
	s.backlog = nil
	return n
}

// replay 按到达顺序分发缓冲；中途再次暂停时剩余的留在缓冲里
func (s *Stream) replay(ctx context.Context) error {
	for !s.paused.Load() {
		s.backlogMu.Lock()
		if len(s.backlog) == 0 {
			s.backlogMu.Unlock()
			return nil
		}
		f := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.backlogMu.Unlock()

		if err := s.dispatch(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) dispatch(ctx context.Context, f frame) error {
	err := s.dispatcher.Dispatch(ctx, f.message, f.channel)
	if err == nil {
		return nil
	}
	if faults.IsLogic(err) {
		return err
	}
	streamLog.Warnf("分发 %s 消息失败: %v", f.channel, err)
	return nil
}
