package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/shaiso/Tripleo/internal/domain"
)

// Default configuration values.
const (
	defaultSubscriptionTTL  = time.Hour
	defaultHandshakeTimeout = 10 * time.Second
	defaultMaxReconnects    = 5
	defaultReconnectBase    = time.Second
	payloadBuffer           = 64
)

// WebSocketConfig — конфигурация WebSocketSubscriber.
type WebSocketConfig struct {
	// URL — адрес websocket endpoint сервиса сообщений (ws:// или wss://).
	URL string

	// Token — токен аутентификации. Пустой — без аутентификации.
	Token string

	// ProjectID — проект, в котором создаются очереди.
	ProjectID string

	// TTL — время жизни подписки (default: 1h).
	TTL time.Duration

	// MaxReconnects — попыток переподключения при обрыве (default: 5).
	MaxReconnects uint64

	// ReconnectBase — начальная задержка переподключения (default: 1s).
	ReconnectBase time.Duration

	// Logger
	Logger *slog.Logger
}

// WebSocketSubscriber подписывается на очереди через websocket.
//
// Протокол: после соединения клиент отправляет запросы
// authenticate (если есть токен), queue_create и subscription_create.
// Каждый запрос подтверждается ответом со статусом. Затем сервер
// присылает сообщения очереди в том же соединении.
type WebSocketSubscriber struct {
	cfg      WebSocketConfig
	clientID string
	dialer   *websocket.Dialer
	logger   *slog.Logger
}

// NewWebSocketSubscriber создаёт WebSocketSubscriber.
func NewWebSocketSubscriber(cfg WebSocketConfig) *WebSocketSubscriber {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSubscriptionTTL
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = defaultMaxReconnects
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = defaultReconnectBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WebSocketSubscriber{
		cfg:      cfg,
		clientID: uuid.New().String(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		logger: logger,
	}
}

// wsRequest — запрос клиента.
type wsRequest struct {
	Action  string            `json:"action"`
	Headers map[string]string `json:"headers"`
	Body    map[string]any    `json:"body,omitempty"`
}

// wsResponse — ответ сервера на запрос.
type wsResponse struct {
	Request struct {
		Action string `json:"action"`
	} `json:"request"`
	Response struct {
		Status int `json:"status"`
		Body   any `json:"body"`
	} `json:"response"`
}

// Subscribe открывает соединение и подписывается на очередь.
func (s *WebSocketSubscriber) Subscribe(ctx context.Context, queueName string) (Subscription, error) {
	conn, err := s.connect(ctx, queueName)
	if err != nil {
		return nil, err
	}

	sub := &wsSubscription{
		subscriber: s,
		queueName:  queueName,
		conn:       conn,
		logger:     s.logger.With("queue_name", queueName),
		payloads:   make(chan domain.Payload, payloadBuffer),
		errs:       make(chan error, 1),
		done:       make(chan struct{}),
	}

	go sub.readLoop()

	return sub, nil
}

// connect устанавливает соединение и выполняет подписку.
func (s *WebSocketSubscriber) connect(ctx context.Context, queueName string) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket %s: %w", s.cfg.URL, err)
	}

	if err := s.handshake(conn, queueName); err != nil {
		conn.Close()
		return nil, err
	}

	s.logger.Debug("websocket subscription created", "queue_name", queueName)
	return conn, nil
}

// handshake отправляет запросы авторизации и подписки.
func (s *WebSocketSubscriber) handshake(conn *websocket.Conn, queueName string) error {
	conn.SetReadDeadline(time.Now().Add(defaultHandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var requests []wsRequest
	if s.cfg.Token != "" {
		requests = append(requests, wsRequest{Action: "authenticate"})
	}
	requests = append(requests,
		wsRequest{
			Action: "queue_create",
			Body:   map[string]any{"queue_name": queueName},
		},
		wsRequest{
			Action: "subscription_create",
			Body: map[string]any{
				"queue_name": queueName,
				"ttl":        int(s.cfg.TTL.Seconds()),
			},
		},
	)

	for _, req := range requests {
		req.Headers = s.headers()
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("send %s: %w", req.Action, err)
		}
		if err := s.awaitResponse(conn, req.Action); err != nil {
			return err
		}
	}

	return nil
}

// awaitResponse ждёт ответ на запрос action.
func (s *WebSocketSubscriber) awaitResponse(conn *websocket.Conn, action string) error {
	for {
		var resp wsResponse
		if err := conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("read %s response: %w", action, err)
		}

		if resp.Request.Action != action {
			s.logger.Debug("skipping unrelated frame during handshake",
				"expected", action,
				"got", resp.Request.Action,
			)
			continue
		}

		if resp.Response.Status >= 400 {
			return fmt.Errorf("%w: %s returned status %d: %v",
				ErrSubscribe, action, resp.Response.Status, resp.Response.Body)
		}
		return nil
	}
}

func (s *WebSocketSubscriber) headers() map[string]string {
	h := map[string]string{"Client-ID": s.clientID}
	if s.cfg.ProjectID != "" {
		h["X-Project-ID"] = s.cfg.ProjectID
	}
	if s.cfg.Token != "" {
		h["X-Auth-Token"] = s.cfg.Token
	}
	return h
}

// wsSubscription — открытая websocket-подписка.
type wsSubscription struct {
	subscriber *WebSocketSubscriber
	queueName  string
	logger     *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	payloads chan domain.Payload
	errs     chan error
	done     chan struct{}
	once     sync.Once
}

// Receive реализует Subscription.
func (s *wsSubscription) Receive(ctx context.Context, timeout time.Duration) (domain.Payload, error) {
	return Receive(ctx, timeout, s.payloads, s.errs)
}

// Close реализует Subscription.
func (s *wsSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *wsSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *wsSubscription) currentConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// readLoop читает кадры и передаёт payload в канал.
func (s *wsSubscription) readLoop() {
	for {
		_, data, err := s.currentConn().ReadMessage()
		if err != nil {
			if s.isClosed() {
				return
			}

			s.logger.Warn("websocket read failed, reconnecting", "error", err)
			if err := s.reconnect(); err != nil {
				s.fail(fmt.Errorf("%w: websocket: %w", ErrConnectionLost, err))
				return
			}
			continue
		}

		payload, ok, err := DecodeEnvelope(data)
		if err != nil {
			s.logger.Warn("failed to decode message", "error", err, "body", string(data))
			continue
		}
		if !ok {
			s.logger.Debug("skipping frame without payload", "body", string(data))
			continue
		}

		select {
		case s.payloads <- payload:
		case <-s.done:
			return
		}
	}
}

// reconnect переподключается и заново создаёт подписку.
func (s *wsSubscription) reconnect() error {
	cfg := s.subscriber.cfg
	backoff := retry.WithMaxRetries(cfg.MaxReconnects, retry.NewExponential(cfg.ReconnectBase))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := s.subscriber.connect(ctx, s.queueName)
		if err != nil {
			s.logger.Warn("reconnect failed", "error", err)
			return retry.RetryableError(err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			conn.Close()
			return errors.New("subscription closed during reconnect")
		}
		s.conn.Close()
		s.conn = conn

		s.logger.Info("websocket reconnected")
		return nil
	})
}

func (s *wsSubscription) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
