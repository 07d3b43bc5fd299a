// Package ws implements the remote's output sink over a WebSocket: each key
// report is one text frame holding a sink.Message.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/tv-remote/internal/keys"
	"github.com/sweeney/tv-remote/internal/sink"
)

const (
	dialTimeout    = 5 * time.Second
	writeWait      = 500 * time.Millisecond
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// DefaultRetry is the delay between connection attempts.
const DefaultRetry = 5 * time.Second

// Sink sends key reports to a WebSocket endpoint. It dials in the background
// and redials after the connection drops.
type Sink struct {
	url    string
	dialer *websocket.Dialer
	retry  time.Duration
	logger log.FieldLogger
	now    func() time.Time

	mu   sync.Mutex
	conn *websocket.Conn

	done   chan struct{}
	ctx    context.Context // cancelled by Close to abort a dial in progress
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Sink for url. Call Start to begin connecting.
func New(url string, retry time.Duration, logger log.FieldLogger, now func() time.Time) *Sink {
	if retry <= 0 {
		retry = DefaultRetry
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		url:    url,
		retry:  retry,
		logger: logger.WithField("url", url),
		now:    now,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	s.dialer = &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		NetDialContext:   s.netDial,
		HandshakeTimeout: dialTimeout,
	}
	return s
}

// netDial opens the TCP connection for a handshake. The connection is
// closed when Close is called, which aborts a handshake in progress.
func (s *Sink) netDial(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(s.ctx, func() { c.Close() })
	return &closeOnStop{Conn: c, stop: stop}, nil
}

type closeOnStop struct {
	net.Conn
	stop func() bool
}

func (c *closeOnStop) Close() error {
	c.stop()
	return c.Conn.Close()
}

// Start begins the connect loop.
func (s *Sink) Start() {
	s.wg.Add(1)
	go s.loop()
}

func (s *Sink) loop() {
	defer s.wg.Done()
	for {
		s.connect()

		// connect returns once the connection is gone
		select {
		case <-s.done:
			return
		case <-time.After(s.retry):
			s.logger.Debug("websocket reconnecting")
		}
	}
}

func (s *Sink) connect() {
	conn, _, err := s.dialer.DialContext(s.ctx, s.url, nil)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.WithError(err).Warn("websocket connect failed")
		return
	}

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		conn.Close()
		return
	default:
	}
	s.conn = conn
	s.mu.Unlock()
	s.logger.Info("websocket connected")

	stop := make(chan struct{})
	go s.pinger(conn, stop)
	s.readPump(conn)
	close(stop)

	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
	s.logger.Warn("websocket disconnected")
}

// readPump discards inbound frames; it exists to process control frames
// and to notice when the peer goes away.
func (s *Sink) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WithError(err).Debug("websocket read error")
			}
			return
		}
	}
}

func (s *Sink) pinger(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// IsConnected reports whether a connection is open.
func (s *Sink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Write taps code.
func (s *Sink) Write(code keys.Code) error {
	return s.send(sink.OpWrite, code)
}

// Press holds code down.
func (s *Sink) Press(code keys.Code) error {
	return s.send(sink.OpPress, code)
}

// Release lets code go.
func (s *Sink) Release(code keys.Code) error {
	return s.send(sink.OpRelease, code)
}

// ReleaseAll lets every key go.
func (s *Sink) ReleaseAll() error {
	return s.send(sink.OpReleaseAll, 0)
}

func (s *Sink) send(op sink.Op, code keys.Code) error {
	payload, err := sink.FormatMessage(op, code, s.now())
	if err != nil {
		return fmt.Errorf("format message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return sink.ErrNotConnected
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		// the read pump sees the close and the loop redials
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close stops the connect loop and closes the connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return errors.New("already closed")
	default:
	}
	close(s.done)
	s.cancel()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		conn.Close()
	}
	s.wg.Wait()
	return nil
}
