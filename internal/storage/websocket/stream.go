package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	outboxSize   = 4096
	ackQueueSize = 16
	maxRedials   = 10
	minBackoff   = 500 * time.Millisecond
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

var (
	ErrAckTimeout   = errors.New("timed out waiting for ack")
	ErrStreamClosed = errors.New("stream closed")
)

func nextBackoff(d time.Duration) time.Duration {
	return min(2*d, maxBackoff)
}

// stream owns one results-server socket at a time. A single goroutine runs
// it: writes come from the outbox, acks are routed to waiters, and a failed
// socket is redialled with backoff. The session start message, when set, is
// written first on every new socket.
type stream struct {
	url    string
	log    *slog.Logger
	outbox chan []byte
	acks   chan AckMessage
	done   chan struct{}
	once   sync.Once

	backoff time.Duration
	dropped atomic.Int64

	mu    sync.Mutex
	conn  *ws.Conn
	start []byte
}

func newStream(log *slog.Logger) *stream {
	if log == nil {
		log = slog.Default()
	}
	return &stream{
		log:     log,
		outbox:  make(chan []byte, outboxSize),
		acks:    make(chan AckMessage, ackQueueSize),
		done:    make(chan struct{}),
		backoff: minBackoff,
	}
}

// open dials once and starts the stream goroutine. rawURL gets the secret
// as a query parameter.
func (s *stream) open(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	s.url = u.String()

	conn, err := s.dial()
	if err != nil {
		return err
	}
	go s.run(conn)
	return nil
}

func (s *stream) dial() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

func (s *stream) closing() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *stream) run(conn *ws.Conn) {
	for conn != nil {
		err := s.serve(conn)
		if s.closing() {
			return
		}
		s.log.Warn("Results stream lost", "error", err)
		conn = s.redial()
	}
}

// serve pumps the outbox into conn until conn fails or the stream closes.
func (s *stream) serve(conn *ws.Conn) error {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	if s.closing() {
		return conn.Close()
	}

	readErr := make(chan error, 1)
	go func() { readErr <- s.readAcks(conn) }()

	for {
		select {
		case <-s.done:
			return nil
		case err := <-readErr:
			_ = conn.Close()
			return err
		case data := <-s.outbox:
			if err := writeText(conn, data); err != nil {
				_ = conn.Close()
				<-readErr
				return err
			}
		}
	}
}

func writeText(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (s *stream) readAcks(conn *ws.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ack AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != "ack" {
			s.log.Debug("Ignoring results server message", "raw", string(msg))
			continue
		}
		select {
		case s.acks <- ack:
		default:
			s.log.Debug("Ack queue full, dropping", "for", ack.For)
		}
	}
}

// redial returns a fresh socket with the start message already written, or
// nil when the stream closed or every attempt failed.
func (s *stream) redial() *ws.Conn {
	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()

	wait := s.backoff
	for attempt := 1; attempt <= maxRedials; attempt++ {
		select {
		case <-s.done:
			return nil
		case <-time.After(wait):
		}
		wait = nextBackoff(wait)

		conn, err := s.dial()
		if err != nil {
			s.log.Warn("Results stream redial failed", "attempt", attempt, "error", err)
			continue
		}
		s.mu.Lock()
		start := s.start
		s.mu.Unlock()
		if start != nil {
			if err := writeText(conn, start); err != nil {
				s.log.Warn("Replaying session start failed", "attempt", attempt, "error", err)
				_ = conn.Close()
				continue
			}
		}
		s.log.Info("Results stream reconnected", "attempt", attempt)
		return conn
	}
	s.log.Error("Results stream gave up", "attempts", maxRedials)
	return nil
}

// setStart remembers the message replayed after a redial. nil clears it.
func (s *stream) setStart(data []byte) {
	s.mu.Lock()
	s.start = data
	s.mu.Unlock()
}

// send queues data without blocking. When the outbox is full data is
// dropped and counted.
func (s *stream) send(data []byte) {
	select {
	case s.outbox <- data:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			s.log.Warn("Results stream outbox full, dropping message", "dropped", n)
		}
	}
}

// request sends data and waits for the ack naming ackFor. Acks for other
// messages are discarded.
func (s *stream) request(data []byte, ackFor string, timeout time.Duration) error {
	s.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-s.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("%w: %s", ErrAckTimeout, ackFor)
		case <-s.done:
			return fmt.Errorf("%w: waiting for %s ack", ErrStreamClosed, ackFor)
		}
	}
}

// close sends a close frame and stops the stream. Safe to call twice.
func (s *stream) close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()
		if conn == nil {
			return
		}
		_ = conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
		err = conn.Close()
	})
	return err
}
