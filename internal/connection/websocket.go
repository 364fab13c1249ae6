package connection

import (
	"errors"
	"io"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// wsStream presents a WebSocket as a byte stream. Each Write becomes one
// binary message; Read concatenates incoming messages.
type wsStream struct {
	conn *ws.Conn
	r    io.Reader
	wmu  sync.Mutex
	once sync.Once
}

// NewWebSocketStream adapts conn for New.
func NewWebSocketStream(conn *ws.Conn) io.ReadWriteCloser {
	return &wsStream{conn: conn}
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.r == nil {
			_, r, err := s.conn.NextReader()
			if err != nil {
				if ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			s.r = r
		}
		n, err := s.r.Read(p)
		if errors.Is(err, io.EOF) {
			s.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return 0, err
	}
	if err := s.conn.WriteMessage(ws.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a close frame once and closes the socket.
func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		_ = s.conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
