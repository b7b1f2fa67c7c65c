package signal

import (
	"sync"
	"time"

	"castlink/internal/core/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client wraps one live WebSocket connection. The room binding (roomID, role)
// is touched only from the connection's own read goroutine, so it needs no
// lock; everything the write pump sees goes through the send channel.
type Client struct {
	ID  domain.ClientID
	uid string // correlation id attached to this connection's log lines

	conn   *websocket.Conn
	send   chan interface{}
	logger *zap.SugaredLogger

	roomID domain.RoomID // empty while unbound
	role   domain.Role

	writeTimeout time.Duration
	pongTimeout  time.Duration

	closeOnce sync.Once
}

func newClient(id domain.ClientID, uid string, conn *websocket.Conn, bufSize int, writeTimeout, pongTimeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		ID:           id,
		uid:          uid,
		conn:         conn,
		send:         make(chan interface{}, bufSize),
		logger:       logger.With("client_id", id, "conn_uid", uid),
		writeTimeout: writeTimeout,
		pongTimeout:  pongTimeout,
	}
}

// enqueue hands a frame to the write pump. Writes are best-effort: a full
// buffer or a closed connection drops the frame.
func (c *Client) enqueue(frame interface{}) {
	defer func() {
		// Racing against closeSend; a send on the closed channel is a drop.
		recover()
	}()
	select {
	case c.send <- frame:
	default:
		c.logger.Warnw("send buffer full, dropping frame")
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// writePump serializes all outbound writes for this connection. It also owns
// the transport-level keep-alive pings; the application-level ping/pong
// exchange is handled by the dispatcher.
func (c *Client) writePump() {
	pingPeriod := c.pongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Debugw("write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
