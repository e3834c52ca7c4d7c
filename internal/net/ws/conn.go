package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FrogCounters/boatboat/internal/session"
)

// conn adapts a websocket connection to session.Transport. All writes happen
// on one goroutine draining sendCh, so a slow peer never blocks the caller.
type conn struct {
	ws           *websocket.Conn
	sendCh       chan []byte
	done         chan struct{}
	writeWait    time.Duration
	pingInterval time.Duration
	onWriteError func(error)

	closeOnce   sync.Once
	mu          sync.Mutex
	closeCode   int
	closeReason string
}

func newConn(ws *websocket.Conn, cfg HandlerConfig, onWriteError func(error)) *conn {
	return &conn{
		ws:           ws,
		sendCh:       make(chan []byte, cfg.SendQueue),
		done:         make(chan struct{}),
		writeWait:    cfg.WriteWait,
		pingInterval: cfg.PingInterval,
		onWriteError: onWriteError,
	}
}

// Send enqueues payload without blocking.
func (c *conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return session.ErrSessionClosed
	default:
	}
	select {
	case c.sendCh <- payload:
		return nil
	default:
		return session.ErrSendQueueFull
	}
}

// Close asks the write loop to send a close frame with code and tear down the
// connection. Only the first call takes effect.
func (c *conn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.closeReason = reason
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case <-c.done:
			c.writeClose()
			return
		case data := <-c.sendCh:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				c.fail(err)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.fail(err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

func (c *conn) writeClose() {
	c.mu.Lock()
	code, reason := c.closeCode, c.closeReason
	c.mu.Unlock()
	message := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(c.writeWait))
}

func (c *conn) fail(err error) {
	if c.onWriteError != nil {
		c.onWriteError(err)
	}
}
