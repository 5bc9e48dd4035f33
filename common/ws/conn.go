package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Inbound frames are control frames or small client chatter.
const maxClientMessage = 4096

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// clientConn is one subscriber connection owned by ServeWS. gorilla allows a
// single concurrent writer, so every write takes writeMu.
type clientConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func upgrade(w http.ResponseWriter, r *http.Request) (*clientConn, error) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(maxClientMessage)
	return &clientConn{ws: c}, nil
}

func (c *clientConn) send(msg *Message, timeout time.Duration) error {
	payload, err := msg.Marshal()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(timeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *clientConn) ping(timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

// sendClose tells the peer why the server is hanging up.
func (c *clientConn) sendClose(code int, reason string, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(timeout))
}

// watch reads until the peer disconnects or stops answering pings. The
// returned channel is closed when reading ends; the error that ended it is
// passed to onExit.
func (c *clientConn) watch(idle time.Duration, onExit func(error)) <-chan struct{} {
	done := make(chan struct{})
	_ = c.ws.SetReadDeadline(time.Now().Add(idle))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(idle))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ws.ReadMessage(); err != nil {
				onExit(err)
				return
			}
		}
	}()
	return done
}

func (c *clientConn) remoteAddr() string {
	if addr := c.ws.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (c *clientConn) close() error {
	return c.ws.Close()
}
