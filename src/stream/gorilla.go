package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"dashboard-sync/src/interfaces"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 1024 * 1024 // 1MB, portfolio updates carry full market data
)

// -----------------------------------------------------------------------------
// WebsocketDialer opens gorilla websocket connections.
// -----------------------------------------------------------------------------

type WebsocketDialer struct {
	dialer    *websocket.Dialer
	userAgent string
}

// -----------------------------------------------------------------------------

func NewWebsocketDialer(handshakeTimeout time.Duration, userAgent string, insecureSkipVerify bool) *WebsocketDialer {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	if insecureSkipVerify {
		d.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &WebsocketDialer{dialer: d, userAgent: userAgent}
}

// -----------------------------------------------------------------------------

func (w *WebsocketDialer) Dial(ctx context.Context, url string) (interfaces.IStreamConnection, error) {
	header := http.Header{}
	if w.userAgent != "" {
		header.Set("User-Agent", w.userAgent)
	}
	conn, resp, err := w.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(maxMessageSize)
	return &websocketConn{conn: conn}, nil
}

// -----------------------------------------------------------------------------
// websocketConn adapts *websocket.Conn to IStreamConnection.
// -----------------------------------------------------------------------------

type websocketConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// ReadMessage skips binary frames; the stream only carries JSON text.
func (c *websocketConn) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage {
			return data, nil
		}
	}
}

func (c *websocketConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *websocketConn) Close() error {
	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}
