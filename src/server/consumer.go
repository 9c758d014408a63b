package server

import (
	"time"

	"dashboard-sync/src/models"

	"github.com/gorilla/websocket"
)

const (
	relayWriteWait   = 2 * time.Second
	relayIdleTimeout = 60 * time.Second
	relayPingEvery   = relayIdleTimeout * 9 / 10
	consumerBacklog  = 64
	// consumers only send {"type":"ping"} and {"type":"snapshot"}
	maxCommandSize = 4 * 1024
)

// -----------------------------------------------------------------------------
// Consumer
// -----------------------------------------------------------------------------

// consumer is one dashboard websocket. frames, lastVersion and evicted belong
// to the hub goroutine; listen and stream only move bytes.
type consumer struct {
	relay *RelayServer
	conn  *websocket.Conn

	frames      chan *models.MRelayMessage
	lastVersion uint64
	evicted     bool // set before frames is closed
}

func newConsumer(relay *RelayServer, conn *websocket.Conn) *consumer {
	return &consumer{relay: relay, conn: conn, frames: make(chan *models.MRelayMessage, consumerBacklog)}
}

// consumerCommand is a consumer frame routed to the hub goroutine.
type consumerCommand struct {
	from *consumer
	kind string
}

// -----------------------------------------------------------------------------

// listen hands commands to the hub until the socket fails or stays silent
// past the idle timeout, then leaves the hub.
func (c *consumer) listen() {
	defer func() {
		select {
		case c.relay.unregister <- c:
		case <-c.relay.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxCommandSize)
	c.conn.SetReadDeadline(time.Now().Add(relayIdleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(relayIdleTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.relay.Logger.Debug("Relay consumer gone: %v", err)
			}
			return
		}
		c.relay.queueCommand(c, raw)
	}
}

// -----------------------------------------------------------------------------

// stream writes hub frames in version order. Once the hub closes frames the
// dashboard gets a close code telling it whether the relay went away or it
// fell behind.
func (c *consumer) stream() {
	keepalive := time.NewTicker(relayPingEvery)
	defer keepalive.Stop()
	defer c.conn.Close()

	for {
		select {
		case frame, ok := <-c.frames:
			if !ok {
				c.sendClose()
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.relay.Logger.Debug("Relay frame %s dropped: %v", frame.Type, err)
				return
			}
		case <-keepalive.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(relayWriteWait)); err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (c *consumer) sendClose() {
	code, reason := websocket.CloseGoingAway, "relay stopped"
	if c.evicted {
		code, reason = websocket.CloseTryAgainLater, "consumer too slow"
	}
	c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(relayWriteWait))
}
