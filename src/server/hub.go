package server

import (
	"net/http"
	"time"

	"dashboard-sync/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *RelayServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			for c := range s.clients {
				s.drop(c, false)
			}
			return

		case c := <-s.register:
			s.clients[c] = struct{}{}
			s.setClientCount(len(s.clients))
			// Send initial state on connect
			snap := s.source.Snapshot()
			c.lastVersion = snap.Version
			c.frames <- newRelayMessage(models.RelayInitial, &snap)

		case c := <-s.unregister:
			if _, ok := s.clients[c]; ok {
				s.drop(c, false)
			}

		case cmd := <-s.commands:
			s.answer(cmd)

		case snap := <-s.broadcast:
			msg := newRelayMessage(models.RelayUpdate, snap)
			for c := range s.clients {
				// already covered by the INITIAL frame or a newer update
				if snap.Version <= c.lastVersion {
					continue
				}
				select {
				case c.frames <- msg:
					c.lastVersion = snap.Version
				default:
					s.Logger.Warning("Evicting relay consumer stuck at v%d", c.lastVersion)
					s.drop(c, true)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *RelayServer) drop(c *consumer, evicted bool) {
	delete(s.clients, c)
	c.evicted = evicted
	close(c.frames)
	s.setClientCount(len(s.clients))
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues snapshot for every consumer. It runs on the store's writer
// goroutine, so it never blocks: a full queue drops the frame, and the next
// one carries the complete state anyway.
func (s *RelayServer) Broadcast(snapshot models.MStoreSnapshot) {
	select {
	case <-s.quit:
		return
	default:
	}
	select {
	case s.broadcast <- &snapshot:
	default:
		s.Logger.Warning("Relay queue full, dropping update v%d", snapshot.Version)
	}
}

// -----------------------------------------------------------------------------
// Helper Methods
// -----------------------------------------------------------------------------

func newRelayMessage(kind string, snap *models.MStoreSnapshot) *models.MRelayMessage {
	return &models.MRelayMessage{Type: kind, State: snap, Timestamp: time.Now().UnixMilli()}
}

func (s *RelayServer) setClientCount(n int) {
	s.stateMutex.Lock()
	s.clientCount = n
	s.stateMutex.Unlock()
}

// Connections returns the number of registered websocket consumers.
func (s *RelayServer) Connections() int {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.clientCount
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *RelayServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	dashboard := newConsumer(s, conn)

	select {
	case s.register <- dashboard:
	case <-s.quit:
		conn.Close()
		return
	}

	go dashboard.stream()
	go dashboard.listen()
}

// -----------------------------------------------------------------------------
// Consumer Commands
// -----------------------------------------------------------------------------

// queueCommand hands a consumer command to the hub, which owns every
// consumer's frames.
func (s *RelayServer) queueCommand(c *consumer, message []byte) {
	select {
	case s.commands <- consumerCommand{from: c, kind: gjson.GetBytes(message, "type").String()}:
	case <-s.quit:
	}
}

// -----------------------------------------------------------------------------

// answer handles {"type":"ping"} and {"type":"snapshot"}; anything else is ignored.
func (s *RelayServer) answer(cmd consumerCommand) {
	if _, ok := s.clients[cmd.from]; !ok {
		return
	}

	var response *models.MRelayMessage
	switch cmd.kind {
	case "ping":
		response = newRelayMessage(models.RelayPong, nil)
	case "snapshot":
		snap := s.source.Snapshot()
		response = newRelayMessage(models.RelayInitial, &snap)
		cmd.from.lastVersion = snap.Version
	default:
		s.Logger.Debug("Ignoring relay command %q", cmd.kind)
		return
	}

	select {
	case cmd.from.frames <- response:
	default:
	}
}
