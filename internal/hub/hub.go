package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	// Viewers only send control frames.
	maxMessageSize = 512
)

const (
	msgRegister   = "register"
	msgUnregister = "unregister"
	msgBroadcast  = "broadcast"
)

// HubMessage is the unit of work handled by Run.
type HubMessage struct {
	Type    string
	Client  *Client
	Payload []byte
}

// GridMessage is what viewers receive on every committed change.
type GridMessage struct {
	Type      string        `json:"type"`
	Dimension int           `json:"dimension"`
	Cells     []domain.Cell `json:"cells"`
}

// SnapshotFunc returns the grid a newly registered viewer starts from. It must read
// the same state the broadcasts come from and must not block on I/O: it runs
// inside the hub loop.
type SnapshotFunc func() domain.GridState

// Hub fans committed grid states out to every connected viewer.
type Hub struct {
	messageChan chan HubMessage
	done        chan struct{}
	stopOnce    sync.Once

	clients   map[*Client]bool
	clientsMu sync.RWMutex

	snapshot SnapshotFunc
}

func NewHub(snapshot SnapshotFunc) *Hub {
	if snapshot == nil {
		panic("SnapshotFunc cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		done:        make(chan struct{}),
		clients:     make(map[*Client]bool),
		snapshot:    snapshot,
	}
}

// Run processes hub messages until Stop is called.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case msgRegister:
				h.registerClient(msg.Client)
			case msgUnregister:
				h.unregisterClient(msg.Client)
			case msgBroadcast:
				h.broadcast(msg.Payload)
			default:
				log.Warnf("Hub: Received unknown message type: %s", msg.Type)
			}
		case <-h.done:
			h.closeAll()
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop ends Run and disconnects every viewer. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// GridChanged queues the state for broadcast; it never blocks the caller.
func (h *Hub) GridChanged(state domain.GridState) {
	payload, err := encodeGrid(state)
	if err != nil {
		logrus.WithError(err).Error("Hub: failed to marshal grid state")
		return
	}
	h.QueueMessage(HubMessage{Type: msgBroadcast, Payload: payload})
}

// Register queues a newly connected client.
func (h *Hub) Register(client *Client) bool {
	return h.QueueMessage(HubMessage{Type: msgRegister, Client: client})
}

// ClientCount reports how many viewers are registered.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// registerClient queues the snapshot before the client joins the broadcast set.
// Both happen on the hub loop, so every later broadcast reaches the client after
// its snapshot.
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"client_id": client.ID(), "action": "registerClient"})

	h.sendInitialSnapshot(client, logCtx)

	h.clientsMu.Lock()
	h.clients[client] = true
	h.clientsMu.Unlock()
	logCtx.Info("Client registered to Hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"client_id": client.ID(), "action": "unregisterClient"})

	h.clientsMu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
		logCtx.Info("Client unregistered from Hub")
	} else {
		logCtx.Debug("Client not found during unregister")
	}
	h.clientsMu.Unlock()
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		client.closeSend()
	}
	h.clientsMu.Unlock()
}

func (h *Hub) sendInitialSnapshot(client *Client, logCtx *logrus.Entry) {
	state := h.snapshot()
	payload, err := encodeGrid(state)
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal snapshot message")
		return
	}
	if client.trySend(payload) {
		logCtx.WithField("cells", len(state.Cells)).Debug("Snapshot sent to client")
	} else {
		logCtx.Warn("Client send channel full or closed, snapshot dropped")
	}
}

func (h *Hub) broadcast(message []byte) {
	h.clientsMu.RLock()
	recipients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		recipients = append(recipients, client)
	}
	h.clientsMu.RUnlock()

	if len(recipients) == 0 {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"message_size": len(message), "recipient_count": len(recipients)})
	logCtx.Debug("Broadcasting grid to clients")

	for _, client := range recipients {
		if !client.trySend(message) {
			logCtx.WithField("client_id", client.ID()).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

func encodeGrid(state domain.GridState) ([]byte, error) {
	cells := state.Cells
	if cells == nil {
		cells = []domain.Cell{}
	}
	return json.Marshal(GridMessage{Type: "grid", Dimension: state.Dimension, Cells: cells})
}
