package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"policy-qa-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const traceChannel = "trace_events"

// Hub fans pipeline trace events out to the websocket clients watching
// a correlation id. Several clients may watch the same pipeline run.
// Redis pub/sub carries events across instances so a client connected
// to one instance still sees a pipeline running on another.
type Hub struct {
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb *redis.Client

	// instanceId marks this hub's own Redis messages so the
	// subscription loop does not deliver them a second time
	instanceId string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.CorrelationId] = append(h.clients[client.CorrelationId], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "trace client registered", map[string]interface{}{"correlation_id": client.CorrelationId})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.CorrelationId]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.CorrelationId] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.CorrelationId]) == 0 {
					delete(h.clients, client.CorrelationId)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send delivers a trace event to every client watching the correlation
// id, locally and via Redis for other instances.
func (h *Hub) Send(correlationId string, eventType string, payload map[string]interface{}) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": payload,
	})

	h.deliverLocal(correlationId, data)

	if h.rdb != nil {
		envelope, _ := json.Marshal(map[string]interface{}{
			"origin":         h.instanceId,
			"correlation_id": correlationId,
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), traceChannel, envelope)
	}
}

func (h *Hub) deliverLocal(correlationId string, data []byte) {
	h.mu.RLock()
	clients := h.clients[correlationId]
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "client send buffer full, dropping connection", map[string]interface{}{"correlation_id": correlationId})
			h.unregister <- client
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, traceChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.handleTraceEnvelope([]byte(msg.Payload))
	}
}

func (h *Hub) handleTraceEnvelope(payload []byte) {
	var envelope struct {
		Origin        string          `json:"origin"`
		CorrelationId string          `json:"correlation_id"`
		Message       json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		h.logger.Warn("Hub", "unparseable trace envelope from redis", map[string]interface{}{"error": err.Error()})
		return
	}
	// Send already delivered this instance's own events locally
	if envelope.Origin == h.instanceId {
		return
	}
	h.deliverLocal(envelope.CorrelationId, envelope.Message)
}
