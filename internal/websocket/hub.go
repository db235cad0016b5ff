package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/domain/entities"
	"github.com/siseonlab/voicecoach/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Recognizer runs one processing cycle over audio a client has buffered.
type Recognizer interface {
	ProcessStream(ctx context.Context, sessionID string, pcm []byte, sampleRate int, format entities.AudioFormat) (entities.RecognitionResult, error)
}

// Hub maintains the set of active clients.
type Hub struct {
	// Registered clients, keyed by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	recognizer Recognizer
	metrics    *metrics.Metrics

	// Per-session audio buffer cap.
	maxBufferBytes int

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	recognizer Recognizer,
	m *metrics.Metrics,
	maxBufferBytes int,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:        make(map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		recognizer:     recognizer,
		metrics:        m,
		maxBufferBytes: maxBufferBytes,
		logger:         logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.session.ID] = client
			h.mu.Unlock()
			h.metrics.ActiveSessions.Inc()
			h.logger.Info("Client registered", zap.String("sessionID", client.session.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client.session.ID)
			h.mu.Unlock()
			h.metrics.ActiveSessions.Dec()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.session.ID))
		}
	}
}

// SessionCount returns the number of connected clients.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub. It
// owns one streaming session whose lifetime equals the connection's.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Never closed; a processing
	// goroutine may still try to deliver after the client unregisters, and
	// sendJSON drops instead via the connection context.
	send chan WriteData

	// Streaming session for this connection
	session *entities.StreamSession

	// Canceled on disconnect so in-flight processing stops delivering.
	ctx    context.Context
	cancel context.CancelFunc

	// Logger
	logger *zap.Logger
}

// newClient wires a connection into the hub with a fresh session.
func newClient(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	session := entities.NewStreamSession(hub.maxBufferBytes)
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan WriteData, 256),
		session: session,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With(zap.String("sessionID", session.ID)),
	}
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, logger)
	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			// Control messages: metadata updates and process triggers
			c.processControlMessage(message)
		case websocket.BinaryMessage:
			// Raw audio appended to the session buffer
			c.processAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processControlMessage dispatches a JSON text frame from the client.
func (c *Client) processControlMessage(message []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Error("Failed to parse control message", zap.Error(err))
		return
	}

	switch msg.Command {
	case CommandAudio:
		c.handleAudioMetadata(msg)
	case CommandProcess:
		c.handleProcess()
	default:
		c.logger.Warn("Unknown command", zap.String("command", msg.Command))
	}
}

// handleAudioMetadata applies a metadata update to the session. Repeated
// updates are allowed; the last one wins and buffered audio is kept.
func (c *Client) handleAudioMetadata(msg ControlMessage) {
	c.session.SetMetadata(msg.SampleRate, msg.Format)
	c.logger.Debug("Session metadata updated",
		zap.Int("sampleRate", c.session.SampleRate),
		zap.String("format", string(c.session.Format)))
}

// processAudioChunk appends a binary frame to the session buffer.
func (c *Client) processAudioChunk(data []byte) {
	if err := c.session.AppendAudio(data); err != nil {
		c.hub.metrics.BufferOverflows.Inc()
		c.logger.Warn("Audio buffer full, chunk dropped",
			zap.Int("chunkBytes", len(data)),
			zap.Int("bufferedBytes", c.session.BufferedBytes()))
		c.sendJSON(NewErrorMessage(ErrMsgBufferFull))
		return
	}

	c.logger.Debug("Buffered audio chunk",
		zap.Int("chunkBytes", len(data)),
		zap.Int("bufferedBytes", c.session.BufferedBytes()))
}

// handleProcess runs one processing cycle. The buffer is taken
// synchronously on the read loop so audio arriving afterwards belongs to
// the next cycle; the pipeline itself runs off the loop and more frames
// can stream in meanwhile.
func (c *Client) handleProcess() {
	pcm := c.session.TakeAudio()
	sampleRate := c.session.SampleRate
	format := c.session.Format

	go func() {
		result, err := c.hub.recognizer.ProcessStream(c.ctx, c.session.ID, pcm, sampleRate, format)
		if err != nil {
			c.logger.Warn("Processing cycle failed", zap.Error(err))
			c.sendJSON(ErrorMessageFor(err))
			return
		}
		c.sendJSON(NewResultMessage(result))
	}()
}

// sendJSON queues a JSON text frame for delivery, dropping it if the
// connection is gone.
func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal response", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	case <-c.ctx.Done():
	}
}
