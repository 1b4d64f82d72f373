package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"drone-missions/internal/application"
	"drone-missions/internal/domain"
)

const writeWait = 5 * time.Second

// Типи повідомлень
const (
	MessageSnapshot     = "snapshot"
	MessageMissionEvent = "mission_event"
	MessageState        = "state"
	MessageError        = "error"
	MessageHeartbeat    = "heartbeat"
	MessageHeartbeatAck = "heartbeat_ack"
)

// Message - конверт усіх повідомлень сервера
type Message struct {
	Type     string                  `json:"type"`
	Missions []domain.Mission        `json:"missions,omitempty"`
	Event    *domain.MissionEvent    `json:"event,omitempty"`
	State    *domain.SimulationState `json:"state,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Time     int64                   `json:"time,omitempty"`
}

// Handler обробляє WebSocket з'єднання спостерігачів місій та симуляцій
type Handler struct {
	store         *application.MissionStore
	sims          *application.SimulationService
	upgrader      websocket.Upgrader
	connections   map[uuid.UUID]*client
	connectionsMu sync.Mutex
	log           zerolog.Logger
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) close(code int, reason string) {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = c.conn.Close()
}

// NewHandler створює новий Handler. allowedOrigins з "*" дозволяє будь-яке походження.
func NewHandler(
	store *application.MissionStore,
	sims *application.SimulationService,
	allowedOrigins []string,
	log zerolog.Logger,
) *Handler {
	h := &Handler{
		store:       store,
		sims:        sims,
		connections: make(map[uuid.UUID]*client),
		log:         log.With().Str("component", "ws").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// RegisterRoutes реєструє маршрути для Handler
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ws", func(r chi.Router) {
		r.Get("/missions", h.HandleMissions)
		r.Get("/simulations/{id}", h.HandleSimulation)
	})
}

// HandleMissions надсилає знімок колекції місій, а далі кожну її зміну.
// Якщо клієнт не встигає за подіями, він отримує новий знімок.
func (h *Handler) HandleMissions(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Error upgrading connection")
		return
	}

	connID, c := h.register(conn)
	events, cancel := h.store.Subscribe(64)

	if err := c.send(Message{Type: MessageSnapshot, Missions: h.store.List()}); err != nil {
		cancel()
		h.unregister(connID)
		return
	}

	go func() {
		for ev := range events {
			ev := ev
			msg := Message{Type: MessageMissionEvent, Event: &ev}
			if ev.Type == domain.MissionEventResync {
				// клієнт відстав: замість пропущених подій - свіжий знімок
				msg = Message{Type: MessageSnapshot, Missions: h.store.List()}
			}
			if err := c.send(msg); err != nil {
				h.log.Debug().Err(err).Str("conn_id", connID.String()).Msg("Error sending mission event")
				_ = c.conn.Close()
				return
			}
		}
		c.close(websocket.CloseNormalClosure, "store closed")
	}()

	go h.readLoop(connID, c, cancel, nil)
}

// HandleSimulation транслює стан симуляції та приймає команди
// {"type":"start|pause|resume|stop"}
func (h *Handler) HandleSimulation(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}
	session, err := h.sims.Get(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Error upgrading connection")
		return
	}

	connID, c := h.register(conn)
	states, cancel := session.Engine.Subscribe(16)

	initial := session.Engine.State()
	if err := c.send(Message{Type: MessageState, State: &initial}); err != nil {
		cancel()
		h.unregister(connID)
		return
	}

	go func() {
		for st := range states {
			st := st
			if err := c.send(Message{Type: MessageState, State: &st}); err != nil {
				h.log.Debug().Err(err).Str("conn_id", connID.String()).Msg("Error sending simulation state")
				_ = c.conn.Close()
				return
			}
		}
		c.close(websocket.CloseNormalClosure, "simulation closed")
	}()

	go h.readLoop(connID, c, cancel, func(msgType string) error {
		return session.Engine.Apply(domain.ControlAction(msgType))
	})
}

// Close закриває всі відкриті з'єднання
func (h *Handler) Close() {
	h.connectionsMu.Lock()
	clients := make([]*client, 0, len(h.connections))
	for _, c := range h.connections {
		clients = append(clients, c)
	}
	h.connectionsMu.Unlock()

	for _, c := range clients {
		c.close(websocket.CloseGoingAway, "server shutdown")
	}
}

// Len повертає кількість відкритих з'єднань
func (h *Handler) Len() int {
	h.connectionsMu.Lock()
	defer h.connectionsMu.Unlock()
	return len(h.connections)
}

// readLoop читає повідомлення клієнта до закриття з'єднання
func (h *Handler) readLoop(connID uuid.UUID, c *client, cancel func(), control func(msgType string) error) {
	defer func() {
		cancel()
		h.unregister(connID)
	}()

	for {
		messageType, p, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("conn_id", connID.String()).Msg("WebSocket error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.handleTextMessage(c, p, control)
	}
}

// handleTextMessage обробляє текстові повідомлення у форматі JSON
func (h *Handler) handleTextMessage(c *client, data []byte, control func(msgType string) error) {
	var message struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &message); err != nil || message.Type == "" {
		_ = c.send(Message{Type: MessageError, Error: "message must be a JSON object with a type"})
		return
	}

	if message.Type == MessageHeartbeat {
		_ = c.send(Message{Type: MessageHeartbeatAck, Time: time.Now().Unix()})
		return
	}
	if control == nil {
		_ = c.send(Message{Type: MessageError, Error: "unknown message type: " + message.Type})
		return
	}
	if err := control(message.Type); err != nil {
		_ = c.send(Message{Type: MessageError, Error: err.Error()})
	}
}

func (h *Handler) register(conn *websocket.Conn) (uuid.UUID, *client) {
	id := uuid.New()
	c := &client{conn: conn}

	h.connectionsMu.Lock()
	h.connections[id] = c
	h.connectionsMu.Unlock()
	return id, c
}

func (h *Handler) unregister(id uuid.UUID) {
	h.connectionsMu.Lock()
	c, ok := h.connections[id]
	delete(h.connections, id)
	h.connectionsMu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
