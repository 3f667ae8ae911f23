package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"empty-jar/internal/domain"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager tracks live connections per user and fans note changes out to
// every device of that user.
type Manager struct {
	clients        map[string]*Client
	userIndex      map[string]map[string]bool
	clientsMutex   sync.RWMutex
	register       chan *Client
	unregister     chan *Client
	handleMessage  chan *ClientMessage
	// done is closed when Run returns. Sends to the channels above give up
	// once it is closed.
	done           chan struct{}
	stopOnce       sync.Once
	maxConnPerUser int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	logger         *slog.Logger
}

type Options struct {
	MaxConnPerUser int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

func NewManager(opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		clients:        make(map[string]*Client),
		userIndex:      make(map[string]map[string]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		handleMessage:  make(chan *ClientMessage),
		done:           make(chan struct{}),
		maxConnPerUser: opts.MaxConnPerUser,
		maxMessageSize: opts.MaxMessageSize,
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
		logger:         logger,
	}
}

// Run serves the register, unregister and message channels until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.stopOnce.Do(func() { close(m.done) })
			m.closeAll()
			return

		case client := <-m.register:
			m.registerClient(client)

		case client := <-m.unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.handleMessage:
			m.processMessage(clientMsg)
		}
	}
}

// Done is closed when Run shuts down.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Register hands client to the run loop. It reports false when the manager
// has shut down, in which case the caller owns the connection.
func (m *Manager) Register(client *Client) bool {
	select {
	case m.register <- client:
		return true
	case <-m.done:
		return false
	}
}

// Unregister removes client. After shutdown it returns at once, since every
// client was already closed.
func (m *Manager) Unregister(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) HandleMessage(clientMsg *ClientMessage) {
	select {
	case m.handleMessage <- clientMsg:
	case <-m.done:
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}

	if m.maxConnPerUser > 0 && len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		m.logger.Warn("max connections reached", "user", client.UserID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	m.logger.Info("client registered", "client", client.ID, "user", client.UserID, "device", client.DeviceID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.userIndex[client.UserID], client.ID)

		if len(m.userIndex[client.UserID]) == 0 {
			delete(m.userIndex, client.UserID)
		}

		close(client.Send)
		m.logger.Info("client unregistered", "client", client.ID)
	}
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for id, client := range m.clients {
		close(client.Send)
		delete(m.clients, id)
	}
	m.userIndex = make(map[string]map[string]bool)
}

// processMessage answers pings. Clients never write notes over the socket.
func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.logger.Warn("invalid websocket message", "client", clientMsg.Client.ID, "error", err)
		return
	}

	switch msg.Type {
	case TypePing:
		pong, _ := NewMessage(TypePong, nil)
		m.SendToClient(clientMsg.Client.ID, pong)
	default:
		m.logger.Debug("ignoring websocket message", "type", msg.Type)
	}
}

func (m *Manager) BroadcastToUser(userID string, message *Message, excludeDeviceID string) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var stale []*Client
	m.clientsMutex.RLock()
	for clientID := range m.userIndex[userID] {
		client := m.clients[clientID]
		if excludeDeviceID != "" && client.DeviceID == excludeDeviceID {
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			m.logger.Warn("client send buffer full, closing connection", "client", clientID)
			stale = append(stale, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range stale {
		go m.Unregister(client)
	}
	return nil
}

// PublishNoteEvent broadcasts a note change for userID to every device except
// the one that made it.
func (m *Manager) PublishNoteEvent(userID, deviceID string, msgType MessageType, weekKey string, note *domain.Note) error {
	msg, err := NewMessage(msgType, NoteEventPayload{WeekKey: weekKey, Note: note, DeviceID: deviceID})
	if err != nil {
		return err
	}
	return m.BroadcastToUser(userID, msg, deviceID)
}

func (m *Manager) PublishSettingsEvent(userID, deviceID string, settings *domain.Settings) error {
	msg, err := NewMessage(TypeSettingsUpdated, SettingsEventPayload{Settings: settings, DeviceID: deviceID})
	if err != nil {
		return err
	}
	return m.BroadcastToUser(userID, msg, deviceID)
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.logger.Warn("client send buffer full", "client", clientID)
	}

	return nil
}

func (m *Manager) GetUserConnections(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if clients, exists := m.userIndex[userID]; exists {
		return len(clients)
	}
	return 0
}
