package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dreschagin/bench-history/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал ping сообщений (должен быть меньше pongWait)
	pingPeriod = 54 * time.Second

	// Входящие сообщения - только pong и subscribe, им хватает 1KB
	maxInboundMessageSize = 1024
)

// inboundMessage - сообщение от дашборда. Поддерживается только подписка
// на подмножество наборов: {"type":"subscribe","suites":["..."]}
type inboundMessage struct {
	Type   string   `json:"type"`
	Suites []string `json:"suites"`
}

// Client представляет подключенный дашборд.
// Пустой фильтр означает подписку на все наборы.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan Message

	mu     sync.RWMutex
	suites map[string]struct{}

	logger *logger.Logger
}

// NewClient создает нового WebSocket клиента
func NewClient(hub *Hub, conn *websocket.Conn, logger *logger.Logger) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, 256),
		logger: logger,
	}
}

// subscribe заменяет фильтр наборов клиента
func (c *Client) subscribe(suites []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(suites) == 0 {
		c.suites = nil
		return
	}

	c.suites = make(map[string]struct{}, len(suites))
	for _, suite := range suites {
		c.suites[suite] = struct{}{}
	}
}

// wantsSuite сообщает, интересен ли клиенту данный набор.
// Сообщения без набора (пустая строка) получают все.
func (c *Client) wantsSuite(suite string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.suites == nil || suite == "" {
		return true
	}
	_, ok := c.suites[suite]
	return ok
}

// ReadPump читает сообщения от клиента: pong и subscribe
// Запускается в отдельной goroutine
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil {
			c.logger.Error("WebSocket close error", err)
		}
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err)
		return
	}
	c.conn.SetReadLimit(maxInboundMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", err)
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			// Не JSON - игнорируем, соединение не рвем
			continue
		}
		if msg.Type == "subscribe" {
			c.subscribe(msg.Suites)
			c.logger.Debug("Client subscription updated", "suites", len(msg.Suites))
		}
	}
}

// WritePump отправляет snapshots и alerts клиенту
// Запускается в отдельной goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Error("WebSocket close error", err)
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if !ok {
				// Hub закрыл канал
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Error("WebSocket close message error", err)
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("WebSocket write error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
