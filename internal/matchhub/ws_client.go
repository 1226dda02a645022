package matchhub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"vibelink/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// WebSocketClient реалізує інтерфейс matchhub.Client поверх
// gorilla/websocket.
type WebSocketClient struct {
	UserID   string
	Language string
	Conn     *websocket.Conn
	Hub      *Manager
	Send     chan models.Event

	mu        sync.Mutex
	sessionID string
}

func (c *WebSocketClient) GetUserID() string   { return c.UserID }
func (c *WebSocketClient) GetLanguage() string { return c.Language }

func (c *WebSocketClient) GetSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *WebSocketClient) SetSessionID(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває з'єднання; обидва pumps завершаться самі на помилці
// вводу/виводу. Канал Send лишається відкритим: координатор та
// awaitOutcome goroutines можуть надсилати в нього конкурентно з
// unregister, і закриття каналу тут означало б panic для процесу.
func (c *WebSocketClient) Close() {
	c.Conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
	c.Conn.Close()
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var ev models.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			log.Printf("Error decoding JSON from client %s: %v", c.UserID, err)
			continue // Пропускаємо невірне повідомлення
		}

		// The sender identity always comes from the authenticated
		// connection, never from the payload.
		ev.SenderID = c.UserID

		c.Hub.IncomingCh <- Inbound{Client: c, Event: ev}
	}
}

// writePump читає події з каналу Send і записує їх у WebSocket.
// Single reader of c.Send, so wire order matches send order.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Error encoding JSON for client %s: %v", c.UserID, err)
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			// Надсилаємо Ping для підтримки з'єднання активним
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
