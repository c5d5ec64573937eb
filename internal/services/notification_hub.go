package services

import (
	"net/http"
	"sync"
	"time"

	"agrolink/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// HubMessage 推送给管理端的消息
type HubMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type hubClient struct {
	id      string
	adminID uint
	conn    *websocket.Conn
	send    chan HubMessage
	hub     *NotificationHub
}

// NotificationHub pushes engine-created admin notifications to connected
// admin consoles over websocket. Implements the engine's Notifier.
type NotificationHub struct {
	clients    map[string]*hubClient
	broadcast  chan HubMessage
	register   chan *hubClient
	unregister chan *hubClient
	mutex      sync.RWMutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 生产环境需要验证源
	},
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		clients:    make(map[string]*hubClient),
		broadcast:  make(chan HubMessage, 64),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
	}
}

// Notify queues an admin notification for broadcast. Non-blocking: if the
// hub is saturated the push is dropped, the row is already persisted anyway.
func (h *NotificationHub) Notify(n *models.AdminNotification) {
	msg := HubMessage{Type: "admin_notification", Data: n, Timestamp: time.Now()}
	select {
	case h.broadcast <- msg:
	default:
		logrus.Warn("notification hub: broadcast queue full, push dropped")
	}
}

func (h *NotificationHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.id] = client
			h.mutex.Unlock()
			logrus.Infof("notification hub: client %s connected", client.id)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
				logrus.Infof("notification hub: client %s disconnected", client.id)
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for id, client := range h.clients {
				if !messageForClient(message, client) {
					continue
				}
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// messageForClient: 通知只发给目标管理员，admin_id=0 表示全体
func messageForClient(msg HubMessage, client *hubClient) bool {
	n, ok := msg.Data.(*models.AdminNotification)
	if !ok {
		return true
	}
	return n.AdminID == 0 || n.AdminID == client.adminID
}

// HandleWebSocket upgrades an admin console connection.
func (h *NotificationHub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("notification hub: upgrade failed: %v", err)
		return
	}

	var adminID uint
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			adminID = id
		}
	}

	client := &hubClient{
		id:      uuid.NewString(),
		adminID: adminID,
		conn:    conn,
		send:    make(chan HubMessage, 64),
		hub:     h,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *NotificationHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)
	for {
		// 管理端只收不发，读循环仅用于探测断开
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
