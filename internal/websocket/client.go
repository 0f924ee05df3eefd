package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// 写超时时间
	writeWait = 10 * time.Second

	// 读超时时间
	pongWait = 60 * time.Second

	// ping 周期 (必须小于 pongWait)
	pingPeriod = (pongWait * 9) / 10

	// 客户端只订阅事件不上行数据,入站消息限制到很小
	maxInboundSize = 512
)

// Client WebSocket 客户端
// 订阅所属组织的层级变更事件,连接是单向推送的
type Client struct {
	// ID 客户端 ID
	ID string

	// UserID 用户 ID
	UserID string

	// OrganizationID 组织 ID,决定客户端收到哪些层级变更事件
	OrganizationID string

	// Hub Hub 实例
	Hub *Hub

	// Conn WebSocket 连接
	Conn *websocket.Conn

	// Send 待推送的事件队列
	Send chan []byte
}

// NewClient 创建新的客户端
func NewClient(id string, userID string, orgID string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:             id,
		UserID:         userID,
		OrganizationID: orgID,
		Hub:            hub,
		Conn:           conn,
		Send:           make(chan []byte, 256),
	}
}

// ReadPump 消费入站帧以驱动 pong 与关闭检测
// 客户端不上行业务数据,读到的内容直接丢弃
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetReadLimit(maxInboundSize)
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("client_id", c.ID).Debug("websocket closed unexpectedly")
			}
			return
		}
	}
}

// WritePump 向 WebSocket 连接推送事件
// 每个事件是一个独立的 JSON 文档,单独成帧,不做拼包
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了 channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
