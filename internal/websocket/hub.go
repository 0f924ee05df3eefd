package websocket

// broadcast 投递给单个组织房间的消息
type broadcast struct {
	organizationID string
	payload        []byte
}

// Hub 管理所有 WebSocket 连接
// 按组织分房间,层级变更事件只推给同组织的客户端;
// rooms 只被 Run 这一个 goroutine 读写,注册、注销和广播都走 channel
type Hub struct {
	rooms map[string]map[*Client]bool

	// Register 注册新客户端
	Register chan *Client

	// Unregister 注销客户端
	Unregister chan *Client

	broadcasts chan broadcast
}

// NewHub 创建新的 Hub
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcasts: make(chan broadcast, 64),
	}
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			room := h.rooms[client.OrganizationID]
			if room == nil {
				room = make(map[*Client]bool)
				h.rooms[client.OrganizationID] = room
			}
			room[client] = true

		case client := <-h.Unregister:
			if room, ok := h.rooms[client.OrganizationID]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.Send)
					if len(room) == 0 {
						delete(h.rooms, client.OrganizationID)
					}
				}
			}

		case msg := <-h.broadcasts:
			room := h.rooms[msg.organizationID]
			for client := range room {
				select {
				case client.Send <- msg.payload:
				default:
					// 发送队列已满的客户端视为失联,直接踢掉
					delete(room, client)
					close(client.Send)
				}
			}
		}
	}
}

// BroadcastToOrganization 向特定组织的客户端广播消息
// 广播队列满时丢弃,事件推送只保证尽力而为
func (h *Hub) BroadcastToOrganization(orgID string, message []byte) {
	select {
	case h.broadcasts <- broadcast{organizationID: orgID, payload: message}:
	default:
	}
}
