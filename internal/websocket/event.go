package websocket

import (
	"encoding/json"
	"time"
)

// 层级变更事件类型
const (
	EventRelationCreated = "relation.created"
	EventRelationUpdated = "relation.updated"
	EventRelationDeleted = "relation.deleted"
)

// Event 层级变更事件
// 推送给同组织的客户端,客户端据此刷新本地层级视图
type Event struct {
	Type           string    `json:"type"`
	Domain         string    `json:"domain"`
	OrganizationID string    `json:"organizationId"`
	RelationID     string    `json:"relationId"`
	FromID         string    `json:"fromId"`
	ToID           string    `json:"toId"`
	RelationType   string    `json:"relationType"`
	Timestamp      time.Time `json:"timestamp"`
}

// PublishEvent 序列化事件并广播到事件所属组织
// hub 为 nil 时静默跳过,方便测试环境不启动 WebSocket
func PublishEvent(hub *Hub, event *Event) {
	if hub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	hub.BroadcastToOrganization(event.OrganizationID, payload)
}
