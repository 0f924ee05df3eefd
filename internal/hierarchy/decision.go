package hierarchy

import "time"

// 判定原因
const (
	ReasonSelf             = "self"
	ReasonUnknownEntity    = "unknown entity"
	ReasonMaxDepthExceeded = "max depth exceeded"
	ReasonNoPath           = "no access path found"
	ReasonExplicitDeny     = "explicit deny"
)

// Decision 访问判定结果
// 由解析器产出,写入审计日志并进入判定缓存
type Decision struct {
	ID               string      `json:"id"`
	OrganizationID   string      `json:"organizationId"`
	Domain           string      `json:"domain"`
	RequesterID      string      `json:"requesterId"`
	TargetID         string      `json:"targetId"`
	DataScope        string      `json:"dataScope"`
	Action           string      `json:"action"`
	Granted          bool        `json:"granted"`
	AccessLevel      AccessLevel `json:"accessLevel"`
	GrantedScopes    []string    `json:"grantedScopes"`
	DeniedScopes     []string    `json:"deniedScopes"`
	Via              string      `json:"via,omitempty"`
	InheritanceChain []string    `json:"inheritanceChain"`
	DirectAccess     bool        `json:"directAccess"`
	Reason           string      `json:"reason"`
	DecidedAt        time.Time   `json:"decidedAt"`
}
