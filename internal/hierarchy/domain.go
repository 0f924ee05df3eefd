package hierarchy

// InheritanceRule 继承规则
// 控制关系在层级遍历中是否可以继续传递访问权限
type InheritanceRule string

const (
	// InheritanceNone 不继承,关系只描述结构,不传递权限
	InheritanceNone InheritanceRule = "NONE"
	// InheritanceDown 向下继承,从上级传递到下级
	InheritanceDown InheritanceRule = "DOWN"
	// InheritanceUp 向上继承,从下级传递到上级
	InheritanceUp InheritanceRule = "UP"
	// InheritanceBidirectional 双向继承
	InheritanceBidirectional InheritanceRule = "BIDIRECTIONAL"
)

// InheritanceRules 所有合法的继承规则
var InheritanceRules = []InheritanceRule{
	InheritanceNone,
	InheritanceDown,
	InheritanceUp,
	InheritanceBidirectional,
}

// Valid 判断继承规则是否合法
func (r InheritanceRule) Valid() bool {
	for _, rule := range InheritanceRules {
		if r == rule {
			return true
		}
	}
	return false
}

// CanTraverse 判断沿指定方向是否可以继续遍历
// forward 表示沿 fromId -> toId 方向(从上级到下级)
func (r InheritanceRule) CanTraverse(forward bool) bool {
	switch r {
	case InheritanceDown:
		return forward
	case InheritanceUp:
		return !forward
	case InheritanceBidirectional:
		return true
	default:
		return false
	}
}

// AccessLevel 访问级别
// 按关系类型的基线配置映射,序数越大权限越高
type AccessLevel string

const (
	AccessLevelNoAccess     AccessLevel = "NO_ACCESS"
	AccessLevelViewOnly     AccessLevel = "VIEW_ONLY"
	AccessLevelReadOnly     AccessLevel = "READ_ONLY"
	AccessLevelLimited      AccessLevel = "LIMITED"
	AccessLevelStandard     AccessLevel = "STANDARD"
	AccessLevelContributor  AccessLevel = "CONTRIBUTOR"
	AccessLevelElevated     AccessLevel = "ELEVATED"
	AccessLevelCollaborator AccessLevel = "COLLABORATOR"
	AccessLevelManager      AccessLevel = "MANAGER"
	AccessLevelAdmin        AccessLevel = "ADMIN"
	AccessLevelFullControl  AccessLevel = "FULL_CONTROL"
)

// accessLevelRanks 访问级别的序数
var accessLevelRanks = map[AccessLevel]int{
	AccessLevelNoAccess:     0,
	AccessLevelViewOnly:     1,
	AccessLevelReadOnly:     1,
	AccessLevelLimited:      2,
	AccessLevelStandard:     3,
	AccessLevelContributor:  3,
	AccessLevelElevated:     4,
	AccessLevelCollaborator: 4,
	AccessLevelManager:      5,
	AccessLevelAdmin:        6,
	AccessLevelFullControl:  7,
}

// Rank 返回访问级别的序数
func (l AccessLevel) Rank() int {
	return accessLevelRanks[l]
}

// ScopeAll 通配数据范围,匹配所有数据范围
const ScopeAll = "ALL"

// RelationProfile 关系类型的基线配置
// Forward 方向为 fromId -> toId(上级对下级),Reverse 方向为 toId -> fromId
// Actions 为空表示允许领域内的所有动作
type RelationProfile struct {
	Strength       int
	Level          AccessLevel
	ForwardScopes  []string
	ForwardActions []string
	ReverseScopes  []string
	ReverseActions []string
}

// ScopesFor 返回指定方向下基线授予的数据范围
func (p RelationProfile) ScopesFor(forward bool) []string {
	if forward {
		return p.ForwardScopes
	}
	return p.ReverseScopes
}

// GrantsScope 判断基线配置是否在指定方向授予数据范围
func (p RelationProfile) GrantsScope(forward bool, scope string) bool {
	for _, s := range p.ScopesFor(forward) {
		if s == scope || s == ScopeAll {
			return true
		}
	}
	return false
}

// AllowsAction 判断基线配置是否在指定方向允许动作
func (p RelationProfile) AllowsAction(forward bool, action string) bool {
	actions := p.ForwardActions
	if !forward {
		actions = p.ReverseActions
	}
	if len(actions) == 0 {
		return true
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// Domain 层级领域配置
// 用户层级和组织单元(stream)层级共用同一套引擎,
// 通过 Domain 提供各自的关系类型、数据范围、动作和基线配置
type Domain struct {
	Name     string
	Scopes   []string
	Actions  []string
	Profiles map[string]RelationProfile
}

// HasScope 判断数据范围是否属于该领域
func (d Domain) HasScope(scope string) bool {
	if scope == ScopeAll {
		return true
	}
	for _, s := range d.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasAction 判断动作是否属于该领域
func (d Domain) HasAction(action string) bool {
	for _, a := range d.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Profile 返回关系类型的基线配置
func (d Domain) Profile(relationType string) (RelationProfile, bool) {
	p, ok := d.Profiles[relationType]
	return p, ok
}

// HasRelationType 判断关系类型是否属于该领域
func (d Domain) HasRelationType(relationType string) bool {
	_, ok := d.Profiles[relationType]
	return ok
}

// DeniedScopes 返回领域内未被授予的数据范围(granted 的补集)
func (d Domain) DeniedScopes(granted []string) []string {
	grantedSet := make(map[string]bool, len(granted))
	all := false
	for _, s := range granted {
		grantedSet[s] = true
		if s == ScopeAll {
			all = true
		}
	}
	if all {
		return []string{}
	}
	denied := make([]string, 0, len(d.Scopes))
	for _, s := range d.Scopes {
		if !grantedSet[s] {
			denied = append(denied, s)
		}
	}
	return denied
}

// 用户领域的数据范围
const (
	UserScopeProfile       = "PROFILE"
	UserScopeTasks         = "TASKS"
	UserScopeProjects      = "PROJECTS"
	UserScopeSchedule      = "SCHEDULE"
	UserScopePerformance   = "PERFORMANCE"
	UserScopeDocuments     = "DOCUMENTS"
	UserScopeCommunication = "COMMUNICATION"
	UserScopeSettings      = "SETTINGS"
	UserScopeTeamData      = "TEAM_DATA"
	UserScopeReports       = "REPORTS"
)

// 通用动作
const (
	ActionView     = "VIEW"
	ActionEdit     = "EDIT"
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionAssign   = "ASSIGN"
	ActionApprove  = "APPROVE"
	ActionDelegate = "DELEGATE"
	ActionManage   = "MANAGE"
	ActionAudit    = "AUDIT"
)

// UserDomain 用户层级领域
// 关系类型覆盖人员之间的管理、领导、指导等关系
func UserDomain() Domain {
	return Domain{
		Name: "user",
		Scopes: []string{
			UserScopeProfile, UserScopeTasks, UserScopeProjects,
			UserScopeSchedule, UserScopePerformance, UserScopeDocuments,
			UserScopeCommunication, UserScopeSettings, UserScopeTeamData,
			UserScopeReports,
		},
		Actions: []string{
			ActionView, ActionEdit, ActionCreate, ActionDelete,
			ActionAssign, ActionApprove, ActionDelegate, ActionManage,
			ActionAudit,
		},
		Profiles: map[string]RelationProfile{
			"MANAGES": {
				Strength: 70,
				Level:    AccessLevelManager,
				ForwardScopes: []string{
					UserScopeProfile, UserScopeTasks, UserScopeProjects,
					UserScopeSchedule, UserScopePerformance,
				},
				ReverseScopes:  []string{UserScopeProfile},
				ReverseActions: []string{ActionView},
			},
			"LEADS": {
				Strength:      60,
				Level:         AccessLevelElevated,
				ForwardScopes: []string{UserScopeProfile, UserScopeTasks, UserScopeProjects},
			},
			"SUPERVISES": {
				Strength:       55,
				Level:          AccessLevelElevated,
				ForwardScopes:  []string{UserScopeProfile, UserScopeTasks, UserScopeSchedule},
				ReverseScopes:  []string{UserScopeProfile},
				ReverseActions: []string{ActionView},
			},
			"MENTORS": {
				Strength:       40,
				Level:          AccessLevelStandard,
				ForwardScopes:  []string{UserScopeProfile, UserScopeTasks, UserScopeDocuments},
				ForwardActions: []string{ActionView, ActionEdit},
				ReverseScopes:  []string{UserScopeProfile},
				ReverseActions: []string{ActionView},
			},
			"COLLABORATES": {
				Strength:       35,
				Level:          AccessLevelStandard,
				ForwardScopes:  []string{UserScopeProfile, UserScopeTasks, UserScopeProjects},
				ForwardActions: []string{ActionView, ActionEdit},
				ReverseScopes:  []string{UserScopeProfile, UserScopeTasks, UserScopeProjects},
				ReverseActions: []string{ActionView, ActionEdit},
			},
			"SUPPORTS": {
				Strength:       25,
				Level:          AccessLevelLimited,
				ForwardScopes:  []string{UserScopeProfile, UserScopeTasks},
				ForwardActions: []string{ActionView},
				ReverseScopes:  []string{UserScopeProfile},
				ReverseActions: []string{ActionView},
			},
			"REPORTS_TO": {
				Strength:       20,
				Level:          AccessLevelViewOnly,
				ForwardScopes:  []string{UserScopeProfile},
				ForwardActions: []string{ActionView},
				ReverseScopes:  []string{UserScopeProfile, UserScopeTasks, UserScopeSchedule},
				ReverseActions: []string{ActionView},
			},
		},
	}
}

// 组织单元(stream)领域的数据范围
const (
	StreamScopeBasicInfo     = "BASIC_INFO"
	StreamScopeTasks         = "TASKS"
	StreamScopeProjects      = "PROJECTS"
	StreamScopeFinancial     = "FINANCIAL"
	StreamScopeMetrics       = "METRICS"
	StreamScopeCommunication = "COMMUNICATION"
	StreamScopePermissions   = "PERMISSIONS"
	StreamScopeConfiguration = "CONFIGURATION"
	StreamScopeAuditLogs     = "AUDIT_LOGS"
)

// StreamDomain 组织单元层级领域
func StreamDomain() Domain {
	return Domain{
		Name: "stream",
		Scopes: []string{
			StreamScopeBasicInfo, StreamScopeTasks, StreamScopeProjects,
			StreamScopeFinancial, StreamScopeMetrics, StreamScopeCommunication,
			StreamScopePermissions, StreamScopeConfiguration, StreamScopeAuditLogs,
		},
		Actions: []string{
			ActionView, ActionCreate, ActionUpdate, ActionDelete,
			ActionManage, ActionApprove, ActionAudit,
		},
		Profiles: map[string]RelationProfile{
			"OWNS": {
				Strength:       80,
				Level:          AccessLevelFullControl,
				ForwardScopes:  []string{ScopeAll},
				ReverseScopes:  []string{StreamScopeBasicInfo},
				ReverseActions: []string{ActionView},
			},
			"MANAGES": {
				Strength: 70,
				Level:    AccessLevelManager,
				ForwardScopes: []string{
					StreamScopeBasicInfo, StreamScopeTasks,
					StreamScopeProjects, StreamScopeCommunication,
				},
				ReverseScopes:  []string{StreamScopeBasicInfo},
				ReverseActions: []string{ActionView},
			},
			"BELONGS_TO": {
				Strength:       40,
				Level:          AccessLevelContributor,
				ForwardScopes:  []string{StreamScopeBasicInfo, StreamScopeTasks},
				ForwardActions: []string{ActionView, ActionCreate, ActionUpdate},
				ReverseScopes:  []string{StreamScopeBasicInfo, StreamScopeTasks},
				ReverseActions: []string{ActionView},
			},
			"DEPENDS_ON": {
				Strength:       30,
				Level:          AccessLevelLimited,
				ForwardScopes:  []string{StreamScopeBasicInfo, StreamScopeMetrics},
				ForwardActions: []string{ActionView},
				ReverseScopes:  []string{StreamScopeBasicInfo},
				ReverseActions: []string{ActionView},
			},
			"SUPPORTS": {
				Strength:       25,
				Level:          AccessLevelLimited,
				ForwardScopes:  []string{StreamScopeBasicInfo, StreamScopeTasks},
				ForwardActions: []string{ActionView},
				ReverseScopes:  []string{StreamScopeBasicInfo},
				ReverseActions: []string{ActionView},
			},
			"RELATED_TO": {
				Strength:       20,
				Level:          AccessLevelReadOnly,
				ForwardScopes:  []string{StreamScopeBasicInfo},
				ForwardActions: []string{ActionView},
				ReverseScopes:  []string{StreamScopeBasicInfo},
				ReverseActions: []string{ActionView},
			},
		},
	}
}
