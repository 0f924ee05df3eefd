package service

import (
	"github.com/streamwork/hierarchy-gin/internal/repository"
)

// EntityDirectory 实体目录
// 引擎不拥有用户和组织单元的主数据,通过该接口回答
// "实体是否可以出现在指定组织的层级中"
type EntityDirectory interface {
	// KnownIn 判断实体是否可以出现在指定组织
	KnownIn(domain string, organizationID string, entityID string) (bool, error)
}

// graphDirectory 基于关系图自身的实体目录
// 没有外部主数据源时的默认实现:实体从未出现过则信任调用方,
// 已出现在其他组织且从未出现在本组织则视为未知
type graphDirectory struct {
	relationRepo repository.RelationRepository
}

// NewGraphDirectory 创建基于关系图的实体目录
func NewGraphDirectory(relationRepo repository.RelationRepository) EntityDirectory {
	return &graphDirectory{relationRepo: relationRepo}
}

// KnownIn 判断实体是否可以出现在指定组织
func (d *graphDirectory) KnownIn(domain string, organizationID string, entityID string) (bool, error) {
	orgs, err := d.relationRepo.OrganizationsOf(domain, entityID)
	if err != nil {
		return false, err
	}
	if len(orgs) == 0 {
		// 从未出现过的实体,信任调用方
		return true, nil
	}
	for _, org := range orgs {
		if org == organizationID {
			return true, nil
		}
	}
	return false, nil
}
