package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Collector 指标收集器
// 周期性刷新数据库连接数和活跃关系分布两类快照型指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = UpdateDatabaseConnections(c.db)
			c.collectRelationCounts()
		}
	}
}

// collectRelationCounts 按领域和关系类型统计活跃关系数
func (c *Collector) collectRelationCounts() {
	var rows []struct {
		Domain       string
		RelationType string
		Count        int64
	}
	err := c.db.Table("relations").
		Select("domain, relation_type, count(*) as count").
		Where("is_active = ?", true).
		Group("domain, relation_type").
		Scan(&rows).Error
	if err != nil {
		return
	}
	for _, row := range rows {
		UpdateActiveRelations(row.Domain, row.RelationType, float64(row.Count))
	}
}
