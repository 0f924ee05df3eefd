package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 访问判定数
	accessChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_checks_total",
			Help: "Total number of access checks",
		},
		[]string{"domain", "result"}, // granted, denied
	)

	// 访问判定耗时
	accessCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "access_check_duration_seconds",
			Help:    "Access check resolution duration in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"domain"},
	)

	// 判定缓存命中与未命中
	decisionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_cache_total",
			Help: "Decision cache lookups by outcome",
		},
		[]string{"domain", "outcome"}, // hit, miss
	)

	// 关系创建数
	relationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relations_created_total",
			Help: "Total number of relations created",
		},
		[]string{"domain", "relation_type"},
	)

	// 因成环被拒绝的关系数
	cycleRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cycle_rejections_total",
			Help: "Total number of relations rejected by cycle validation",
		},
		[]string{"domain"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 活跃关系分布
	activeRelationsByType = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_relations_by_type",
			Help: "Number of active relations by type",
		},
		[]string{"domain", "relation_type"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(accessChecksTotal)
	prometheus.MustRegister(accessCheckDuration)
	prometheus.MustRegister(decisionCacheTotal)
	prometheus.MustRegister(relationsCreatedTotal)
	prometheus.MustRegister(cycleRejectionsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(activeRelationsByType)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		// 尝试注册 Go 运行时指标，如果已注册则忽略错误
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordAccessCheck 记录一次访问判定
func RecordAccessCheck(domain string, granted bool, duration float64) {
	result := "denied"
	if granted {
		result = "granted"
	}
	accessChecksTotal.WithLabelValues(domain, result).Inc()
	accessCheckDuration.WithLabelValues(domain).Observe(duration)
}

// RecordCacheHit 记录判定缓存命中
func RecordCacheHit(domain string) {
	decisionCacheTotal.WithLabelValues(domain, "hit").Inc()
}

// RecordCacheMiss 记录判定缓存未命中
func RecordCacheMiss(domain string) {
	decisionCacheTotal.WithLabelValues(domain, "miss").Inc()
}

// RecordRelationCreated 记录关系创建
func RecordRelationCreated(domain, relationType string) {
	relationsCreatedTotal.WithLabelValues(domain, relationType).Inc()
}

// RecordCycleRejection 记录一次成环拒绝
func RecordCycleRejection(domain string) {
	cycleRejectionsTotal.WithLabelValues(domain).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateActiveRelations 更新活跃关系分布指标
func UpdateActiveRelations(domain, relationType string, count float64) {
	activeRelationsByType.WithLabelValues(domain, relationType).Set(count)
}
