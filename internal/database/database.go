package database

import (
	"context"
	"fmt"
	"time"

	"github.com/streamwork/hierarchy-gin/internal/config"
	"github.com/streamwork/hierarchy-gin/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 从配置中读取连接池参数,如果没有配置则使用默认值
	var poolConfig *PoolConfig
	if cfg.MaxIdleConns > 0 || cfg.MaxOpenConns > 0 {
		poolConfig = &PoolConfig{
			MaxIdleConns:    cfg.MaxIdleConns,
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		}
		if poolConfig.MaxIdleConns == 0 {
			poolConfig.MaxIdleConns = 10
		}
		if poolConfig.MaxOpenConns == 0 {
			poolConfig.MaxOpenConns = 100
		}
		if poolConfig.ConnMaxLifetime == 0 {
			poolConfig.ConnMaxLifetime = 3600
		}
		if poolConfig.ConnMaxIdleTime == 0 {
			poolConfig.ConnMaxIdleTime = 600
		}
	} else {
		poolConfig = GetPoolConfig()
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试,等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,需要手动创建表
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.RelationModel{},
			&model.PermissionEntryModel{},
			&model.AccessDecisionModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表(使用 TEXT 替代 jsonb)
func createSQLiteTables(db *gorm.DB) error {
	// 创建 relations 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS relations (
			id VARCHAR(64) PRIMARY KEY,
			organization_id VARCHAR(64) NOT NULL,
			domain VARCHAR(16) NOT NULL,
			from_id VARCHAR(64) NOT NULL,
			to_id VARCHAR(64) NOT NULL,
			relation_type VARCHAR(32) NOT NULL,
			inheritance_rule VARCHAR(16) NOT NULL,
			description TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			valid_from DATETIME,
			valid_to DATETIME,
			created_by VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create relations table: %w", err)
	}

	// 创建 relation_permissions 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS relation_permissions (
			id VARCHAR(64) PRIMARY KEY,
			relation_id VARCHAR(64) NOT NULL,
			data_scope VARCHAR(32) NOT NULL,
			action VARCHAR(32) NOT NULL,
			granted BOOLEAN NOT NULL,
			expires_at DATETIME,
			granted_by VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create relation_permissions table: %w", err)
	}

	// 创建 access_decisions 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS access_decisions (
			id VARCHAR(64) PRIMARY KEY,
			organization_id VARCHAR(64) NOT NULL,
			domain VARCHAR(16) NOT NULL,
			requester_id VARCHAR(64) NOT NULL,
			target_id VARCHAR(64) NOT NULL,
			data_scope VARCHAR(32) NOT NULL,
			action VARCHAR(32) NOT NULL,
			granted BOOLEAN NOT NULL,
			access_level VARCHAR(32) NOT NULL,
			via VARCHAR(64),
			inheritance_chain TEXT,
			reason VARCHAR(255) NOT NULL,
			decided_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create access_decisions table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	// relations 表索引:遍历按 (组织, 端点) 取边
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_relations_org_from ON relations(organization_id, domain, from_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_relations_org_from: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_relations_org_to ON relations(organization_id, domain, to_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_relations_org_to: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_relations_org_active ON relations(organization_id, domain, is_active)").Error; err != nil {
		return fmt.Errorf("failed to create idx_relations_org_active: %w", err)
	}

	// relation_permissions 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_permissions_relation_id ON relation_permissions(relation_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_permissions_relation_id: %w", err)
	}

	// access_decisions 表索引:审计查询按请求者/目标/时间过滤
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_decisions_org_requester ON access_decisions(organization_id, requester_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_decisions_org_requester: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_decisions_org_target ON access_decisions(organization_id, target_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_decisions_org_target: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_decisions_decided_at ON access_decisions(decided_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_decisions_decided_at: %w", err)
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}
