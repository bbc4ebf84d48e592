package migration

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/internal/database"
)

// NewFromConfig 按应用配置打开一个独立连接池并创建迁移器，
// 迁移器关闭时连接池一并关闭。
func NewFromConfig(cfg config.DatabaseConfig, logger *zap.Logger) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	pm, err := database.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	m, err := NewWithDB(dbType, pm.SQLDB(), WithLogger(logger), WithCloser(pm.Close))
	if err != nil {
		_ = pm.Close()
		return nil, err
	}
	return m, nil
}
