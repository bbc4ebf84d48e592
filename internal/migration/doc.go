/*
包 migration 基于 golang-migrate 管理数据库 Schema。

# 概述

迁移 SQL 以 embed 方式打包在 migrations/{sqlite,postgres,mysql} 下，
迁移器直接运行在已打开的 *sql.DB 上（sqlite 使用 glebarez 纯 Go 驱动打开），
因此无需 cgo。

# 核心类型

  - Migrator / DefaultMigrator：Up、Down、Steps、Force、Version、Status、Info。
  - CLI：供 `viralshorts migrate` 子命令输出结果。
  - NewFromConfig：根据 config.DatabaseConfig 打开连接并创建迁移器。

# Schema

  - 000001 jobs / videos
  - 000002 patterns（已学习的爆款模式）
*/
package migration
