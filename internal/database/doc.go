/*
包 database 负责打开 SQL 数据库并管理 GORM 连接池。

# 概述

Open 根据配置选择方言：sqlite（glebarez 纯 Go 驱动，默认）、postgres、mysql，
然后交给 PoolManager 统一管理连接池、健康检查与事务。

# 核心类型

  - PoolManager：DB()、SQLDB()、Ping()、Close()、GetStats()。
  - PoolConfig：最大连接数、空闲数与生命周期，Validate 校验参数。
  - TransactionFunc：事务回调。

# 事务

WithTransaction 单次执行；WithTransactionRetry 对死锁、序列化失败、
sqlite 忙等瞬时错误做指数退避重试。
*/
package database
