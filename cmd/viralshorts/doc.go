// Copyright (c) ViralShorts Authors.
// Licensed under the MIT License.

/*
Package main 提供 ViralShorts 命令行与服务端程序入口。

# 概述

cmd/viralshorts 基于 cobra 组织子命令：generate、evaluate、analyze、
music、upload 直接在本进程内运行流水线组件；serve 启动 HTTP API
与独立的 Metrics 端口；migrate 管理数据库 schema。

# 核心类型

  - app        — 一次运行所需的全部组件，可选依赖未配置时为 nil
  - Server     — API 与 Metrics 双端口，优雅关闭
  - Middleware — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 中间件链：Recovery、RequestID、OTelTracing、SecurityHeaders、
    RequestLogger、MetricsMiddleware、CORS、RateLimiter（基于 IP）、
    Auth（X-API-Key 或 HS256 JWT）
  - 增强器按 pipeline.enhancers 配置从注册表构建
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
