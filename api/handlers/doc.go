/*
Package handlers 实现 ViralShorts HTTP API 的请求处理器。

# 核心类型

  - JobHandler      — 创建、查询作业，WebSocket 推送作业事件
  - VideoHandler    — 视频列表
  - EvaluateHandler — AI 批量评分与启发式评分
  - PatternHandler  — 病毒模式
  - HealthHandler   — /health、/ready、/version

所有 Handler 都使用 Response 统一响应格式；错误经 types.HTTPStatusOf
映射为 HTTP 状态码。
*/
package handlers
