// Package telemetry 封装 OpenTelemetry SDK 初始化（OTLP gRPC 导出 trace 与 metric），
// 并提供 StartSpan / EndSpan 供流水线各阶段打点。关闭时使用 noop 实现。
package telemetry
