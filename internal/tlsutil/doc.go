// Package tlsutil 为所有外部 HTTP 客户端（LLM、素材库、Dailymotion、YouTube）
// 提供统一的安全加固 TLS 设置（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
