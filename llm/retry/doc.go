// Package retry 提供带抖动的指数退避重试，支持可重试错误过滤、
// 服务端 Retry-After 提示与 context 取消。
package retry
