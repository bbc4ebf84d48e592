// Package tokenizer 为 LLM 请求提供 token 计数与预算检查：
// 优先使用 tiktoken 精确计数，离线时回退到字符估算器。
package tokenizer
