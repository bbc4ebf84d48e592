// Package config 提供 ViralShorts 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → VIRALSHORTS_* 环境变量 的顺序合并，
// 之后再读取 GROQ_API_KEY、PEXELS_API_KEY、DAILYMOTION_* 等常规变量名，
// 只填充仍为空的凭证字段。
package config
