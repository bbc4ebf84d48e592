// 版权所有 2024 ViralShorts Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的大语言模型接入层：Provider 抽象、按优先级降级的
FallbackCaller（SmartAICaller）以及基于 Redis 的响应缓存。

# 核心接口

  - [Provider]：Completion / HealthCheck / Name，由 providers/openaicompat
    （Groq、OpenRouter、DeepSeek、OpenAI）与 providers/gemini 实现。
  - [Caller]：Call(ctx, prompt, opts) 文本生成接口，content、evaluator、
    analyzer 只依赖它。

# 降级策略

[FallbackCaller] 按配置顺序尝试 Provider。每个 Provider 拥有独立熔断器；
HTTP 429 按指数退避重试（遵循 Retry-After），耗尽后落到下一个 Provider；
参数错误、鉴权失败等客户端错误直接跳过。全部失败时返回
[ErrAllProvidersFailed]，并通过 errors.Join 保留每个 Provider 的错误。
发送前用 tokenizer 检查提示词预算并钳制 max_tokens。

# 缓存

[CachedCaller] 以 (模型覆盖, system, prompt, temperature, json, max_tokens)
的 sha256 为键缓存响应；CallOptions.NoCache 用于每次都需要新结果的创意生成。
*/
package llm
