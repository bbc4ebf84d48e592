/*
包 providers 是各 LLM Provider 实现的公共基础层。

# 核心函数

  - MapHTTPError / MapResponseError：把 401/402/403/429/5xx/529 等状态码映射为
    llm.Error，并读取 Retry-After 供退避使用
  - ReadErrorMessage：解析 OpenAI 风格的错误 JSON，失败时回退为原始文本
  - ConvertMessagesToOpenAI / ToLLMChatResponse：OpenAI 兼容格式转换
  - ChooseModel：请求 > 默认 > 兜底 的模型选择

子包 openaicompat 实现 Groq、OpenRouter、DeepSeek、OpenAI；子包 gemini
基于 google.golang.org/genai 实现 Gemini。
*/
package providers
