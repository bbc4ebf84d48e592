/*
包 content 定义视频类型并用 LLM 生成选题、B-roll 关键词、评估与配音脚本。

# 核心类型

  - VideoType：wyr / scary_facts / money_facts / ai_quotes / kids，random 按权重选择
  - Topic：选题生成的结构化输出
  - VideoContent：多类型生成器的输出
  - Generator：基于 llm.Caller 的内容生成器，可注入 PromptBooster

# 文本工具

  - StripEmojis：移除无法渲染的 emoji
  - ExtractJSON / DecodeJSON：从 LLM 回复中提取 JSON
  - SplitPhrases / PhraseDurations：旁白切分与逐句时长分配
  - Season：选题提示词中的季节描述

所有文本字段在返回前都会去除 emoji。LLM 不可用时，PhraseKeywords 与
ForType 会退回到固定内容，而不是返回错误。
*/
package content
