// Package openaicompat implements the Chat Completions wire protocol shared by
// Groq, OpenRouter, DeepSeek and OpenAI.
//
// Usage:
//
//	p := openaicompat.NewGroq(cfg.LLM.Groq, cfg.LLM.Timeout, logger)
//	resp, err := p.Completion(ctx, &llm.ChatRequest{
//	    Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
//	})
package openaicompat
