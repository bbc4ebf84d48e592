package api

import (
	"github.com/BaSui01/viralshorts/analyzer"
	"github.com/BaSui01/viralshorts/evaluator"
	"github.com/BaSui01/viralshorts/pipeline"
	"github.com/BaSui01/viralshorts/store"
)

// CreateJobRequest 创建作业请求
type CreateJobRequest = pipeline.JobRequest

// JobResponse 作业详情
type JobResponse struct {
	Job    *store.Job    `json:"job"`
	Videos []store.Video `json:"videos,omitempty"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewList 包装列表，nil 序列化为空数组
func NewList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// EvaluateRequest 评估请求。Questions 走 AI 批量评分；Hook/Title/Narration
// 走启发式评分。两者可以同时提供。
type EvaluateRequest struct {
	Questions []evaluator.Question `json:"questions,omitempty"`
	Limit     int                  `json:"limit,omitempty"`
	Hook      string               `json:"hook,omitempty"`
	Title     string               `json:"title,omitempty"`
	Narration string               `json:"narration,omitempty"`
}

// EvaluateResponse 评估结果
type EvaluateResponse struct {
	Batch      *evaluator.BatchReport `json:"batch,omitempty"`
	Heuristics *Heuristics            `json:"heuristics,omitempty"`
}

// Heuristics 不依赖 AI 的评分
type Heuristics struct {
	ScrollStopPower float64           `json:"scroll_stop_power"`
	PredictedCTR    float64           `json:"predicted_ctr"`
	Signals         evaluator.Signals `json:"signals"`
}

// PatternsResponse 合并后的病毒模式与存储中的带权重记录
type PatternsResponse struct {
	Patterns analyzer.Patterns `json:"patterns"`
	Learned  []store.Pattern   `json:"learned"`
	Boost    string            `json:"prompt_boost,omitempty"`
}
