package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/internal/tlsutil"
	"github.com/BaSui01/viralshorts/llm"
	"github.com/BaSui01/viralshorts/llm/providers"
)

const (
	// Name 是 llm.order 中使用的 Provider 名称
	Name = "gemini"

	fallbackModel = "gemini-2.0-flash"
)

// Provider 通过 google.golang.org/genai 调用 Gemini API
type Provider struct {
	cfg        config.ProviderConfig
	httpClient *http.Client
	logger     *zap.Logger

	once      sync.Once
	client    *genai.Client
	clientErr error
}

var _ llm.Provider = (*Provider)(nil)

// New 创建 Gemini Provider。genai 客户端在首次调用时才建立，
// 未配置 API Key 时构造不会失败，只在调用时返回 ProviderUnavailable。
func New(cfg config.ProviderConfig, timeout time.Duration, logger *zap.Logger) *Provider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:        cfg,
		httpClient: tlsutil.SecureHTTPClient(timeout),
		logger:     logger.With(zap.String("component", "llm_provider"), zap.String("provider", Name)),
	}
}

func (p *Provider) Name() string { return Name }

// DefaultModel reports the model used when a request does not name one.
func (p *Provider) DefaultModel() string {
	return providers.ChooseModel(nil, p.cfg.Model, fallbackModel)
}

func (p *Provider) unavailable(msg string, cause error) *llm.Error {
	return &llm.Error{
		Code: llm.ErrProviderUnavailable, Message: msg,
		HTTPStatus: http.StatusServiceUnavailable, Provider: Name, Cause: cause,
	}
}

func (p *Provider) getClient(ctx context.Context) (*genai.Client, error) {
	if p.cfg.APIKey == "" {
		return nil, p.unavailable("api key not configured", nil)
	}
	p.once.Do(func() {
		cc := &genai.ClientConfig{
			APIKey:     p.cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: p.httpClient,
		}
		if p.cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(p.cfg.BaseURL, "/") + "/"}
		}
		p.client, p.clientErr = genai.NewClient(ctx, cc)
	})
	if p.clientErr != nil {
		return nil, p.unavailable("create genai client", p.clientErr)
	}
	return p.client, nil
}

// HealthCheck 读取默认模型的元数据
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	client, err := p.getClient(ctx)
	if err != nil {
		return &llm.HealthStatus{Healthy: false}, err
	}
	_, err = client.Models.Get(ctx, p.DefaultModel(), nil)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, p.mapError(err)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// Completion 把 system 消息合并为 SystemInstruction，其余消息按角色转换为 Content
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	model := providers.ChooseModel(req, p.cfg.Model, fallbackModel)
	system, contents := convertMessages(req.Messages)
	if len(contents) == 0 {
		return nil, &llm.Error{
			Code: llm.ErrInvalidRequest, Message: "no user content",
			HTTPStatus: http.StatusBadRequest, Provider: Name,
		}
	}

	gc := &genai.GenerateContentConfig{
		SystemInstruction: system,
		StopSequences:     req.Stop,
	}
	if req.Temperature > 0 {
		gc.Temperature = genai.Ptr(req.Temperature)
	}
	if req.TopP > 0 {
		gc.TopP = genai.Ptr(req.TopP)
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSONMode {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, gc)
	if err != nil {
		lerr := p.mapError(err)
		p.logger.Debug("generate content failed", zap.String("model", model), zap.String("code", string(lerr.Code)))
		return nil, lerr
	}

	text := resp.Text()
	if text == "" {
		reason := ""
		if len(resp.Candidates) > 0 {
			reason = string(resp.Candidates[0].FinishReason)
		}
		if reason == string(genai.FinishReasonSafety) {
			return nil, &llm.Error{
				Code: llm.ErrContentFiltered, Message: "response blocked by safety filter",
				HTTPStatus: http.StatusBadRequest, Provider: Name,
			}
		}
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: "empty candidates " + reason,
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: Name,
		}
	}

	out := &llm.ChatResponse{
		ID:        resp.ResponseID,
		Provider:  Name,
		Model:     model,
		CreatedAt: time.Now(),
		Choices: []llm.ChatChoice{{
			Message: llm.Message{Role: llm.RoleAssistant, Content: text},
		}},
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if len(resp.Candidates) > 0 {
		out.Choices[0].FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func convertMessages(msgs []llm.Message) (*genai.Content, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}

func (p *Provider) mapError(err error) *llm.Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return providers.MapHTTPError(apiErr.Code, apiErr.Message, Name)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return providers.MapHTTPError(apiErrPtr.Code, apiErrPtr.Message, Name)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Error{
			Code: llm.ErrUpstreamTimeout, Message: fmt.Sprintf("gemini: %v", err),
			HTTPStatus: http.StatusGatewayTimeout, Retryable: true, Provider: Name, Cause: err,
		}
	}
	return providers.NetworkError(err, Name)
}
