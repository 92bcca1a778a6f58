package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"seedsearch/internal/config"
	"seedsearch/internal/errors"
	"seedsearch/internal/logger"
)

// Embedder 调用OpenAI兼容接口生成文本向量
type Embedder struct {
	httpClient *resty.Client
	config     config.EmbeddingConfig
	log        *logger.Logger
}

// embeddingResponse embedding接口响应
type embeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// NewEmbedder 创建向量化客户端
func NewEmbedder(cfg config.EmbeddingConfig) *Embedder {
	log := logger.NewLogger("embedder")

	httpClient := resty.New()
	httpClient.SetBaseURL(cfg.APIBase)
	httpClient.SetTimeout(cfg.Timeout)
	httpClient.SetHeader("Content-Type", "application/json")
	httpClient.SetRetryCount(cfg.RetryTimes)
	httpClient.SetRetryWaitTime(cfg.RetryDelay)

	if cfg.APIKey != "" {
		httpClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey))
	} else {
		log.Warn("embedding API key未配置，向量化请求可能失败")
	}

	log.Info("向量化客户端就绪", logger.Fields{
		"model":    cfg.Model,
		"api_base": cfg.APIBase,
	})
	return &Embedder{
		httpClient: httpClient,
		config:     cfg,
		log:        log,
	}
}

// normalizeText 压缩空白字符，保持embedding输入稳定
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Embed 生成单个文本的向量
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = normalizeText(text)
	if text == "" {
		return nil, errors.ErrValidationFailed("text", "cannot be empty")
	}

	resp, err := e.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"model": e.config.Model,
			"input": text,
		}).
		SetResult(&embeddingResponse{}).
		Post("/embeddings")
	if err != nil {
		return nil, errors.ErrEmbeddingCall("调用embedding接口失败", err).
			WithContext(map[string]interface{}{"text_length": len(text)})
	}
	if resp.StatusCode() != 200 {
		return nil, errors.ErrEmbeddingCall(
			fmt.Sprintf("embedding接口返回异常状态: %d", resp.StatusCode()), nil).
			WithDetails(string(resp.Body()))
	}

	result, ok := resp.Result().(*embeddingResponse)
	if !ok || result == nil || len(result.Data) == 0 {
		return nil, errors.ErrEmbeddingCall("embedding接口响应为空", nil)
	}

	e.log.Debug("向量生成完成", logger.Fields{
		"dimension":   len(result.Data[0].Embedding),
		"tokens_used": result.Usage.TotalTokens,
	})
	return result.Data[0].Embedding, nil
}

// EmbedBatch 逐条生成向量，单条失败跳过
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, int) {
	vectors := make([][]float32, len(texts))
	failures := 0
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			e.log.WithError(err).Warn("单条向量化失败，已跳过")
			failures++
			continue
		}
		vectors[i] = vec
	}
	return vectors, failures
}
