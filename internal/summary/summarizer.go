// Package summary はOpenAI APIを利用した書籍要約機能を提供する。
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// 要約リクエストのパラメータ。
const (
	// maxContentRunes はAPIに送信する本文の最大文字数。
	// トークン上限超過を避けるため、超過分は切り詰める。
	maxContentRunes = 15000
	// maxCompletionTokens は要約の最大トークン数。
	maxCompletionTokens = 1000
	// temperature は生成のランダム性。
	temperature = 0.5
)

// systemPrompt は要約アシスタントの役割を定義する。
const systemPrompt = "You are a helpful assistant that summarizes books concisely."

// userPromptPrefix は本文に前置する要約指示。
const userPromptPrefix = "Please provide a comprehensive summary of the following book content, " +
	"highlighting key themes, major plot points, and important insights. " +
	"Keep the summary concise but informative:\n\n"

// Config はOpenAISummarizerの設定を保持する。
type Config struct {
	// APIKey はOpenAIのAPIキー（必須）。
	APIKey string
	// BaseURL はAPIのベースURL。空の場合はOpenAIの既定エンドポイントを使用する。
	// Azure OpenAIや互換APIへの差し替えに使用できる。
	BaseURL string
	// Model は使用するモデル。空の場合はgpt-3.5-turbo。
	Model string
	// HTTPClient は送信に使用するHTTPクライアント。
	// SSRF防止付きクライアントを注入すること。nilの場合は標準クライアント。
	HTTPClient *http.Client
	// MaxPerMinute は外向きリクエストの分あたり上限。0以下の場合は制限なし。
	MaxPerMinute int
}

// OpenAISummarizer はOpenAIのChat Completions APIで書籍本文を要約する。
// 外向きリクエストはレートリミッタで制限される。
type OpenAISummarizer struct {
	client  openai.Client
	model   string
	limiter *rate.Limiter
}

// NewOpenAISummarizer はOpenAISummarizerの新しいインスタンスを生成する。
func NewOpenAISummarizer(cfg Config) (*OpenAISummarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT3_5Turbo
	}

	var limiter *rate.Limiter
	if cfg.MaxPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxPerMinute)), cfg.MaxPerMinute)
	}

	return &OpenAISummarizer{
		client:  openai.NewClient(opts...),
		model:   model,
		limiter: limiter,
	}, nil
}

// Summarize は書籍本文の要約を生成する。
// 本文はmaxContentRunes文字に切り詰めてから送信される。
// レートリミッタの待機はctxのキャンセルで中断される。
func (s *OpenAISummarizer) Summarize(ctx context.Context, content string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("summary rate limit wait: %w", err)
		}
	}

	truncated := truncateRunes(content, maxContentRunes)

	start := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPromptPrefix + truncated),
		},
		MaxTokens:   openai.Int(maxCompletionTokens),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}

	slog.Debug("summary generated",
		slog.String("model", s.model),
		slog.Int("content_runes", len([]rune(truncated))),
		slog.Duration("elapsed", time.Since(start)),
	)

	return text, nil
}

// truncateRunes はsをマルチバイト文字の途中で切らずに最大n文字に切り詰める。
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
