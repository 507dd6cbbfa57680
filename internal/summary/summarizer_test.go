package summary

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newChatCompletionServer はChat Completions APIを模倣したテストサーバーを起動する。
// 受信したリクエストボディはcaptureに格納される。
func newChatCompletionServer(t *testing.T, responseContent string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("missing bearer authorization, got %q", auth)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read request body: %v", err)
		}
		if capture != nil {
			if err := json.Unmarshal(body, capture); err != nil {
				t.Fatalf("failed to decode request body: %v", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-3.5-turbo",
			"choices": []map[string]any{
				{
					"index": 0,
					"message": map[string]any{
						"role":    "assistant",
						"content": responseContent,
					},
					"finish_reason": "stop",
				},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("failed to encode response: %v", err)
		}
	}))
}

func newTestSummarizer(t *testing.T, ts *httptest.Server, maxPerMinute int) *OpenAISummarizer {
	t.Helper()
	s, err := NewOpenAISummarizer(Config{
		APIKey:       "test-key",
		BaseURL:      ts.URL,
		HTTPClient:   ts.Client(),
		MaxPerMinute: maxPerMinute,
	})
	if err != nil {
		t.Fatalf("NewOpenAISummarizer failed: %v", err)
	}
	return s
}

func TestNewOpenAISummarizer_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAISummarizer(Config{})
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
}

func TestSummarize_ReturnsContent(t *testing.T) {
	var captured map[string]any
	ts := newChatCompletionServer(t, "二人の兄弟の物語。", &captured)
	defer ts.Close()

	s := newTestSummarizer(t, ts, 0)

	got, err := s.Summarize(context.Background(), "昔々あるところに二人の兄弟が住んでいた。")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if got != "二人の兄弟の物語。" {
		t.Errorf("summary = %q, want %q", got, "二人の兄弟の物語。")
	}

	if model := captured["model"]; model != "gpt-3.5-turbo" {
		t.Errorf("model = %v, want gpt-3.5-turbo", model)
	}
	if mt := captured["max_tokens"]; mt != float64(maxCompletionTokens) {
		t.Errorf("max_tokens = %v, want %d", mt, maxCompletionTokens)
	}
	if temp := captured["temperature"]; temp != temperature {
		t.Errorf("temperature = %v, want %v", temp, temperature)
	}

	messages, ok := captured["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %v, want system + user", captured["messages"])
	}
	system := messages[0].(map[string]any)
	if system["role"] != "system" {
		t.Errorf("first message role = %v, want system", system["role"])
	}
	user := messages[1].(map[string]any)
	if content, _ := user["content"].(string); !strings.Contains(content, "二人の兄弟") {
		t.Errorf("user message should contain the book content, got %q", content)
	}
}

func TestSummarize_TruncatesLongContent(t *testing.T) {
	var captured map[string]any
	ts := newChatCompletionServer(t, "summary", &captured)
	defer ts.Close()

	s := newTestSummarizer(t, ts, 0)

	// 上限を超える本文。末尾に番兵を置き、送信されないことを確認する。
	content := strings.Repeat("あ", maxContentRunes) + "SENTINEL"
	if _, err := s.Summarize(context.Background(), content); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	messages := captured["messages"].([]any)
	user := messages[1].(map[string]any)
	userContent, _ := user["content"].(string)
	if strings.Contains(userContent, "SENTINEL") {
		t.Error("content beyond the limit should be truncated before sending")
	}
	if !strings.Contains(userContent, "あ") {
		t.Error("truncated content should still be present")
	}
}

func TestSummarize_NoChoices_Fails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"chatcmpl-test","object":"chat.completion","choices":[]}`)
	}))
	defer ts.Close()

	s := newTestSummarizer(t, ts, 0)

	if _, err := s.Summarize(context.Background(), "content"); err == nil {
		t.Fatal("expected error for empty choices, got nil")
	}
}

func TestSummarize_ServerError_Fails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	s, err := NewOpenAISummarizer(Config{
		APIKey:     "test-key",
		BaseURL:    ts.URL,
		HTTPClient: ts.Client(),
	})
	if err != nil {
		t.Fatalf("NewOpenAISummarizer failed: %v", err)
	}

	if _, err := s.Summarize(context.Background(), "content"); err == nil {
		t.Fatal("expected error for 429 response, got nil")
	}
}

// TestSummarize_RateLimiterRespectsContext はレートリミッタ待機中の
// コンテキストキャンセルで要約が中断されることをテストする。
func TestSummarize_RateLimiterRespectsContext(t *testing.T) {
	ts := newChatCompletionServer(t, "summary", nil)
	defer ts.Close()

	// 分あたり1件: 最初の1件でバーストを消費する
	s := newTestSummarizer(t, ts, 1)

	if _, err := s.Summarize(context.Background(), "first"); err != nil {
		t.Fatalf("first Summarize failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Summarize(ctx, "second"); err == nil {
		t.Fatal("expected error when context is cancelled during rate limit wait")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name, input string
		n           int
		want        string
	}{
		{"上限未満", "abc", 5, "abc"},
		{"ちょうど上限", "abcde", 5, "abcde"},
		{"上限超過", "abcdef", 5, "abcde"},
		{"マルチバイト文字", "あいうえおか", 5, "あいうえお"},
		{"空文字列", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateRunes(tt.input, tt.n); got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
			}
		})
	}
}
