package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

func chatServer(t *testing.T, content string, seen *[]map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o","object":"model","owned_by":"openai"}]}`))
			return
		case "/chat/completions":
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %s", req.Model)
		}
		if seen != nil {
			*seen = req.Messages
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
}

func TestNewOpenAIGeneration_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIGeneration(domain.GenerationSettings{Provider: domain.AIProviderOpenAI})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNewOpenAIGeneration_Defaults(t *testing.T) {
	g, err := NewOpenAIGeneration(domain.GenerationSettings{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Model() != DefaultChatModel {
		t.Errorf("expected model %s, got %s", DefaultChatModel, g.Model())
	}
	if g.maxTokens != DefaultMaxTokens {
		t.Errorf("expected max tokens %d, got %d", DefaultMaxTokens, g.maxTokens)
	}
	if g.Name() != "openai" {
		t.Errorf("expected name openai, got %s", g.Name())
	}
}

func TestOpenAIGeneration_Generate(t *testing.T) {
	var messages []map[string]string
	server := chatServer(t, "  VPN is required.  ", &messages)
	defer server.Close()

	g, err := NewOpenAIGeneration(domain.GenerationSettings{APIKey: "sk-test", BaseURL: server.URL, Temperature: 0.3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := g.Generate(context.Background(), domain.Prompt{
		Task:   domain.TaskAnalyze,
		System: "You are an IT Policy Expert.",
		User:   "Question: remote work?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "VPN is required." {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if len(messages) != 2 || messages[0]["role"] != "system" || messages[1]["role"] != "user" {
		t.Errorf("unexpected messages: %v", messages)
	}
}

func TestOpenAIGeneration_Generate_EmptyContent(t *testing.T) {
	server := chatServer(t, "   ", nil)
	defer server.Close()

	g, err := NewOpenAIGeneration(domain.GenerationSettings{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Generate(context.Background(), domain.Prompt{User: "q"}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestOpenAIGeneration_Generate_APIError(t *testing.T) {
	server := errorServer(http.StatusServiceUnavailable, `{"error":{"message":"overloaded","type":"server_error"}}`)
	defer server.Close()

	g, err := NewOpenAIGeneration(domain.GenerationSettings{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = g.Generate(context.Background(), domain.Prompt{User: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !isRetriable(err) {
		t.Errorf("expected 503 to be classified retriable: %v", err)
	}
}

func TestOpenAIGeneration_Generate_ProxyError(t *testing.T) {
	server := errorServer(http.StatusBadGateway, `{"error": "upstream timeout"}`)
	defer server.Close()

	g, err := NewOpenAIGeneration(domain.GenerationSettings{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = g.Generate(context.Background(), domain.Prompt{User: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !isRetriable(err) {
		t.Errorf("expected 502 with a non-OpenAI body to be retriable: %v", err)
	}
}

func TestOpenAIGeneration_Ping(t *testing.T) {
	server := chatServer(t, "", nil)
	defer server.Close()

	g, err := NewOpenAIGeneration(domain.GenerationSettings{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Ping(context.Background()); err != nil {
		t.Errorf("expected ping to succeed, got %v", err)
	}
	if err := g.Close(); err != nil {
		t.Errorf("expected no error from Close, got %v", err)
	}
}
