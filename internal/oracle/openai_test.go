package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func completionsResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestOpenAICompleteRoundTrip(t *testing.T) {
	var gotSystem, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Temperature float64 `json:"temperature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(req.Messages))
		}
		gotSystem = req.Messages[0].Content
		gotUser = req.Messages[1].Content
		if req.Temperature != 0 {
			t.Errorf("temperature must be pinned to 0, got %v", req.Temperature)
		}
		w.Write([]byte(completionsResponse("  authorized: false\nreason: no  ")))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "", "test-model", time.Second)
	out, err := c.Complete(context.Background(), "you are a gate", "what's my address?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "authorized: false\nreason: no" {
		t.Errorf("unexpected completion: %q", out)
	}
	if gotSystem != "you are a gate" || gotUser != "what's my address?" {
		t.Errorf("messages not forwarded: system=%q user=%q", gotSystem, gotUser)
	}
}

func TestOpenAICompleteHTTPErrorIsCallError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "key", "m", time.Second)
	_, err := c.Complete(context.Background(), "s", "u")

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T: %v", err, err)
	}
	if callErr.Backend != "openai" {
		t.Errorf("backend = %q", callErr.Backend)
	}
}

func TestOpenAICompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "", "m", time.Second)
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAICompleteContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewOpenAIClient(srv.URL, "", "m", time.Second)
	var callErr *CallError
	if _, err := c.Complete(ctx, "s", "u"); !errors.As(err, &callErr) {
		t.Fatalf("cancelled context must surface as CallError, got %v", err)
	}
}

func TestResolveConfigDefaultsToOllama(t *testing.T) {
	t.Setenv("ROWGUARD_BACKEND", "")
	t.Setenv("ROWGUARD_API_URL", "")
	t.Setenv("ROWGUARD_API_KEY", "")
	t.Setenv("ROWGUARD_MODEL", "")
	t.Setenv("GROQ_API_KEY", "")

	cfg := ResolveConfig("", "", "")
	if cfg.Backend != "openai" || cfg.APIURL != defaultOllamaURL || cfg.Model != defaultModel {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestResolveConfigKeyImpliesGroq(t *testing.T) {
	t.Setenv("ROWGUARD_BACKEND", "")
	t.Setenv("ROWGUARD_API_URL", "")
	t.Setenv("ROWGUARD_API_KEY", "")
	t.Setenv("ROWGUARD_MODEL", "")
	t.Setenv("GROQ_API_KEY", "gsk_test")

	cfg := ResolveConfig("", "", "")
	if cfg.APIURL != defaultGroqURL || cfg.Model != defaultGroqModel {
		t.Errorf("key should imply Groq endpoint and model: %+v", cfg)
	}
}

func TestResolveConfigBedrock(t *testing.T) {
	t.Setenv("ROWGUARD_MODEL", "")
	cfg := ResolveConfig("bedrock", "", "")
	if cfg.Backend != "bedrock" || cfg.Model != defaultBedrockModel {
		t.Errorf("unexpected bedrock config: %+v", cfg)
	}
}
