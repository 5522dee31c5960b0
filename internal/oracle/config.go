package oracle

import (
	"context"
	"os"
	"strings"
	"time"
)

const (
	defaultOllamaURL = "http://localhost:11434/v1/chat/completions"
	defaultGroqURL   = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel     = "llama3.2"
	defaultGroqModel = "llama-3.1-8b-instant"

	defaultBedrockModel = "anthropic.claude-3-haiku-20240307-v1:0"
)

// Config holds resolved oracle backend configuration.
type Config struct {
	Backend string // "openai" or "bedrock"
	APIURL  string
	APIKey  string
	Model   string
	Region  string
	Timeout time.Duration
}

// ResolveConfig builds a Config from flags, environment, and defaults.
// Resolution order mirrors the flags-beat-env-beat-defaults convention:
//
//	backend: flag → ROWGUARD_BACKEND → "openai"
//	key:     flag → ROWGUARD_API_KEY → GROQ_API_KEY → empty
//	url:     flag → ROWGUARD_API_URL → Groq if a key is present → Ollama
//	model:   flag → ROWGUARD_MODEL → inferred from URL → llama3.2
func ResolveConfig(flagBackend, flagURL, flagModel string) Config {
	cfg := Config{Timeout: 30 * time.Second}

	cfg.Backend = firstNonEmpty(flagBackend, os.Getenv("ROWGUARD_BACKEND"), "openai")

	if cfg.Backend == "bedrock" {
		cfg.Region = os.Getenv("AWS_REGION")
		cfg.Model = firstNonEmpty(flagModel, os.Getenv("ROWGUARD_MODEL"), defaultBedrockModel)
		return cfg
	}

	cfg.APIKey = firstNonEmpty(os.Getenv("ROWGUARD_API_KEY"), os.Getenv("GROQ_API_KEY"))

	switch {
	case flagURL != "":
		cfg.APIURL = flagURL
	case os.Getenv("ROWGUARD_API_URL") != "":
		cfg.APIURL = os.Getenv("ROWGUARD_API_URL")
	case cfg.APIKey != "":
		// Key present but no explicit URL — assume Groq cloud.
		cfg.APIURL = defaultGroqURL
	default:
		cfg.APIURL = defaultOllamaURL
	}

	switch {
	case flagModel != "":
		cfg.Model = flagModel
	case os.Getenv("ROWGUARD_MODEL") != "":
		cfg.Model = os.Getenv("ROWGUARD_MODEL")
	case cfg.APIURL == defaultGroqURL:
		cfg.Model = defaultGroqModel
	default:
		cfg.Model = defaultModel
	}

	return cfg
}

// New constructs the oracle backend described by cfg.
func New(ctx context.Context, cfg Config) (Oracle, error) {
	if strings.EqualFold(cfg.Backend, "bedrock") {
		return NewBedrockClient(ctx, cfg.Region, cfg.Model)
	}
	return NewOpenAIClient(cfg.APIURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
