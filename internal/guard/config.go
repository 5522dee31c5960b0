package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/rowguard/internal/sanitize"
)

// Stages toggles individual pipeline stages. Disabling a stage removes
// its check entirely, which only makes sense for demonstration and
// comparison runs.
type Stages struct {
	VerifySQL      bool `yaml:"verify_sql"`
	SanitizeOutput bool `yaml:"sanitize_output"`
	Combined       bool `yaml:"combined"`
	OpenAnswers    bool `yaml:"open_answers"`
}

// Config holds all configurable pipeline policy parameters.
type Config struct {
	SensitiveFields []string `yaml:"sensitive_fields"`
	ViewableFields  []string `yaml:"viewable_fields"`
	RedactionToken  string   `yaml:"redaction_token"`
	Stages          Stages   `yaml:"stages"`
}

// DefaultConfig returns the built-in pipeline policy.
func DefaultConfig() *Config {
	return &Config{
		SensitiveFields: []string{"ssn", "phone_number", "address", "date_of_birth"},
		ViewableFields:  []string{"first_name", "last_name", "email", "address", "phone_number", "date_of_birth"},
		RedactionToken:  sanitize.RedactionToken,
		Stages: Stages{
			VerifySQL:      true,
			SanitizeOutput: true,
			Combined:       false,
			OpenAnswers:    true,
		},
	}
}

// LoadConfig loads pipeline policy from a YAML file.
// Empty path falls back to ~/.rowguard/policy.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads pipeline policy and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk so audit entries
// can pin the exact policy in force. When no file exists (defaults used),
// the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), emptyHash(), nil
		}
		path = filepath.Join(home, ".rowguard", "policy.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("failed to read policy config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse policy config: %w", err)
	}

	return cfg, hash, nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}
