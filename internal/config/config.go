package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"llm-gateway/internal/registry"
)

// Config is read once at startup by cmd and handed to constructors; nothing
// else reads the environment.
type Config struct {
	OpenAIAPIKey     string `koanf:"openai_api_key"`
	AnthropicAPIKey  string `koanf:"anthropic_api_key"`
	OpenAIModels     string `koanf:"openai_models"`
	AnthropicModels  string `koanf:"anthropic_models"`
	OpenAIBaseURL    string `koanf:"openai_base_url"`
	AnthropicBaseURL string `koanf:"anthropic_base_url"`
	SystemPrompt     string `koanf:"system_prompt"`
	FrontendURL      string `koanf:"frontend_url"`
	MaxTokens        int    `koanf:"max_tokens"`
	ListenAddr       string `koanf:"listen_addr"`
	ParamPrefix      string `koanf:"param_prefix"`
	LogLevel         string `koanf:"log_level"`
	LogFormat        string `koanf:"log_format"`
	LogFile          string `koanf:"log_file"`
	LambdaFunction   string `koanf:"aws_lambda_function_name"`
}

func defaults() map[string]any {
	return map[string]any{
		"max_tokens":  4096,
		"listen_addr": ":8000",
		"log_level":   "info",
		"log_format":  "json",
	}
}

// Load reads dotenvFiles (missing files are ignored) into the process
// environment, then layers the environment over the defaults.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// Registry builds the model registry from the two comma-separated lists.
func (c Config) Registry() *registry.Registry {
	return registry.New(registry.ParseList(c.OpenAIModels), registry.ParseList(c.AnthropicModels))
}

// RunningOnLambda reports whether the process was started by the Lambda runtime.
func (c Config) RunningOnLambda() bool {
	return c.LambdaFunction != ""
}
