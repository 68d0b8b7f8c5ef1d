package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// CredentialEnv is the environment variable holding the proxy token.
const CredentialEnv = "AIPROXY_TOKEN"

// Global configuration structure.
type Global struct {
	APIToken    string  `mapstructure:"api_token" json:"api_token,omitempty" yaml:"api_token,omitempty"`
	Provider    string  `mapstructure:"provider" json:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" json:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" json:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" json:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" json:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" json:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" json:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host" yaml:"ollama_host"`

	// Analysis
	MaxCategories int   `mapstructure:"max_categories" json:"max_categories" yaml:"max_categories"`
	ClusterK      int   `mapstructure:"cluster_k" json:"cluster_k" yaml:"cluster_k"`
	ClusterSeed   int64 `mapstructure:"cluster_seed" json:"cluster_seed" yaml:"cluster_seed"`
	Boxplots      bool  `mapstructure:"boxplots" json:"boxplots" yaml:"boxplots"`
	HTMLReport    bool  `mapstructure:"html_report" json:"html_report" yaml:"html_report"`

	LogFormat string `mapstructure:"log_format" json:"log_format" yaml:"log_format"`
}

// Error reports a missing or invalid configuration value.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is not set", e.Key)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// ErrCredentialMissing is matched by every missing-credential *Error.
var ErrCredentialMissing = errors.New("credential missing")

// Is lets errors.Is(err, ErrCredentialMissing) match credential errors.
func (e *Error) Is(target error) bool {
	return target == ErrCredentialMissing && e.Key == CredentialEnv
}

// Credential returns the API token required by provider, or *Error when the
// provider needs one and none is configured. Ollama needs none.
func (g *Global) Credential(provider string) (string, error) {
	if provider == "ollama" {
		return "", nil
	}
	tok := strings.TrimSpace(g.APIToken)
	if tok == "" {
		return "", &Error{Key: CredentialEnv}
	}
	return tok, nil
}

// Dir returns ~/.autolysis.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".autolysis"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.autolysis/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from .env, environment, config file and defaults.
// Precedence: env > config file > defaults; flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AUTOLYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_token", "AUTOLYSIS_API_TOKEN", CredentialEnv)

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("base_url", "")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("max_categories", 20)
	v.SetDefault("cluster_k", 3)
	v.SetDefault("cluster_seed", 42)
	v.SetDefault("boxplots", false)
	v.SetDefault("html_report", false)
	v.SetDefault("log_format", "text")
}

// Set assigns one key by its mapstructure name, parsing the value for the
// field's type.
func (g *Global) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	parseInt := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return &Error{Key: key, Reason: fmt.Sprintf("expected integer, got %q", value)}
		}
		*dst = n
		return nil
	}
	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &Error{Key: key, Reason: fmt.Sprintf("expected true or false, got %q", value)}
		}
		*dst = b
		return nil
	}
	switch key {
	case "api_token":
		g.APIToken = value
	case "provider":
		g.Provider = value
	case "model":
		g.Model = value
	case "base_url":
		g.BaseURL = value
	case "ollama_host":
		g.OllamaHost = value
	case "log_format":
		if value != "text" && value != "json" {
			return &Error{Key: key, Reason: "must be text or json"}
		}
		g.LogFormat = value
	case "max_tokens":
		return parseInt(&g.MaxTokens)
	case "http_timeout_sec":
		return parseInt(&g.HTTPTimeoutSec)
	case "retry_max_attempts":
		return parseInt(&g.RetryMaxAttempts)
	case "retry_base_delay_ms":
		return parseInt(&g.RetryBaseDelayMs)
	case "retry_max_delay_ms":
		return parseInt(&g.RetryMaxDelayMs)
	case "max_categories":
		return parseInt(&g.MaxCategories)
	case "cluster_k":
		return parseInt(&g.ClusterK)
	case "cluster_seed":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return &Error{Key: key, Reason: fmt.Sprintf("expected integer, got %q", value)}
		}
		g.ClusterSeed = n
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return &Error{Key: key, Reason: fmt.Sprintf("expected number, got %q", value)}
		}
		g.Temperature = f
	case "boxplots":
		return parseBool(&g.Boxplots)
	case "html_report":
		return parseBool(&g.HTMLReport)
	default:
		return &Error{Key: key, Reason: "unknown key"}
	}
	return nil
}

// Redacted returns a copy safe to print.
func (g *Global) Redacted() Global {
	c := *g
	if c.APIToken != "" {
		c.APIToken = "****"
	}
	return c
}
