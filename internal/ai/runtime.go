package ai

import "context"

// Runtime is implemented by every completion backend.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted by --provider.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// NeedsCredential reports whether a provider requires an API token.
func NeedsCredential(provider string) bool {
	return provider != ProviderOllama
}
