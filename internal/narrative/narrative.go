// Package narrative turns an analysis payload into prose through a
// completion runtime.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/autolysis/internal/ai"
	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/utils"
)

// Placeholder replaces the narrative whenever generation fails.
const Placeholder = "Narrative generation failed."

// DefaultTimeout bounds a single narrative request.
const DefaultTimeout = 30 * time.Second

// promptReserve is the token allowance kept for the fixed prompt wording.
const promptReserve = 256

// Config holds everything a Service needs; nothing is read from the environment.
type Config struct {
	Provider    string
	Credential  string
	Model       string
	BaseURL     string
	OllamaHost  string
	Timeout     time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxTokens   int
	Temperature float64
}

// Result describes a completed narrative call.
type Result struct {
	Text      string
	Usage     ai.Usage
	CostUSD   float64
	Truncated bool
}

// Service generates narratives with one runtime call per request.
type Service struct {
	rt  ai.Runtime
	cfg Config
	log *slog.Logger
}

// New builds the runtime for cfg.Provider. Hosted providers require a
// credential.
func New(cfg Config, log *slog.Logger) (*Service, error) {
	if cfg.Provider == "" {
		cfg.Provider = ai.ProviderOpenAI
	}
	if ai.NeedsCredential(cfg.Provider) && cfg.Credential == "" {
		return nil, fmt.Errorf("provider %s: %w", cfg.Provider, ai.ErrMissingCredential)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rt, err := ai.NewRuntime(cfg.Provider, ai.RuntimeConfig{
		HTTPTimeout: timeout,
		RetryMax:    cfg.RetryMax,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		APIKey:      cfg.Credential,
		BaseURL:     cfg.BaseURL,
		Host:        cfg.OllamaHost,
	})
	if err != nil {
		return nil, err
	}
	return NewWithRuntime(rt, cfg, log), nil
}

// NewWithRuntime wraps an existing runtime.
func NewWithRuntime(rt ai.Runtime, cfg Config, log *slog.Logger) *Service {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{rt: rt, cfg: cfg, log: log}
}

// Prompt renders the request text for an analysis summary and its images.
func Prompt(summary string, images []string) string {
	return fmt.Sprintf("You are an insightful data analyst. Based on the analysis summary: %s, "+
		"and visualizations: %s, provide a concise and engaging narrative. "+
		"Highlight key patterns, correlations, and any insights derived from the data.",
		summary, strings.Join(images, ", "))
}

// Generate requests a narrative for p. On any failure it returns Placeholder
// as the text together with the error, so callers can always write a report.
func (s *Service) Generate(ctx context.Context, p *analysis.Payload) (Result, error) {
	res := Result{Text: Placeholder}
	summary := p.Text()
	if mi, ok := ai.LookupModel(s.cfg.Model); ok && mi.ContextTokens > 0 {
		budget := mi.ContextTokens - s.cfg.MaxTokens - promptReserve
		if budget > 0 && utils.CountTokens(summary) > budget {
			summary = utils.TruncateToTokenLimit(summary, budget)
			res.Truncated = true
			s.log.Warn("analysis summary truncated to fit model context", "model", s.cfg.Model, "budget_tokens", budget)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	req := ai.GenerateRequest{
		Model:       s.cfg.Model,
		Messages:    []ai.Message{{Role: "user", Content: Prompt(summary, p.Artifacts)}},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
	start := time.Now()
	resp, err := s.rt.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("narrative timed out after %s: %w", s.cfg.Timeout, err)
		}
		return res, fmt.Errorf("generate narrative: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return res, fmt.Errorf("generate narrative: %w", ai.ErrEmptyCompletion)
	}
	res.Text = text
	res.Usage = resp.Usage
	if cost, ok := ai.EstimateCostUSD(s.cfg.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); ok {
		res.CostUSD = cost
	}
	s.log.Info("narrative generated",
		"model", s.cfg.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"request_id", resp.RequestID,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}
