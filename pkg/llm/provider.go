package llm

import (
	"context"
)

// Generation defaults for citizen-facing answers.
const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
	DefaultTopK        = 40
)

// TokenUsage is the provider-reported token accounting for one completion.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Completion is the text produced for one prompt.
type Completion struct {
	Text  string
	Usage TokenUsage
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
	Model       string // Override default model
}

// DefaultOptions returns the sampling settings used when no option overrides them.
func DefaultOptions() *Options {
	return &Options{
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		TopK:        DefaultTopK,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Apply runs opts over a copy of the defaults.
func Apply(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithTopP(p float64) Option {
	return func(o *Options) {
		o.TopP = p
	}
}

func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Completer is the single outbound call to a language-model provider.
// Implementations must return *Error for every failure so callers never see raw provider errors.
type Completer interface {
	Complete(ctx context.Context, prompt string, options ...Option) (*Completion, error)

	// Model names the default model, reported by the status endpoint.
	Model() string
}
