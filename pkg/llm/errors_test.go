package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHidesProviderText(t *testing.T) {
	cause := errors.New(`{"error":{"message":"API key not valid. Please pass a valid API key."}}`)
	err := NewError("gemini", KindConfiguration, cause)

	assert.NotContains(t, err.Error(), "API key not valid")
	assert.Equal(t, cause.Error(), Cause(err))
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"rate limited", NewError("gemini", KindRateLimited, nil), KindRateLimited},
		{"configuration", NewError("gemini", KindConfiguration, nil), KindConfiguration},
		{"wrapped", fmt.Errorf("pipeline: %w", NewError("ollama", KindRateLimited, nil)), KindRateLimited},
		{"plain error", context.DeadlineExceeded, KindFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestApplyOptions(t *testing.T) {
	o := Apply()
	assert.Equal(t, DefaultMaxTokens, o.MaxTokens)
	assert.Equal(t, DefaultTemperature, o.Temperature)
	assert.Equal(t, DefaultTopP, o.TopP)
	assert.Equal(t, DefaultTopK, o.TopK)

	o = Apply(WithTemperature(0.2), WithMaxTokens(64), WithTopK(5), WithTopP(0.5), WithModel("m"))
	assert.Equal(t, &Options{Temperature: 0.2, TopP: 0.5, TopK: 5, MaxTokens: 64, Model: "m"}, o)
}
