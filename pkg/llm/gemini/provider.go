package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"citizen-portal-be/pkg/llm"

	"google.golang.org/genai"
)

const providerName = "gemini"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// Ensure GeminiProvider implements Completer
var _ llm.Completer = &GeminiProvider{}

// NewGeminiProvider creates a provider. baseURL is only set by tests.
func NewGeminiProvider(ctx context.Context, apiKey, model, baseURL string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, llm.ErrNotConfigured
	}
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Model() string {
	return p.model
}

func (p *GeminiProvider) Complete(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Completion, error) {
	options := llm.Apply(opts...)

	model := p.model
	if options.Model != "" {
		model = options.Model
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(options.Temperature)),
		TopP:            genai.Ptr(float32(options.TopP)),
		TopK:            genai.Ptr(float32(options.TopK)),
		MaxOutputTokens: int32(options.MaxTokens),
		SafetySettings:  SafetySettings(),
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return nil, llm.NewError(providerName, Classify(err), err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, llm.NewError(providerName, llm.KindFailed, err)
	}

	completion := &llm.Completion{Text: text}
	if u := resp.UsageMetadata; u != nil {
		completion.Usage = llm.TokenUsage{
			Prompt:     int(u.PromptTokenCount),
			Completion: int(u.CandidatesTokenCount),
			Total:      int(u.TotalTokenCount),
		}
	}
	return completion, nil
}

// SafetySettings blocks medium-and-above harm in every category the portal cares about.
func SafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, len(categories))
	for i, c := range categories {
		settings[i] = &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		}
	}
	return settings
}

// Classify maps an SDK error to a failure kind using the structured status only.
func Classify(err error) llm.ErrorKind {
	apiErr, ok := asAPIError(err)
	if !ok {
		return llm.KindFailed
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests, apiErr.Status == "RESOURCE_EXHAUSTED":
		return llm.KindRateLimited
	case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden,
		apiErr.Status == "UNAUTHENTICATED", apiErr.Status == "PERMISSION_DENIED":
		return llm.KindConfiguration
	case hasCredentialReason(apiErr.Details):
		return llm.KindConfiguration
	default:
		return llm.KindFailed
	}
}

func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

// hasCredentialReason looks for a google.rpc.ErrorInfo detail naming a key problem.
func hasCredentialReason(details []map[string]any) bool {
	for _, d := range details {
		reason, _ := d["reason"].(string)
		switch reason {
		case "API_KEY_INVALID", "API_KEY_EXPIRED", "API_KEY_SERVICE_BLOCKED":
			return true
		}
	}
	return false
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("empty candidate, finish reason %v", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("empty completion, finish reason %v", cand.FinishReason)
	}
	return text, nil
}
