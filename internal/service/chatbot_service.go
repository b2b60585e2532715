package service

import (
	"context"
	"errors"
	"time"

	"citizen-portal-be/internal/dto"
	"citizen-portal-be/internal/pkg/logger"
	"citizen-portal-be/internal/pkg/metrics"
	"citizen-portal-be/internal/pkg/serverutils"
	"citizen-portal-be/pkg/events"
	"citizen-portal-be/pkg/llm"
	"citizen-portal-be/pkg/rag/history"
	"citizen-portal-be/pkg/rag/prompt"
	"citizen-portal-be/pkg/rag/selector"
	"citizen-portal-be/pkg/ratelimit"
	"citizen-portal-be/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	chatModule = "CHAT"

	// UsageTopic is the in-process topic carrying chat usage events.
	UsageTopic = "chat.usage"

	// upstreamRetryAfter is suggested when the provider itself rate limits us.
	upstreamRetryAfter = 60 * time.Second

	defaultMaxHistoryEntries = 20
	defaultCompletionTimeout = 25 * time.Second
)

// Client-facing messages. None of them carry upstream detail.
const (
	msgThrottled     = "Too many requests. Please wait a minute before trying again."
	msgQuotaExceeded = "The assistant is receiving many questions right now. Please try again shortly."
	msgUpstreamLimit = "The assistant is temporarily rate limited. Please try again in a minute."
	msgUnavailable   = "The assistant is not available right now. Please use the contact details on the department pages."
	msgConfiguration = "The assistant is misconfigured. Please try again later."
	msgFailed        = "The assistant could not answer right now. Please try again later."
)

// IChatbotService runs the citizen chat pipeline.
type IChatbotService interface {
	SendChat(ctx context.Context, clientIP string, request *dto.ChatRequest) (*dto.ChatResponse, error)
	Status(ctx context.Context) *dto.StatusResponse
}

// ChatSettings are the tunables of the pipeline.
type ChatSettings struct {
	MaxHistoryEntries int
	CompletionTimeout time.Duration
	MaxOutputTokens   int
	Temperature       float64
	TopP              float64
	TopK              int
}

type chatbotService struct {
	completer llm.Completer // nil when no provider is configured
	quota     *ratelimit.QuotaTracker
	throttle  *ratelimit.ClientThrottle
	assembler *prompt.Assembler
	publisher IPublisherService
	metrics   *metrics.ChatMetrics
	logger    logger.ILogger
	settings  ChatSettings
}

func NewChatbotService(
	completer llm.Completer,
	quota *ratelimit.QuotaTracker,
	throttle *ratelimit.ClientThrottle,
	assembler *prompt.Assembler,
	publisher IPublisherService,
	chatMetrics *metrics.ChatMetrics,
	sysLogger logger.ILogger,
	settings ChatSettings,
) IChatbotService {
	if settings.MaxHistoryEntries <= 0 {
		settings.MaxHistoryEntries = defaultMaxHistoryEntries
	}
	if settings.CompletionTimeout <= 0 {
		settings.CompletionTimeout = defaultCompletionTimeout
	}

	return &chatbotService{
		completer: completer,
		quota:     quota,
		throttle:  throttle,
		assembler: assembler,
		publisher: publisher,
		metrics:   chatMetrics,
		logger:    sysLogger,
		settings:  settings,
	}
}

// SendChat answers one citizen question. Every early exit is a *dto.ChatError.
func (s *chatbotService) SendChat(ctx context.Context, clientIP string, request *dto.ChatRequest) (*dto.ChatResponse, error) {
	requestID := uuid.NewString()
	started := time.Now()

	ctx, span := otel.Tracer("chatbot-service").Start(ctx, "SendChat")
	defer span.End()
	span.SetAttributes(attribute.String("chat.request_id", requestID))

	res, usage, err := s.run(ctx, clientIP, request)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		var chatErr *dto.ChatError
		if errors.As(err, &chatErr) {
			outcome = string(chatErr.Kind)
		} else {
			outcome = string(dto.ErrCompletionFailed)
		}
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("chat.outcome", outcome))

	s.finish(ctx, requestID, clientIP, outcome, usage, time.Since(started), err)
	return res, err
}

func (s *chatbotService) run(ctx context.Context, clientIP string, request *dto.ChatRequest) (*dto.ChatResponse, llm.TokenUsage, error) {
	var usage llm.TokenUsage

	request.Message = utils.SanitizeInput(request.Message)
	if err := serverutils.ValidateRequest(request); err != nil {
		return nil, usage, dto.NewInvalidInputError(err.Error())
	}
	if len(request.History) > s.settings.MaxHistoryEntries {
		request.History = request.History[len(request.History)-s.settings.MaxHistoryEntries:]
	}

	if err := s.throttle.Allow(ctx, clientIP); err != nil {
		var throttled *ratelimit.ThrottledError
		if errors.As(err, &throttled) {
			return nil, usage, &dto.ChatError{
				Kind:       dto.ErrClientThrottled,
				Message:    msgThrottled,
				RetryAfter: throttled.RetryAfter,
				Cause:      err,
			}
		}
		s.logger.Warn(chatModule, "Client throttle store failed, letting request through", map[string]interface{}{
			"client_ip": clientIP,
			"error":     err.Error(),
		})
	}

	if s.completer == nil {
		return nil, usage, &dto.ChatError{Kind: dto.ErrServiceUnavailable, Message: msgUnavailable}
	}

	selection := selector.Empty()
	if len(request.DepartmentContext) > 0 {
		selection = selector.Select(request.Message, request.DepartmentContext)
	}
	recent := history.Format(request.History)

	if err := s.quota.CheckAndConsume(); err != nil {
		var exceeded *ratelimit.QuotaExceededError
		retryAfter := upstreamRetryAfter
		if errors.As(err, &exceeded) {
			retryAfter = exceeded.ResetIn
		}
		return nil, usage, &dto.ChatError{
			Kind:       dto.ErrQuotaExceeded,
			Message:    msgQuotaExceeded,
			RetryAfter: retryAfter,
			Cause:      err,
		}
	}

	text := s.assembler.Assemble(request.Message, selection, recent)

	completion, err := s.complete(ctx, text)
	if err != nil {
		return nil, usage, s.completionError(err)
	}
	usage = completion.Usage

	return &dto.ChatResponse{
		Success:    true,
		Response:   completion.Text,
		TokensUsed: completion.Usage,
		RateLimit:  s.rateLimitStatus(),
	}, usage, nil
}

func (s *chatbotService) complete(ctx context.Context, text string) (*llm.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.CompletionTimeout)
	defer cancel()

	opts := []llm.Option{}
	if s.settings.MaxOutputTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(s.settings.MaxOutputTokens))
	}
	if s.settings.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(s.settings.Temperature))
	}
	if s.settings.TopP > 0 {
		opts = append(opts, llm.WithTopP(s.settings.TopP))
	}
	if s.settings.TopK > 0 {
		opts = append(opts, llm.WithTopK(s.settings.TopK))
	}

	started := time.Now()
	completion, err := s.completer.Complete(ctx, text, opts...)

	status := "ok"
	if err != nil {
		status = llm.KindOf(err).String()
	}
	s.metrics.ObserveCompletion(s.completer.Model(), status, time.Since(started))

	return completion, err
}

func (s *chatbotService) completionError(err error) *dto.ChatError {
	switch llm.KindOf(err) {
	case llm.KindRateLimited:
		return &dto.ChatError{
			Kind:       dto.ErrUpstreamRateLimit,
			Message:    msgUpstreamLimit,
			RetryAfter: upstreamRetryAfter,
			Cause:      err,
		}
	case llm.KindConfiguration:
		return &dto.ChatError{Kind: dto.ErrConfiguration, Message: msgConfiguration, Cause: err}
	default:
		return &dto.ChatError{Kind: dto.ErrCompletionFailed, Message: msgFailed, Cause: err}
	}
}

func (s *chatbotService) finish(
	ctx context.Context,
	requestID, clientIP, outcome string,
	usage llm.TokenUsage,
	latency time.Duration,
	err error,
) {
	s.metrics.RecordOutcome(outcome)
	s.metrics.SetQuotaRemaining(s.quota.Status().Remaining)
	if err == nil {
		s.metrics.RecordTokens(usage.Prompt, usage.Completion)
	}

	details := map[string]interface{}{
		"request_id": requestID,
		"client_ip":  clientIP,
		"outcome":    outcome,
		"latency_ms": latency.Milliseconds(),
	}

	var chatErr *dto.ChatError
	switch {
	case err == nil:
		details["total_tokens"] = usage.Total
		s.logger.Info(chatModule, "Chat answered", details)
	case errors.As(err, &chatErr) && chatErr.Kind == dto.ErrConfiguration:
		details["error"] = llm.Cause(err)
		s.logger.Error(chatModule, "Completion provider rejected the credential, operator action required", details)
	case errors.As(err, &chatErr) && chatErr.Kind == dto.ErrCompletionFailed:
		details["error"] = llm.Cause(err)
		s.logger.Warn(chatModule, "Completion failed", details)
	default:
		s.logger.Info(chatModule, "Chat rejected", details)
	}

	if s.publisher == nil {
		return
	}

	model := ""
	if s.completer != nil {
		model = s.completer.Model()
	}
	evt := events.NewChatUsageEvent(events.ChatUsage{
		RequestID:        requestID,
		Outcome:          outcome,
		Model:            model,
		PromptTokens:     usage.Prompt,
		CompletionTokens: usage.Completion,
		Latency:          latency,
	}, time.Now())

	if pubErr := s.publisher.Publish(context.WithoutCancel(ctx), evt); pubErr != nil {
		s.logger.Warn(chatModule, "Failed to publish usage event", map[string]interface{}{
			"request_id": requestID,
			"error":      pubErr.Error(),
		})
	}
}

// Status reports availability and quota without consuming anything.
func (s *chatbotService) Status(_ context.Context) *dto.StatusResponse {
	res := &dto.StatusResponse{
		Available: s.completer != nil,
		RateLimit: s.rateLimitStatus(),
	}
	if s.completer != nil {
		res.Model = s.completer.Model()
	}
	return res
}

func (s *chatbotService) rateLimitStatus() dto.RateLimitStatus {
	st := s.quota.Status()
	return dto.RateLimitStatus{
		RequestsUsed:      st.Used,
		RequestsRemaining: st.Remaining,
		WindowResetIn:     st.ResetInSeconds,
	}
}
