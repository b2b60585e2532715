package bootstrap

import (
	"context"
	"errors"
	"log"

	"citizen-portal-be/internal/config"
	"citizen-portal-be/internal/controller"
	"citizen-portal-be/internal/pkg/logger"
	"citizen-portal-be/internal/pkg/metrics"
	"citizen-portal-be/internal/service"
	"citizen-portal-be/pkg/llm"
	"citizen-portal-be/pkg/llm/factory"
	"citizen-portal-be/pkg/rag/prompt"
	"citizen-portal-be/pkg/ratelimit"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController
	HealthController  controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Metrics *metrics.ChatMetrics

	closers []func() error
}

func NewContainer(ctx context.Context, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	usageLogger := logger.NewIsolatedLogger(cfg.App.UsageLogFilePath)
	chatMetrics := metrics.NewChatMetrics()

	c := &Container{Metrics: chatMetrics}
	// Sync on a console core reports EINVAL on most terminals, so its error is dropped.
	c.closers = append(c.closers, func() error {
		_ = sysLogger.Sync()
		_ = usageLogger.Sync()
		return nil
	})

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	c.closers = append(c.closers, pubSub.Close)

	// 3. Rate limiting
	quota := ratelimit.NewQuotaTracker(cfg.Limits.QuotaCeiling, cfg.Limits.QuotaWindow)
	throttle := ratelimit.NewClientThrottle(
		newThrottleStore(cfg, sysLogger, c),
		cfg.Limits.ClientLimit,
		cfg.Limits.ClientWindow,
	)

	// 4. Completion provider
	completer := newCompleter(ctx, cfg, sysLogger)

	// 5. Services
	publisherService := service.NewPublisherService(service.UsageTopic, pubSub)
	chatbotService := service.NewChatbotService(
		completer,
		quota,
		throttle,
		prompt.NewAssembler(cfg.App.PortalName, cfg.Ai.PromptMaxChars),
		publisherService,
		chatMetrics,
		sysLogger,
		service.ChatSettings{
			MaxHistoryEntries: cfg.Limits.MaxHistoryEntries,
			CompletionTimeout: cfg.Ai.CompletionTimeout,
			MaxOutputTokens:   cfg.Ai.MaxOutputTokens,
			Temperature:       cfg.Ai.Temperature,
			TopP:              cfg.Ai.TopP,
			TopK:              cfg.Ai.TopK,
		},
	)
	c.ConsumerService = service.NewConsumerService(pubSub, service.UsageTopic, usageLogger, sysLogger)

	// 6. Controllers
	c.ChatbotController = controller.NewChatbotController(chatbotService)
	c.HealthController = controller.NewHealthController(cfg.App.ServiceName)

	return c
}

// Close releases the event bus, the Redis client and flushes the loggers.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newThrottleStore(cfg *config.Config, sysLogger logger.ILogger, c *Container) ratelimit.ThrottleStore {
	if cfg.App.RedisURL == "" {
		return ratelimit.NewMemoryThrottleStore(cfg.Limits.ClientWindow, nil)
	}

	opts, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Invalid REDIS_URL, client throttle stays in memory", map[string]interface{}{
			"error": err.Error(),
		})
		return ratelimit.NewMemoryThrottleStore(cfg.Limits.ClientWindow, nil)
	}

	rdb := redis.NewClient(opts)
	c.closers = append(c.closers, rdb.Close)
	log.Printf("✅ Client throttle backed by Redis at %s", opts.Addr)

	return ratelimit.NewRedisThrottleStore(rdb, cfg.App.ServiceName+":throttle:", cfg.Limits.ClientWindow)
}

// newCompleter returns nil when no provider can be built; the chat service then reports
// itself unavailable instead of failing startup.
func newCompleter(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger) llm.Completer {
	completer, err := factory.NewLLMProvider(ctx, factory.Settings{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		GeminiAPIKey:  cfg.Keys.GoogleGemini,
		GeminiBaseURL: cfg.Ai.GeminiBaseURL,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
	})
	if errors.Is(err, llm.ErrNotConfigured) {
		sysLogger.Warn("BOOTSTRAP", "No completion credential configured, assistant will report unavailable", nil)
		return nil
	}
	if err != nil {
		sysLogger.Error("BOOTSTRAP", "Failed to initialize completion provider", map[string]interface{}{
			"provider": cfg.Ai.LLMProvider,
			"error":    err.Error(),
		})
		return nil
	}

	sysLogger.Info("BOOTSTRAP", "Completion provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    completer.Model(),
	})
	return completer
}
