package service

import (
	"context"
	"testing"
	"time"

	"citizen-portal-be/internal/pkg/logger"
	"citizen-portal-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testTopic = "chat.usage.test"

func newTestPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func TestUsageEventsReachUsageLog(t *testing.T) {
	pubSub := newTestPubSub(t)
	core, logs := observer.New(zap.InfoLevel)

	consumer := NewConsumerService(pubSub, testTopic, logger.NewWithCore(core), logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService(testTopic, pubSub)
	evt := events.NewChatUsageEvent(events.ChatUsage{
		RequestID:        "req-1",
		Outcome:          "success",
		Model:            "gemini-2.0-flash",
		PromptTokens:     10,
		CompletionTokens: 5,
	}, time.Now())
	require.NoError(t, publisher.Publish(ctx, evt))

	require.Eventually(t, func() bool { return logs.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	entry := logs.All()[0]
	assert.Equal(t, events.TypeChatAnswered, entry.Message)
	details, ok := entry.ContextMap()["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "req-1", details["requestId"])
	assert.Equal(t, "success", details["outcome"])
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	pubSub := newTestPubSub(t)
	usageCore, usageLogs := observer.New(zap.InfoLevel)
	sysCore, sysLogs := observer.New(zap.InfoLevel)

	consumer := NewConsumerService(pubSub, testTopic, logger.NewWithCore(usageCore), logger.NewWithCore(sysCore))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	require.NoError(t, pubSub.Publish(testTopic, message.NewMessage(watermill.NewUUID(), []byte("{broken"))))

	require.Eventually(t, func() bool { return sysLogs.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, usageLogs.Len())
	assert.Equal(t, "Dropping malformed usage event", sysLogs.All()[0].Message)
}
