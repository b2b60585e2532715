package service

import (
	"context"

	"citizen-portal-be/internal/pkg/logger"
	"citizen-portal-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService writes chat usage events to the usage log.
type consumerService struct {
	subscriber  message.Subscriber
	topicName   string
	usageLogger logger.ILogger
	sysLogger   logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	usageLogger logger.ILogger,
	sysLogger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:  subscriber,
		topicName:   topicName,
		usageLogger: usageLogger,
		sysLogger:   sysLogger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	evt, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.sysLogger.Warn("USAGE", "Dropping malformed usage event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite redelivery
		return
	}

	details := make(map[string]interface{}, len(evt.Data)+1)
	for k, v := range evt.Data {
		details[k] = v
	}
	details["occurredAt"] = evt.OccurredAt

	cs.usageLogger.Info("USAGE", evt.Type, details)
	msg.Ack()
}
