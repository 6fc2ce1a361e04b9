package service

import (
	"context"
	"sync/atomic"
	"time"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
	Processed() int64
}

// consumerService drains the in-process bus, logs every event and forwards it
// to the relay (NATS) when one is configured.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	relay      events.Publisher
	logger     logger.ILogger
	processed  atomic.Int64
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	relay events.Publisher, // optional
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		relay:      relay,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) Processed() int64 {
	return cs.processed.Load()
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error("EventConsumer", "Dropping undecodable event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("EventConsumer", "Event "+event.EventType(), event.Payload())

	if cs.relay != nil {
		relayCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := cs.relay.Publish(relayCtx, event)
		cancel()
		if err != nil {
			// relay is best effort; the bus has no dead letter queue to hold the event
			cs.logger.Warn("EventConsumer", "Relay failed", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}

	cs.processed.Add(1)
	msg.Ack()
}
