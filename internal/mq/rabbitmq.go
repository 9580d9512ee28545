package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig carries connection settings for the RabbitMQ backend.
type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

// RabbitMQClient is a lazily connecting RabbitMQ backend. The constructor
// only validates configuration; the first Publish or Subscribe dials, and a
// connection lost mid-flight is torn down and redialed on the next call.
// Callers that retry (the outbox drain, the worker's subscribe loop) heal
// from broker outages without a process restart.
type RabbitMQClient struct {
	cfg RabbitMQConfig

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQClient(cfg RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	return &RabbitMQClient{cfg: cfg}, nil
}

// Publish sends a message to the named queue, dialing or redialing first
// when the channel is gone.
func (r *RabbitMQClient) Publish(ctx context.Context, queue string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(queue) == "" {
		return "", errors.New("rabbitmq queue is required")
	}

	ch, err := r.liveChannel()
	if err != nil {
		return "", err
	}
	if _, err := r.declareQueue(ch, queue); err != nil {
		r.teardown()
		return "", err
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := uuid.NewString()
	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   messageID,
		Headers:     headers,
		Body:        data,
	})
	if err != nil {
		r.teardown()
		return "", err
	}
	return messageID, nil
}

// Subscribe consumes from the named queue until ctx is cancelled or the
// delivery stream breaks. A broken stream returns an error so the caller can
// resubscribe; the next call redials.
func (r *RabbitMQClient) Subscribe(ctx context.Context, queue string, handler Handler) error {
	if strings.TrimSpace(queue) == "" {
		return errors.New("rabbitmq queue is required")
	}

	ch, err := r.liveChannel()
	if err != nil {
		return err
	}
	if _, err := r.declareQueue(ch, queue); err != nil {
		r.teardown()
		return err
	}

	consumerTag := "consumer-" + uuid.NewString()
	deliveries, err := ch.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		r.teardown()
		return err
	}
	defer func() {
		_ = ch.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				r.teardown()
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close tears the connection down; a later Publish or Subscribe redials.
func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.teardownLocked()
}

// liveChannel returns the current channel, dialing a fresh connection when
// there is none or the previous one died.
func (r *RabbitMQClient) liveChannel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil && !r.channel.IsClosed() && r.conn != nil && !r.conn.IsClosed() {
		return r.channel, nil
	}
	_ = r.teardownLocked()

	conn, err := amqp.Dial(r.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if r.cfg.PrefetchCount > 0 {
		if err := ch.Qos(r.cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	r.conn = conn
	r.channel = ch
	return ch, nil
}

func (r *RabbitMQClient) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.teardownLocked()
}

func (r *RabbitMQClient) teardownLocked() error {
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
	if r.conn != nil {
		err := r.conn.Close()
		r.conn = nil
		return err
	}
	return nil
}

func (r *RabbitMQClient) declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		r.cfg.QueueDurable,
		r.cfg.QueueAutoDelete,
		false,
		false,
		nil,
	)
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprintf("%v", typed)
		}
	}
	return attrs
}
