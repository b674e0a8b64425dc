package amqpfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// Delivery — часть amqp.Delivery, нужная циклу потребителя.
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Subscriber — потребитель ленты каталога из очереди RabbitMQ.
type Subscriber struct {
	URL      string
	Queue    string
	Prefetch int
	Logger   *slog.Logger
}

func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	conn, err := amqp.Dial(s.URL)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(s.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("amqp declare %s: %w", s.Queue, err)
	}
	prefetch := s.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		conn.Close()
		return fmt.Errorf("amqp qos: %w", err)
	}
	msgs, err := ch.Consume(s.Queue, "", false, false, false, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp consume %s: %w", s.Queue, err)
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		for d := range msgs {
			s.handle(handler, &d, d.Body)
		}
	}()
	return nil
}

// handle подтверждает успех. Невалидные сообщения отбрасываются, остальные ошибки возвращают сообщение в очередь.
func (s *Subscriber) handle(handler func(ctx context.Context, raw []byte) error, d Delivery, body []byte) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := handler(hCtx, body); err != nil {
		logger.Error("handler error", "queue", s.Queue, "err", err)
		requeue := !errors.Is(err, domain.ErrValidation)
		if err := d.Nack(false, requeue); err != nil {
			logger.Error("nack failed", "err", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		logger.Error("ack failed", "err", err)
	}
}

// Publish отправляет одно сообщение в очередь.
func Publish(ctx context.Context, url, queue string, data []byte) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp declare %s: %w", queue, err)
	}
	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         data,
	})
}

var _ domain.MessageSubscriber = (*Subscriber)(nil)
