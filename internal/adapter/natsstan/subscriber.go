package natsstan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stan "github.com/nats-io/stan.go"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// Subscriber — подписка на ленту каталога в NATS Streaming.
type Subscriber struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string
	Durable   string
	Queue     string
	Logger    *slog.Logger
}

func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	clientID := s.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("storefront-%d", time.Now().UnixNano())
	}
	queue := s.Queue
	if queue == "" {
		queue = "storefront-catalog"
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sc, err := stan.Connect(s.ClusterID, clientID, stan.NatsURL(s.URL))
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}
	go func() {
		<-ctx.Done()
		sc.Close()
	}()
	_, err = sc.QueueSubscribe(s.Subject, queue, func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := handler(hCtx, m.Data); err != nil && !errors.Is(err, domain.ErrValidation) {
			// не подтверждаем, даём сообщению переотправиться
			logger.Error("handler error", "subject", s.Subject, "seq", m.Sequence, "err", err)
			return
		} else if err != nil {
			logger.Warn("dropping invalid message", "subject", s.Subject, "seq", m.Sequence, "err", err)
		}
		if err := m.Ack(); err != nil {
			logger.Error("ack failed", "seq", m.Sequence, "err", err)
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(10*time.Second), stan.DeliverAllAvailable())
	if err != nil {
		return fmt.Errorf("stan subscribe %s: %w", s.Subject, err)
	}
	return nil
}

// Publish отправляет одно сообщение в ленту.
func Publish(clusterID, clientID, url, subject string, data []byte) error {
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(url))
	if err != nil {
		return fmt.Errorf("stan connect: %w", err)
	}
	defer sc.Close()
	return sc.Publish(subject, data)
}

var _ domain.MessageSubscriber = (*Subscriber)(nil)
