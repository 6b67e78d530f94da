package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"
)

// RabbitConfig configures the external queue transport.
type RabbitConfig struct {
	URL           string `yaml:"url"`
	Queue         string `yaml:"queue"`
	PrefetchCount int    `yaml:"prefetchCount"`
}

func (c RabbitConfig) validate() error {
	if c.URL == "" {
		return fmt.Errorf("rabbitmq url is required")
	}
	if c.Queue == "" {
		return fmt.Errorf("rabbitmq queue is required")
	}
	return nil
}

// Rabbit is a Queue backed by a RabbitMQ queue. Messages are acked only
// after the handler returns, so a crashed consumer redelivers.
type Rabbit struct {
	cfg  RabbitConfig
	conn *amqp091.Connection
	ch   *amqp091.Channel

	closeOnce sync.Once
}

// NewRabbit connects to the broker and declares the durable queue.
func NewRabbit(cfg RabbitConfig) (*Rabbit, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.PrefetchCount < 1 {
		cfg.PrefetchCount = 16
	}
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare %q: %w", cfg.Queue, err)
	}
	if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}
	return &Rabbit{cfg: cfg, conn: conn, ch: ch}, nil
}

func (q *Rabbit) Publish(msg []byte) error {
	err := q.ch.PublishWithContext(context.Background(), "", q.cfg.Queue, false, false, amqp091.Publishing{
		ContentType:  "application/xml",
		DeliveryMode: amqp091.Persistent,
		Body:         msg,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish to %q: %w", q.cfg.Queue, err)
	}
	return nil
}

func (q *Rabbit) Consume(ctx context.Context, workers int, handle func(msg []byte)) {
	if workers <= 0 {
		workers = 1
	}
	deliveries, err := q.ch.Consume(q.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					handle(d.Body)
					_ = d.Ack(false)
				}
			}
		}()
	}
	wg.Wait()
}

func (q *Rabbit) Close() error {
	var err error
	q.closeOnce.Do(func() {
		if cerr := q.ch.Close(); cerr != nil {
			err = cerr
		}
		if cerr := q.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
