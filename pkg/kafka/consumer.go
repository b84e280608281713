package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"FinCast/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
// Wrap an error with backoff.Permanent to skip the remaining retries.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// messageReader is the subset of *kafka.Reader used by the consumer.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds one topic into a handler through a worker pool.
type Consumer struct {
	cfg     ConsumerConfig
	handler MessageHandler
	reader  messageReader
	dlq     messageWriter
	hook    ConsumerHook
	log     *logger.Logger

	msgs     chan kafka.Message
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewConsumer creates a consumer group reader for handler.Topic().
func NewConsumer(handler MessageHandler, log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := ConsumerConfig{
		GroupID:    "default",
		Workers:    1,
		BufferSize: 10,
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		MinBytes:   1,
		MaxBytes:   10e6,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    handler.Topic(),
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	var dlq messageWriter
	if cfg.DLQTopic != "" {
		dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	return newConsumer(cfg, handler, reader, dlq, log), nil
}

func newConsumer(cfg ConsumerConfig, handler MessageHandler, reader messageReader, dlq messageWriter, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	initConsumerMetrics()
	return &Consumer{
		cfg:     cfg,
		handler: handler,
		reader:  reader,
		dlq:     dlq,
		hook:    NoopHook{},
		log:     log.With(logger.String("topic", handler.Topic())),
	}
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start launches the fetch loop and the workers.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	c.msgs = make(chan kafka.Message, c.cfg.BufferSize)

	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
	c.wg.Add(1)
	go c.fetch(ctx)

	c.log.Info("kafka consumer started", logger.Int("workers", c.cfg.Workers), logger.String("group", c.cfg.GroupID))
	return nil
}

// Stop cancels the loops and waits for in-flight messages.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}
		if err := c.reader.Close(); err != nil {
			c.log.Warn("close reader", logger.Error(err))
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.log.Warn("close dlq writer", logger.Error(err))
			}
		}
		c.log.Info("kafka consumer stopped")
	})
	return stopErr
}

func (c *Consumer) fetch(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.msgs)
	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("fetch message", logger.Error(err))
			select {
			case <-time.After(c.cfg.BackoffMin):
			case <-ctx.Done():
				return
			}
			continue
		}
		select {
		case c.msgs <- km:
			consumerQueueDepth.WithLabelValues(km.Topic).Set(float64(len(c.msgs)))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker(ctx context.Context) {
	defer c.wg.Done()
	for km := range c.msgs {
		c.process(ctx, km)
	}
}

// process runs the handler with retries, dead-letters failures and commits the offset.
func (c *Consumer) process(ctx context.Context, km kafka.Message) {
	start := time.Now()
	err := c.handle(ctx, km)

	result := "ok"
	if err != nil {
		result = "error"
		c.log.Error("handle message",
			logger.Int64("offset", km.Offset),
			logger.Int("partition", km.Partition),
			logger.Error(err),
		)
		if c.dlq != nil && c.cfg.DLQTopic != "" {
			result = "dlq"
			if dlqErr := c.dlq.WriteMessages(context.WithoutCancel(ctx), kafka.Message{
				Topic: c.cfg.DLQTopic,
				Key:   km.Key,
				Value: km.Value,
				Time:  time.Now(),
				Headers: []kafka.Header{
					{Key: "source_topic", Value: []byte(c.handler.Topic())},
					{Key: "error", Value: []byte(err.Error())},
				},
			}); dlqErr != nil {
				c.log.Error("write dlq", logger.String("dlq_topic", c.cfg.DLQTopic), logger.Error(dlqErr))
			}
		}
	}
	consumerHandled.WithLabelValues(c.handler.Topic(), result).Inc()
	consumerHandleLatency.WithLabelValues(c.handler.Topic()).Observe(time.Since(start).Seconds())

	// Commit on success or after DLQ to avoid poison loops.
	if err == nil || c.dlq != nil {
		commit := func() error {
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			return c.reader.CommitMessages(cctx, km)
		}
		if cerr := backoff.Retry(commit, backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 3)); cerr != nil {
			c.log.Error("commit offset", logger.Int64("offset", km.Offset), logger.Error(cerr))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, km kafka.Message) error {
	hctx, err := c.hook.BeforeHandle(ctx, km)
	if err != nil {
		return fmt.Errorf("before handle: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.BackoffMin
	eb.MaxInterval = c.cfg.BackoffMax
	eb.MaxElapsedTime = 0
	var policy backoff.BackOff = eb
	if c.cfg.RetryMax >= 0 {
		policy = backoff.WithMaxRetries(eb, uint64(c.cfg.RetryMax))
	}

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		herr := c.handler.Handle(hctx, km.Value)
		if herr != nil && !isPermanent(herr) {
			c.log.Warn("handler attempt failed", logger.Int("attempt", attempt), logger.Error(herr))
		}
		return herr
	}, backoff.WithContext(policy, hctx))
	c.hook.AfterHandle(hctx, km, err)
	return err
}

func isPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandled       *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "fincast_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		)
		consumerHandled = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "fincast_kafka_consumer_messages_total", Help: "Handled messages by result"},
			[]string{"topic", "result"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "fincast_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
