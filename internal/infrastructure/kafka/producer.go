package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/cfg"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	EventFingerprintStored = "fingerprint.stored"

	headerEventType   = "event_type"
	headerContentType = "content_type"
	contentTypeStruct = "application/x-protobuf; messageType=google.protobuf.Struct"
)

// Producer публикует события каталога в Kafka. Запись асинхронная:
// ошибки доставки только логируются и не влияют на вызывающего.
type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %d message(s) lost: %s", len(messages), err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

// PublishFingerprintStored отправляет событие с ключом product_id, чтобы события одного товара шли в одну партицию.
func (p *Producer) PublishFingerprintStored(ctx context.Context, event *usecase.FingerprintStoredEvent) error {
	value, err := EncodeFingerprintStored(event)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ProductID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(EventFingerprintStored)},
			{Key: headerContentType, Value: []byte(contentTypeStruct)},
		},
		Time: event.OccurredAt,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (p *Producer) EnsureTopic(timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(p.cfg.Topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.CreateTopics(kafka.TopicConfig{
			Topic:             p.cfg.Topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", p.cfg.Topic, err))
		}
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, p.cfg.Topic))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// EncodeFingerprintStored сериализует событие в google.protobuf.Struct.
func EncodeFingerprintStored(event *usecase.FingerprintStoredEvent) ([]byte, error) {
	payload, err := structpb.NewStruct(map[string]any{
		"event_id":    event.EventID,
		"event_type":  EventFingerprintStored,
		"product_id":  strconv.FormatInt(event.ProductID, 10),
		"bins":        event.Bins,
		"dimension":   event.Dimension,
		"recomputed":  event.Recomputed,
		"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}

	return proto.Marshal(payload)
}

// NopPublisher используется, когда KAFKA_BROKERS не задан.
type NopPublisher struct {
	logger logger.Logger
}

func NewNopPublisher(logger logger.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

func (n *NopPublisher) PublishFingerprintStored(_ context.Context, event *usecase.FingerprintStoredEvent) error {
	n.logger.Debugf("kafka disabled, dropping %s for product %d", EventFingerprintStored, event.ProductID)
	return nil
}
