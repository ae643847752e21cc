package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/cfg"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestEncodeFingerprintStored(t *testing.T) {
	event := usecase.NewFingerprintStoredEvent(9007199254740993, 8, true)

	data, err := EncodeFingerprintStored(event)
	require.NoError(t, err)

	var decoded structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &decoded))
	fields := decoded.AsMap()

	assert.Equal(t, event.EventID, fields["event_id"])
	assert.Equal(t, EventFingerprintStored, fields["event_type"])
	// product_id передаётся строкой: double в Struct теряет точность на больших int64.
	assert.Equal(t, "9007199254740993", fields["product_id"])
	assert.Equal(t, float64(8), fields["bins"])
	assert.Equal(t, float64(512), fields["dimension"])
	assert.Equal(t, true, fields["recomputed"])

	occurred, err := time.Parse(time.RFC3339Nano, fields["occurred_at"].(string))
	require.NoError(t, err)
	assert.True(t, occurred.Equal(event.OccurredAt))
}

func TestNewProducer(t *testing.T) {
	p := NewProducer(logger.Nop{}, &cfg.KafkaCfg{Brokers: []string{"localhost:9092"}, Topic: "catalog.fingerprints"})
	defer p.Close()

	assert.Equal(t, "catalog.fingerprints", p.writer.Topic)
	assert.True(t, p.writer.Async)
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
}

func TestNopPublisher(t *testing.T) {
	n := NewNopPublisher(logger.Nop{})
	assert.NoError(t, n.PublishFingerprintStored(context.Background(), usecase.NewFingerprintStoredEvent(1, 8, false)))
}
