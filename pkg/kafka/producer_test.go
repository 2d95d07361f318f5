package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("lz4"))
	require.NoError(t, err)
	assert.Equal(t, "lz4", p.comp)
	require.NoError(t, p.Close())
}

func TestWithConfig_KeepsDefaultsForZeroFields(t *testing.T) {
	cfg := &ProducerConfig{Compression: "gzip", MaxAttempts: 3, WriteTimeout: 10 * time.Second, ReadTimeout: 10 * time.Second}
	WithConfig(ProducerConfig{Brokers: []string{"b1:9092", "b2:9092"}, Topic: "volscan.reports", ReadTimeout: 5 * time.Second})(cfg)

	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Brokers)
	assert.Equal(t, "volscan.reports", cfg.Topic)
	assert.Equal(t, "gzip", cfg.Compression)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Lz4, parseCompression("lz4"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression("gzip"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}

func TestPublish_EncodesValue(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "gzip")

	require.NoError(t, p.Publish(context.Background(), "reports", []byte("run-1"), map[string]int{"tickers": 3}))
	require.NoError(t, p.Publish(context.Background(), "reports", nil, "raw"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "reports", w.msgs[0].Topic)
	assert.Equal(t, []byte("run-1"), w.msgs[0].Key)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, 3, decoded["tickers"])
	assert.Equal(t, []byte("raw"), w.msgs[1].Value)
}

func TestPublishBatch(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "gzip")

	require.NoError(t, p.PublishBatch(context.Background(), "reports", nil))
	assert.Empty(t, w.msgs)

	err := p.PublishBatch(context.Background(), "reports", []Message{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: "2"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, []byte("b"), w.msgs[1].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublish_WriterError(t *testing.T) {
	w := &captureWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "gzip")

	err := p.Publish(context.Background(), "reports", nil, []byte("x"))
	assert.EqualError(t, err, "broker down")
}

func TestPublish_MarshalError(t *testing.T) {
	p := NewProducerWithWriter(&captureWriter{}, "gzip")
	err := p.Publish(context.Background(), "reports", nil, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal value")
}

func TestPublishMessage_SortsHeaders(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishMessage(context.Background(), "reports", Message{
		Key:     []byte("k"),
		Value:   "v",
		Headers: map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	require.Len(t, w.msgs[0].Headers, 2)
	assert.Equal(t, "a", w.msgs[0].Headers[0].Key)
	assert.Equal(t, []byte("2"), w.msgs[0].Headers[1].Value)
}

func TestPublishBatch_EncodeErrorSendsNothing(t *testing.T) {
	w := &captureWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishBatch(context.Background(), "reports", []Message{
		{Value: "ok"},
		{Value: func() {}},
	})
	require.Error(t, err)
	assert.Empty(t, w.msgs)
}
