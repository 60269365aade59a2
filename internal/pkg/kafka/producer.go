package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Producer interface {
	SendMessage(ctx context.Context, topic, key string, message interface{}) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer connects to the first broker and makes sure every topic
// exists. Without reachable brokers it falls back to a logging producer so
// the API still runs in synchronous mode.
func NewProducer(brokers []string, topics ...string) Producer {
	if len(brokers) == 0 {
		logrus.Info("no kafka brokers configured, using mock producer")
		return &mockProducer{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	logrus.WithField("brokers", brokers).Info("kafka producer configured")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		logrus.WithError(err).Warn("kafka connection failed, using mock producer instead")
		return &mockProducer{}
	}
	defer conn.Close()

	topicConfigs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		topicConfigs = append(topicConfigs, kafka.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	if err := conn.CreateTopics(topicConfigs...); err != nil {
		logrus.WithError(err).Warn("could not create topics (might already exist)")
	} else {
		logrus.WithField("topics", topics).Info("kafka topics ready")
	}

	return &kafkaProducer{writer: writer}
}

func (p *kafkaProducer) SendMessage(ctx context.Context, topic, key string, message interface{}) error {
	msg, err := newMessage(topic, key, message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logrus.WithError(err).WithField("topic", topic).Error("failed to write message to kafka")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"topic": topic,
		"key":   key,
	}).Debug("message sent")
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

func newMessage(topic, key string, message interface{}) (kafka.Message, error) {
	value, err := json.Marshal(message)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}, nil
}

// mockProducer is used when Kafka is not available.
type mockProducer struct{}

func (m *mockProducer) SendMessage(_ context.Context, topic, key string, message interface{}) error {
	logrus.WithFields(logrus.Fields{
		"topic":   topic,
		"key":     key,
		"message": message,
	}).Debug("mock producer: message dropped")
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}

// IsMock reports whether p only logs messages.
func IsMock(p Producer) bool {
	_, ok := p.(*mockProducer)
	return ok
}
