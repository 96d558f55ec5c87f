package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gartstein/directory/internal/directory/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type Action string

const (
	Created       Action = "created"
	Updated       Action = "updated"
	Deleted       Action = "deleted"
	StatusChanged Action = "status_changed"
)

// EventType is "<entity kind>_<action>", e.g. "company_created".
type EventType string

func TypeOf(kind string, action Action) EventType {
	return EventType(kind + "_" + string(action))
}

// Event is one lifecycle change. Deletes are always soft and carry
// DeletedAt.
type Event struct {
	Type       EventType       `json:"type"`
	Entity     string          `json:"entity"`
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurredAt"`
	DeletedAt  *time.Time      `json:"deletedAt,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	// Create topic if it doesn't exist
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}
	return newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, 1000),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce queues an event for entity without blocking. A full queue drops
// the event.
func (p *Producer) Produce(action Action, entity models.Entity, source string) {
	event, err := newEvent(action, entity, source)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("entity_id", entity.EntityID()),
		)
		return
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.ID),
		)
	}
}

func newEvent(action Action, entity models.Entity, source string) (Event, error) {
	payload, err := jsonMarshal(entity)
	if err != nil {
		return Event{}, err
	}
	event := Event{
		Type:       TypeOf(entity.EntityKind(), action),
		Entity:     entity.EntityKind(),
		ID:         entity.EntityID(),
		Source:     source,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if action == Deleted {
		event.DeletedAt = entity.DeletedTime()
	}
	return event, nil
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("entity_id", event.ID),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.ID),
		)
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	<-p.done
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// NopProducer discards events. Used when no brokers are configured.
type NopProducer struct{}

func (NopProducer) Produce(Action, models.Entity, string) {}
