package repository

import (
	"context"
	"time"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	pkgkafka "AutoTrade/pkg/kafka"
)

// TradeEvent is the message published for every executed trade.
type TradeEvent struct {
	Type  string             `json:"type"`
	Trade models.TradeRecord `json:"trade"`
	Sent  int64              `json:"sent_at"`
}

const EventNewTrade = "new_trade"

// KafkaTradeNotifier publishes executed trades keyed by trade id.
type KafkaTradeNotifier struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaTradeNotifier(producer *pkgkafka.Producer, topic string) *KafkaTradeNotifier {
	return &KafkaTradeNotifier{producer: producer, topic: topic}
}

func (n *KafkaTradeNotifier) OnTrade(ctx context.Context, t models.TradeRecord) error {
	return n.producer.Publish(ctx, n.topic, []byte(t.ID), TradeEvent{
		Type:  EventNewTrade,
		Trade: t,
		Sent:  time.Now().Unix(),
	})
}

func (n *KafkaTradeNotifier) Close() error {
	if n.producer != nil {
		return n.producer.Close()
	}
	return nil
}

var _ domrepo.NotificationSink = (*KafkaTradeNotifier)(nil)
