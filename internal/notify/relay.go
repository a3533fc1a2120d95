package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRelayChannel is the Redis pub/sub channel used by RedisRelay.
const DefaultRelayChannel = "storyverse:notify"

// RedisRelay mirrors notifications between processes that share one Redis
// storage. Local events are published; remote events are delivered locally
// with their Origin set, so they are never published back.
type RedisRelay struct {
	client   *redis.Client
	notifier *Notifier
	channel  string
	id       string
	logger   *zap.Logger
}

type relayMessage struct {
	Origin string `json:"origin"`
	Topic  Topic  `json:"topic"`
}

// NewRedisRelay creates a relay. An empty channel uses DefaultRelayChannel.
func NewRedisRelay(client *redis.Client, n *Notifier, channel string, logger *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		client:   client,
		notifier: n,
		channel:  channel,
		id:       uuid.NewString(),
		logger:   logger.Named("relay"),
	}
}

// ID identifies this process in relayed messages.
func (r *RedisRelay) ID() string { return r.id }

// Run relays until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before publishing anything.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	unsubscribe := r.notifier.SubscribeAll(func(ev Event) {
		if ev.Origin != "" {
			return
		}
		r.publish(ctx, ev.Topic)
	})
	defer unsubscribe()

	r.logger.Info("relay started", zap.String("channel", r.channel), zap.String("origin", r.id))
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.receive(msg.Payload)
		}
	}
}

func (r *RedisRelay) publish(ctx context.Context, topic Topic) {
	b, err := json.Marshal(relayMessage{Origin: r.id, Topic: topic})
	if err != nil {
		r.logger.Error("marshal relay message", zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, r.channel, b).Err(); err != nil {
		r.logger.Warn("publish relay message", zap.String("topic", string(topic)), zap.Error(err))
	}
}

func (r *RedisRelay) receive(payload string) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn("discarding malformed relay message", zap.Error(err))
		return
	}
	if msg.Origin == r.id {
		return
	}
	if _, err := ParseTopic(string(msg.Topic)); err != nil {
		r.logger.Warn("discarding relay message", zap.Error(err))
		return
	}
	r.notifier.Deliver(Event{Topic: msg.Topic, Origin: msg.Origin, At: time.Now().UTC()})
}
