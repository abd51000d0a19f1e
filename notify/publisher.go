package notify

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"warden/common"

	"github.com/go-redis/redis/v8"
)

const (
	TopicEmails  = "emails"
	TopicLogging = "logging"
)

const (
	EventUserCreated            = "user_created"
	EventPasswordChanged        = "user_password_changed"
	EventPasswordResetRequested = "user_reset_password"
	EventLoginSucceeded         = "login_succeeded"
	EventLoginFailed            = "login_failed"
)

// Publisher is the fire-and-forget notification contract. Publish never returns an
// error: delivery failures are logged and swallowed, they must not fail the
// triggering request.
type Publisher interface {
	Publish(topic string, event string, payload interface{})
}

type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Time    time.Time   `json:"time"`
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(addr string) *RedisPublisher {
	return &RedisPublisher{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (p *RedisPublisher) Publish(topic string, event string, payload interface{}) {
	body, err := json.Marshal(&Message{Event: event, Payload: payload, Time: time.Now()})
	if err != nil {
		common.Log.Warnf("failed to encode notification %s: %v", event, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.client.Publish(ctx, topic, body).Err(); err != nil {
		common.Log.Warnf("failed to publish notification %s to %s: %v", event, topic, err)
	}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// LogPublisher is the fallback when no broker is configured: notifications only
// reach the service log.
type LogPublisher struct {
}

func (p *LogPublisher) Publish(topic string, event string, payload interface{}) {
	common.Log.WithField("topic", topic).WithField("event", event).WithField("payload", payload).
		Info("notification")
}

// NewPublisherFromEnv returns a redis publisher when NOTIFY_REDIS_ADDR is set,
// otherwise a log-only publisher.
func NewPublisherFromEnv() Publisher {
	if addr := os.Getenv("NOTIFY_REDIS_ADDR"); addr != "" {
		return NewRedisPublisher(addr)
	}
	return &LogPublisher{}
}
