package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/dealmungchi/freegameworker/internal/render"
	apperrors "github.com/dealmungchi/freegameworker/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// NotificationField is the stream entry field carrying the encoded notification
const NotificationField = "b64_notification"

// RedisPublisher mirrors notifications onto a capped Redis stream for
// downstream consumers
type RedisPublisher struct {
	client          *redis.Client
	stream          string
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis stream publisher
func NewRedisPublisher(addr string, db int, stream string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		stream:          stream,
		streamMaxLength: streamMaxLength,
	}
}

// Send publishes the notification to the stream.
// The JSON payload is base64 encoded before publishing.
func (p *RedisPublisher) Send(ctx context.Context, n render.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return apperrors.NewPublish("redis", "failed to encode notification", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			NotificationField: base64.StdEncoding.EncodeToString(payload),
			"offer_ids":       strings.Join(n.OfferIDs, ","),
		},
	}
	if p.streamMaxLength > 0 {
		args.MaxLen = int64(p.streamMaxLength)
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return apperrors.NewPublish("redis", "failed to add stream entry", err)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
