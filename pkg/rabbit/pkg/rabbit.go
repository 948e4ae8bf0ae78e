package rabbit

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	logging "interviewer/pkg/logger/pkg"
)

type Rabbit interface {
	Publish(ctx context.Context, body []byte) error
}

type Config struct {
	Address     string
	Port        int32
	Username    string
	Password    string
	PublicQueue string
	ExpireTime  int32
}

type rabbit struct {
	connectionUrl string
	publicQueue   string
	expireTime    int32
}

// New returns a publisher for cfg, or a Dummy that drops messages when cfg is nil.
func New(cfg *Config) Rabbit {
	if cfg == nil {
		return &Dummy{}
	}

	return &rabbit{
		connectionUrl: ConnectionURL(cfg),
		publicQueue:   cfg.PublicQueue,
		expireTime:    cfg.ExpireTime,
	}
}

func ConnectionURL(cfg *Config) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.Username, cfg.Password, cfg.Address, cfg.Port)
}

func (r *rabbit) Publish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(r.connectionUrl)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(r.publicQueue, true, false, false, false, nil)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}
	if r.expireTime > 0 {
		pub.Expiration = fmt.Sprintf("%d", r.expireTime)
	}

	if err := ch.PublishWithContext(ctx, "", q.Name, false, false, pub); err != nil {
		return err
	}

	logging.Logger(ctx).Debug("Published message", zap.String("queue", q.Name), zap.Int("bytes", len(body)))
	return nil
}
