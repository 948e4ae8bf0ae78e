package redis

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	redistrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/redis/go-redis.v9"
)

// Config mirrors the redis section of the service configuration.
type Config struct {
	Address      string
	Username     string
	Password     string
	DB           int
	Namespace    string
	Debug        bool
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	Tracing      bool
}

func New(config Config) (*redis.Client, error) {
	o := &redis.Options{
		Addr: config.Address,
	}
	if len(config.Username) > 0 {
		o.Username = config.Username
	}
	if len(config.Password) > 0 {
		o.Password = config.Password
	}
	if config.DB > 0 {
		o.DB = config.DB
	}
	if config.MaxRetries != 0 {
		o.MaxRetries = config.MaxRetries
	}
	if config.DialTimeout != 0 {
		o.DialTimeout = config.DialTimeout
	}
	if config.ReadTimeout != 0 {
		o.ReadTimeout = config.ReadTimeout
	}
	if config.WriteTimeout != 0 {
		o.WriteTimeout = config.WriteTimeout
	}
	if config.PoolSize != 0 {
		o.PoolSize = config.PoolSize
	}

	client := redis.NewClient(o)
	client.AddHook(&nsHook{config.Namespace})
	client.AddHook(&debugHook{config.Debug})

	if config.Tracing {
		redistrace.WrapClient(client, redistrace.WithServiceName("redis"))
	}
	return client, client.Ping(context.Background()).Err()
}
