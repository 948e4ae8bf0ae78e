package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"interviewer/internal/config"
	feat "interviewer/internal/features"
	repo "interviewer/internal/repo"
	sv "interviewer/internal/service"
	"interviewer/internal/utils/kv"
	"interviewer/internal/utils/sse"
	"interviewer/pkg/database/client"
	rabbit "interviewer/pkg/rabbit/pkg"
	redis "interviewer/pkg/redis/pkg"
)

type app struct {
	controller *feat.Controller
	hub        *sse.Hub
	closers    []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	store, err := openStore(ctx, cfg, a)
	if err != nil {
		a.close()
		return nil, err
	}
	repository := repo.New(store, cfg.Store.Collection)

	backend, err := sv.New(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	a.hub = sse.NewHub(logger)
	notifiers := feat.Notifiers{a.hub}
	if cfg.RabbitMQ.Enabled {
		publisher := rabbit.New(&rabbit.Config{
			Address:     cfg.RabbitMQ.Address,
			Port:        cfg.RabbitMQ.Port,
			Username:    cfg.RabbitMQ.Username,
			Password:    cfg.RabbitMQ.Password,
			PublicQueue: cfg.RabbitMQ.PublicQueue,
			ExpireTime:  cfg.RabbitMQ.ExpireTime,
		})
		notifiers = append(notifiers, feat.NewRabbitNotifier(publisher, logger))
	}

	pool := feat.NewGradingWorkerPool(
		cfg.Worker.Size,
		cfg.Worker.MaxTasksPerWorker,
		cfg.Worker.MaxIdleTime,
		cfg.Worker.MaxTaskWaitTime,
	)
	a.controller = feat.New(repository.Candidate, backend, pool, notifiers, feat.Options{
		Role:           cfg.Interview.Role,
		Stack:          cfg.Interview.Stack,
		QuestionCount:  cfg.Interview.QuestionCount,
		Tick:           cfg.Interview.Tick,
		RequestTimeout: cfg.Interview.RequestTimeout,
	}, logger)

	resumable, err := a.controller.DetectResumable(ctx)
	switch {
	case err != nil:
		logger.Error("Failed to scan for an unfinished interview", zap.Error(err))
	case resumable != nil:
		logger.Info("Unfinished interview found",
			zap.String("candidateId", resumable.ID),
			zap.Int("answered", len(resumable.Answers)),
			zap.Int("questionsLength", resumable.QuestionsLength))
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, a *app) (kv.Store, error) {
	switch cfg.Store.Driver {
	case "redis":
		rdb, err := redis.New(redis.Config{
			Address:      cfg.Redis.Address,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			Namespace:    cfg.Redis.Namespace,
			Debug:        cfg.Redis.Debug,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			Tracing:      cfg.Tracing.Enabled,
		})
		if rdb != nil {
			a.closers = append(a.closers, rdb.Close)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return kv.NewRedis(rdb), nil
	case "mysql":
		db, err := client.Open(client.Config{
			Username:        cfg.DB.User,
			Password:        cfg.DB.Password,
			Host:            cfg.DB.Host,
			Port:            cfg.DB.Port,
			Name:            cfg.DB.Name,
			TracingEnabled:  cfg.DB.TracingEnabled || cfg.Tracing.Enabled,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
			ConnMaxLifeTime: cfg.DB.ConnMaxLifeTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open mysql: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return kv.NewSQL(ctx, db)
	default:
		return kv.Memory(), nil
	}
}
