package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logging "interviewer/pkg/logger/pkg"
)

type debugHook struct {
	enabled bool
}

func (h *debugHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *debugHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if h.enabled {
			logging.Logger(ctx).Debug("Redis command",
				zap.String("cmd", cmd.Name()),
				zap.Int("args", len(cmd.Args())),
				zap.Error(err))
		}
		return err
	}
}

func (h *debugHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmd []redis.Cmder) error {
		if h.enabled {
			for _, c := range cmd {
				logging.Logger(ctx).Debug("Redis pipeline command", zap.String("cmd", c.Name()))
			}
		}

		return next(ctx, cmd)
	}
}
