package logging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type ctxKey struct{}

var (
	_logger           = NewTmpLogger()
	_xRequestIDHeader = "x_request_id"
)

// Config selects the encoder and level of the process logger.
type Config struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func NewLogger(cfg Config) (*zap.Logger, error) {
	var c zap.Config
	var opts []zap.Option
	if cfg.Pretty {
		c = zap.NewDevelopmentConfig()
		opts = append(opts, zap.AddStacktrace(zap.ErrorLevel))
	} else {
		c = zap.NewProductionConfig()
	}

	level := zap.NewAtomicLevel()

	levelName := "INFO"
	if cfg.Level != "" {
		levelName = strings.ToUpper(cfg.Level)
	}

	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("could not parse log level %s", cfg.Level)
	}
	c.Level = level

	return c.Build(opts...)
}

func InitLogger(cfg Config) (*zap.Logger, error) {
	l, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	_logger = l
	return l, nil
}

func NewTmpLogger() *zap.Logger {
	c := zap.NewProductionConfig()
	c.DisableStacktrace = true
	l, err := c.Build()
	if err != nil {
		panic(err)
	}
	return l
}

// Logger Return new logger with context value
// ctx:  nillable
func Logger(ctx context.Context) *zap.Logger {
	return injectXRequestID(_logger, ctx)
}

func SetXRequestIDHeader(headerName string) {
	_xRequestIDHeader = headerName
}

// WithRequestID stores the request id so that Logger(ctx) can tag entries with it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func injectXRequestID(logger *zap.Logger, ctx context.Context) *zap.Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		return logger
	}
	return logger.With(zap.String(_xRequestIDHeader, requestID))
}
