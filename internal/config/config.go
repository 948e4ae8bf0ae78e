package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	logging "interviewer/pkg/logger/pkg"
)

type Config struct {
	Server    Server         `mapstructure:"server"`
	Logger    logging.Config `mapstructure:"logger"`
	Store     Store          `mapstructure:"store"`
	Redis     Redis          `mapstructure:"redis"`
	DB        Database       `mapstructure:"db"`
	RabbitMQ  RabbitMQ       `mapstructure:"rabbitmq"`
	Interview Interview      `mapstructure:"interview"`
	Backend   Backend        `mapstructure:"backend"`
	Gemini    Gemini         `mapstructure:"gemini"`
	Worker    Worker         `mapstructure:"worker"`
	Tracing   Tracing        `mapstructure:"tracing"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Store picks the key-value backend holding the candidate collection.
type Store struct {
	Driver     string `mapstructure:"driver"`
	Collection string `mapstructure:"collection"`
}

type Redis struct {
	Address   string `mapstructure:"address"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"`
	Debug     bool   `mapstructure:"debug"`

	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Database struct {
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Host           string `mapstructure:"host"`
	Port           uint32 `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	MaxOpenConns   uint32 `mapstructure:"max_open_conns"`
	MaxIdleConns   uint32 `mapstructure:"max_idle_conns"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`

	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnMaxLifeTime time.Duration `mapstructure:"conn_max_life_time"`
}

type RabbitMQ struct {
	Enabled     bool   `mapstructure:"enabled"`
	Address     string `mapstructure:"address"`
	Port        int32  `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	PublicQueue string `mapstructure:"public_queue"`
	ExpireTime  int32  `mapstructure:"expire_time"`
}

type Interview struct {
	Role           string        `mapstructure:"role"`
	Stack          []string      `mapstructure:"stack"`
	QuestionCount  int           `mapstructure:"question_count"`
	Tick           time.Duration `mapstructure:"tick"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Backend selects who generates questions, grades answers and writes the summary.
type Backend struct {
	Driver  string        `mapstructure:"driver"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Gemini struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type Worker struct {
	Size              int `mapstructure:"size"`
	MaxTasksPerWorker int `mapstructure:"max_tasks_per_worker"`
	MaxIdleTime       int `mapstructure:"max_idle_time"`
	MaxTaskWaitTime   int `mapstructure:"max_task_wait_time"`
}

type Tracing struct {
	Enabled bool   `mapstructure:"enabled"`
	Service string `mapstructure:"service"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "5050")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.pretty", false)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.collection", "candidates")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.namespace", "interviewer")
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 3306)
	v.SetDefault("db.name", "interviewer")
	v.SetDefault("db.conn_max_life_time", "1h")
	v.SetDefault("rabbitmq.address", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.public_queue", "interview.events")
	v.SetDefault("rabbitmq.expire_time", 60000)
	v.SetDefault("interview.role", "Full Stack Developer")
	v.SetDefault("interview.stack", []string{"React", "Node.js"})
	v.SetDefault("interview.question_count", 6)
	v.SetDefault("interview.tick", "1s")
	v.SetDefault("interview.request_timeout", "60s")
	v.SetDefault("backend.driver", "http")
	v.SetDefault("backend.base_url", "http://localhost:5050")
	v.SetDefault("backend.timeout", "60s")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("worker.size", 2)
	v.SetDefault("worker.max_tasks_per_worker", 16)
	v.SetDefault("worker.max_idle_time", 300)
	v.SetDefault("worker.max_task_wait_time", 5)
	v.SetDefault("tracing.service", "interviewer")
}

func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("db.user", "DB_USER")
	v.BindEnv("db.password", "DB_PASSWORD")
	v.BindEnv("db.host", "DB_HOST")
	v.BindEnv("db.port", "DB_PORT")
	v.BindEnv("db.name", "DB_NAME")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("backend.base_url", "API_BASE_URL")
	v.BindEnv("tracing.service", "DD_SERVICE")
}

// Load reads the optional YAML file at path, then defaults and environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "redis", "mysql":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Backend.Driver {
	case "http", "gemini":
	default:
		return fmt.Errorf("unknown backend driver %q", c.Backend.Driver)
	}
	if c.Backend.Driver == "gemini" && c.Gemini.APIKey == "" {
		return errors.New("gemini.api_key is required for the gemini backend")
	}
	if c.Interview.QuestionCount <= 0 {
		return errors.New("interview.question_count must be positive")
	}
	if c.Interview.Tick <= 0 {
		return errors.New("interview.tick must be positive")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (s Server) Addr() string {
	return s.Host + ":" + s.Port
}
