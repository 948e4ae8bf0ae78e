package client

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	sqltrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/database/sql"
)

// Config is the MySQL connection configuration.
type Config struct {
	Username        string
	Password        string
	Host            string
	Port            uint32
	Name            string
	TracingEnabled  bool
	MaxOpenConns    uint32
	MaxIdleConns    uint32
	ConnMaxIdleTime time.Duration
	ConnMaxLifeTime time.Duration
}

// FormatDSN renders the go-sql-driver DSN for cfg.
func FormatDSN(cfg Config) string {
	mysqlConfig := mysql.NewConfig()
	mysqlConfig.Net = "tcp"
	mysqlConfig.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mysqlConfig.DBName = cfg.Name
	mysqlConfig.User = cfg.Username
	mysqlConfig.Passwd = cfg.Password
	mysqlConfig.AllowNativePasswords = true
	mysqlConfig.ParseTime = true
	return mysqlConfig.FormatDSN()
}

// Open connects to MySQL, wrapping the driver with Datadog tracing when enabled.
func Open(cfg Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	dsn := FormatDSN(cfg)
	if cfg.TracingEnabled {
		sqltrace.Register("mysql", &mysql.MySQLDriver{}, sqltrace.WithServiceName(os.Getenv("DD_SERVICE")))
		db, err = sqltrace.Open("mysql", dsn)
	} else {
		db, err = sql.Open("mysql", dsn)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(int(cfg.MaxIdleConns))
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxOpenConns))
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifeTime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifeTime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
