package client

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDSN(t *testing.T) {
	dsn := FormatDSN(Config{
		Username: "itv",
		Password: "secret",
		Host:     "db",
		Port:     3306,
		Name:     "interviewer",
	})

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "itv", parsed.User)
	assert.Equal(t, "secret", parsed.Passwd)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "interviewer", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}
