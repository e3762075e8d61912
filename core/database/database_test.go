package database

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Driver:         DriverMySQL,
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "webdesk",
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("Unsupported Driver", func(t *testing.T) {
		db, err := Connect(Config{Driver: "oracle"})
		assert.Error(t, err)
		assert.Nil(t, db)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})

	t.Run("SQLite In Memory", func(t *testing.T) {
		db, err := Connect(Config{Driver: DriverSQLite, Name: ":memory:"})
		require.NoError(t, err)

		var enabled int
		require.NoError(t, db.Raw("PRAGMA foreign_keys").Row().Scan(&enabled))
		assert.Equal(t, 1, enabled)
	})
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(Config{Host: "db", Port: 3306, User: "app", Password: "p@ss/word", Name: "webdesk"}, 5*time.Second)

	assert.True(t, strings.HasPrefix(dsn, "app:p@ss/word@tcp(db:3306)/webdesk?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "timeout=5s")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(Config{Host: "db", Port: 5432, User: "app", Password: "it's", Name: "webdesk"}, 10*time.Second)

	assert.Contains(t, dsn, "host=db port=5432 user=app")
	assert.Contains(t, dsn, `password='it\'s'`)
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "connect_timeout=10")
}

func TestConfig_IsValidDriver(t *testing.T) {
	tests := []struct {
		driver string
		want   bool
	}{
		{DriverMySQL, true},
		{DriverPostgres, true},
		{DriverSQLite, true},
		{"mssql", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Config{Driver: tt.driver}.IsValidDriver(), tt.driver)
	}
}
