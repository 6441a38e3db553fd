package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/roomboard/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "board", Password: "p@ss/word", Name: "roomboard"})
	assert.Equal(t, "postgres://board:p%40ss%2Fword@db:5432/roomboard?sslmode=disable", dsn)

	dsn = DSN(config.DatabaseConfig{Host: "db", Port: 6543, User: "u", Password: "p", Name: "x", SSLMode: "require"})
	assert.Equal(t, "postgres://u:p@db:6543/x?sslmode=require", dsn)
}
