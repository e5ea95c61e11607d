package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/taskhub-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "info", ShutdownTimeoutSeconds: 10},
		Database: config.DatabaseConfig{URL: "postgres://localhost/taskhub", MaxOpenConns: 4, MaxIdleConns: 2, ConnMaxLifetimeMinutes: 1},
		Auth: config.AuthConfig{
			JWTSecret:            "0123456789abcdef0123456789abcdef",
			TokenLifetimeMinutes: 30,
			BCryptCost:           4,
		},
		Pagination: config.PaginationConfig{DefaultPageSize: 10, MaxPageSize: 100},
	}
}

func TestNewApplication(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := newApplication(validConfig(), logger, db)
	require.NoError(t, err)

	assert.NotNil(t, app.jwtService)
	assert.NotNil(t, app.taskStore)
	assert.NotNil(t, app.userStore)
	assert.NotNil(t, app.taskService)
	assert.NotNil(t, app.authService)
	assert.NotNil(t, app.setupRouter())

	dbMock.ExpectClose()
	app.cleanup()
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestNewApplication_RejectsShortSecret(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"

	_, err = newApplication(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), db)
	assert.ErrorContains(t, err, "failed to initialize JWT service")
}

func TestConfigurePool(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configurePool(db, config.DatabaseConfig{MaxOpenConns: 3, MaxIdleConns: 1, ConnMaxLifetimeMinutes: 1})

	assert.Equal(t, 3, db.Stats().MaxOpenConnections)
}
