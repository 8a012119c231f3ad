// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/waitgate/internal/platform/config"
)

/*
TestServe_BuildsComponentsBeforeConnecting fails on a weak secret before any
connection to an unreachable database is attempted.
*/
func TestServe_BuildsComponentsBeforeConnecting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := &config.Config{
		StoreBackend:     config.BackendPostgres,
		DatabaseURL:      "postgres://nobody@127.0.0.1:1/none?sslmode=disable",
		RateLimitBackend: config.BackendMemory,
		JWTSecret:        "short",
		APIKey:           "key",
	}

	started := time.Now()
	err := serve(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt secret")
	assert.NotContains(t, err.Error(), "postgres")
	assert.Less(t, time.Since(started), time.Second)
}
