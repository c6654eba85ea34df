package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	db := setupTestDB(t)
	svc := NewHealthService(db, "test")

	status, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy())
	assert.Equal(t, "connected", status.Database)
	assert.Equal(t, "test", status.Environment)
	assert.Contains(t, status.ResponseTime, "ms")
}

func TestHealthCheckClosedDatabase(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Close())
	svc := NewHealthService(db, "test")

	status, err := svc.Check(context.Background())
	assert.Error(t, err)
	assert.False(t, status.Healthy())
	assert.Equal(t, "disconnected", status.Database)
	assert.Equal(t, "database connection failed", status.Error)
}
