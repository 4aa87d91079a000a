package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"o2o/internal/config"
)

func TestNew_AppliesConfiguredTimeouts(t *testing.T) {
	cfg := config.ServerConfig{
		Port:         9090,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  time.Minute,
	}

	s := New(cfg, http.NotFoundHandler(), zap.NewNop())

	assert.Equal(t, ":9090", s.httpServer.Addr)
	assert.Equal(t, 3*time.Second, s.httpServer.ReadTimeout)
	assert.Equal(t, 45*time.Second, s.httpServer.WriteTimeout)
	assert.Equal(t, time.Minute, s.httpServer.IdleTimeout)
}

func TestStart_ReturnsNilAfterShutdown(t *testing.T) {
	s := New(config.ServerConfig{Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second}, http.NotFoundHandler(), zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
