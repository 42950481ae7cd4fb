package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a cache entry is not found
	ErrNotFound = errors.New("cache entry not found")
	// ErrExpired is returned when a cache entry has expired
	ErrExpired = errors.New("cache entry expired")
)

// cleaner is implemented by every repository with a Cleanup method
type cleaner interface {
	Cleanup(ctx context.Context) error
}

// runCleanup calls c.Cleanup every freq until stopCh is closed. A
// non-positive freq disables the task.
func runCleanup(c cleaner, freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger) {
	if freq <= 0 {
		return
	}
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
