package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikohMick/SEO-MACHINE/pkg/redis"
)

const stopKey = "seo:emergency_stop"

// EmergencyStop is a shared halt flag in Redis. While engaged, scheduled
// jobs skip their trigger times and running jobs stop at their next record
// boundary; nothing already committed is rolled back.
type EmergencyStop struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewEmergencyStop wraps the Redis client.
func NewEmergencyStop(r *redis.Client) *EmergencyStop {
	return &EmergencyStop{
		redis:  r,
		logger: slog.Default().With("component", "emergency_stop"),
	}
}

// Engage raises the flag. It has no expiry; only Clear lowers it.
func (s *EmergencyStop) Engage(ctx context.Context) error {
	if err := s.redis.Set(ctx, stopKey, "1", 0); err != nil {
		return fmt.Errorf("engage emergency stop: %w", err)
	}
	s.logger.Warn("emergency stop engaged")
	return nil
}

// Clear lowers the flag.
func (s *EmergencyStop) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, stopKey); err != nil {
		return fmt.Errorf("clear emergency stop: %w", err)
	}
	s.logger.Info("emergency stop cleared")
	return nil
}

// Engaged reports whether the flag is raised. A Redis outage reads as not
// engaged: losing the cache must not silently halt the whole system.
func (s *EmergencyStop) Engaged(ctx context.Context) bool {
	ok, err := s.redis.Exists(ctx, stopKey)
	if err != nil {
		s.logger.Warn("emergency stop flag unreadable", "error", err)
		return false
	}
	return ok
}
