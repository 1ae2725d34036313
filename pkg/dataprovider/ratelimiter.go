package dataprovider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/VatsalSy/SqlProvider/internal/errors"
)

/**
 * Token Bucket Command Limiter
 *
 * Features:
 * - Caps the rate of commands sent to the database
 * - Burst capacity handling
 * - Context-aware blocking
 * - Metrics collection
 *
 * Author: SqlProvider Team
 * Updated: 2025-02-11
 */

// CommandLimiter limits how fast sessions send commands.
type CommandLimiter struct {
	lastResetTime   time.Time
	limiter         *rate.Limiter
	totalCommands   atomic.Int64
	blockedCommands atomic.Int64
	mu              sync.RWMutex
}

// NewCommandLimiter allows commandsPerSecond commands with the given burst.
func NewCommandLimiter(commandsPerSecond float64, burst int) *CommandLimiter {
	if burst < 1 {
		burst = 1
	}

	return &CommandLimiter{
		limiter:       rate.NewLimiter(rate.Limit(commandsPerSecond), burst),
		lastResetTime: time.Now(),
	}
}

// Wait blocks until a command can proceed.
func (cl *CommandLimiter) Wait(ctx context.Context) error {
	cl.totalCommands.Add(1)

	// Try to reserve immediately
	if cl.limiter.Allow() {
		return nil
	}

	cl.blockedCommands.Add(1)

	reservation := cl.limiter.Reserve()
	if !reservation.OK() {
		return errors.New(errors.ErrorTypeCommandFailed, "rate_limit_reservation_failed", "command limiter reservation failed", nil)
	}

	delay := reservation.Delay()
	if delay == 0 {
		return nil
	}

	// Create timer to prevent leak
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return errors.New(errors.ErrorTypeContext, "rate_limit_wait", "command limiter wait canceled", ctx.Err())
	}
}

// TryAcquire takes a token without blocking.
func (cl *CommandLimiter) TryAcquire() bool {
	cl.totalCommands.Add(1)
	return cl.limiter.Allow()
}

// SetRate updates the limit dynamically.
func (cl *CommandLimiter) SetRate(commandsPerSecond float64) {
	cl.limiter.SetLimit(rate.Limit(commandsPerSecond))
}

// SetBurst updates the burst size dynamically.
func (cl *CommandLimiter) SetBurst(burst int) {
	if burst < 1 {
		burst = 1
	}
	cl.limiter.SetBurst(burst)
}

// LimiterMetrics contains limiter statistics.
type LimiterMetrics struct {
	TotalCommands     int64
	BlockedCommands   int64
	CommandsPerSecond float64
	BlockRate         float64
	Duration          time.Duration
}

// Metrics returns current limiter metrics.
func (cl *CommandLimiter) Metrics() LimiterMetrics {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	duration := time.Since(cl.lastResetTime)
	total := cl.totalCommands.Load()
	blocked := cl.blockedCommands.Load()

	var blockRate float64
	if total > 0 {
		blockRate = float64(blocked) / float64(total) * 100
	}

	return LimiterMetrics{
		TotalCommands:     total,
		BlockedCommands:   blocked,
		CommandsPerSecond: float64(total) / duration.Seconds(),
		BlockRate:         blockRate,
		Duration:          duration,
	}
}

// ResetMetrics resets the counters.
func (cl *CommandLimiter) ResetMetrics() {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.totalCommands.Store(0)
	cl.blockedCommands.Store(0)
	cl.lastResetTime = time.Now()
}
