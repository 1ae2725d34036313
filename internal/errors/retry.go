/**
 * Retry Logic with Exponential Backoff
 *
 * Backoff used when a connection cannot be opened. Commands themselves are
 * never replayed.
 *
 * Author: SqlProvider Team
 * Created: 2025-01-29
 */

package errors

import (
	"context"
	"math/rand"
	"time"
)

// Stop is returned by NextBackOff when no more retries should be made.
const Stop time.Duration = -1

// BackoffConfig configures the exponential backoff behavior.
type BackoffConfig struct {
	// InitialInterval is the initial retry interval
	InitialInterval time.Duration

	// MaxInterval is the maximum retry interval, zero means uncapped
	MaxInterval time.Duration

	// Multiplier is the factor by which the retry interval increases
	Multiplier float64

	// MaxElapsedTime is the maximum total time for all retries
	MaxElapsedTime time.Duration

	// RandomizationFactor adds jitter to prevent thundering herd
	RandomizationFactor float64
}

// DefaultBackoffConfig provides defaults for connection retries.
var DefaultBackoffConfig = &BackoffConfig{
	InitialInterval:     500 * time.Millisecond,
	MaxInterval:         10 * time.Second,
	Multiplier:          2.0,
	MaxElapsedTime:      2 * time.Minute,
	RandomizationFactor: 0.25,
}

// ExponentialBackoff implements exponential backoff with jitter.
type ExponentialBackoff struct {
	startTime       time.Time
	config          *BackoffConfig
	rand            *rand.Rand
	currentInterval time.Duration
	attempt         int
}

// NewExponentialBackoff creates a new exponential backoff instance.
func NewExponentialBackoff(config *BackoffConfig) *ExponentialBackoff {
	if config == nil {
		config = DefaultBackoffConfig
	}

	return &ExponentialBackoff{
		config:          config,
		currentInterval: config.InitialInterval,
		startTime:       time.Now(),
		rand:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Reset resets the backoff to initial state.
func (eb *ExponentialBackoff) Reset() {
	eb.currentInterval = eb.config.InitialInterval
	eb.startTime = time.Now()
	eb.attempt = 0
}

// NextBackOff returns the next backoff duration, or Stop.
func (eb *ExponentialBackoff) NextBackOff() time.Duration {
	if eb.config.MaxElapsedTime > 0 && time.Since(eb.startTime) >= eb.config.MaxElapsedTime {
		return Stop
	}

	interval := eb.jittered()

	multiplier := eb.config.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	eb.currentInterval = time.Duration(float64(eb.currentInterval) * multiplier)
	if eb.config.MaxInterval > 0 && eb.currentInterval > eb.config.MaxInterval {
		eb.currentInterval = eb.config.MaxInterval
	}

	eb.attempt++

	return interval
}

// Attempt returns how many intervals have been handed out.
func (eb *ExponentialBackoff) Attempt() int {
	return eb.attempt
}

func (eb *ExponentialBackoff) jittered() time.Duration {
	if eb.config.RandomizationFactor == 0 {
		return eb.currentInterval
	}

	delta := eb.config.RandomizationFactor * float64(eb.currentInterval)
	low := float64(eb.currentInterval) - delta
	high := float64(eb.currentInterval) + delta

	return time.Duration(low + eb.rand.Float64()*(high-low))
}

// RetryOperation executes an operation with exponential backoff retry.
// shouldRetry is consulted after every failure.
func RetryOperation(
	ctx context.Context,
	operation func() error,
	config *BackoffConfig,
	shouldRetry func(error) bool,
) error {

	backoff := NewExponentialBackoff(config)

	for {
		err := operation()
		if err == nil {
			return nil
		}

		if !shouldRetry(err) {
			return err
		}

		interval := backoff.NextBackOff()
		if interval == Stop {
			return err
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
