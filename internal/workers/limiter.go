package workers

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"multascan/internal/config"
	"multascan/internal/logging"
)

// SourceLimiter represents rate limiting state for a single source
type SourceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	requests int64
	failures int64
	mu       sync.RWMutex
}

// CircuitBreaker represents a circuit breaker for a source
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	failureCount int
	lastFailTime time.Time
	state        CircuitState
	mu           sync.RWMutex
}

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// RateLimiter manages rate limiting and circuit breaking per source.
// Government portals throttle and ban aggressively, so the limiter errs on
// the side of backing off.
type RateLimiter struct {
	config          *config.Config
	sourceLimiters  map[string]*SourceLimiter
	circuitBreakers map[string]*CircuitBreaker
	mu              sync.RWMutex
	logger          logging.Logger
	cleanupTicker   *time.Ticker
	stopCleanup     chan bool
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(cfg *config.Config) *RateLimiter {
	rl := &RateLimiter{
		config:          cfg,
		sourceLimiters:  make(map[string]*SourceLimiter),
		circuitBreakers: make(map[string]*CircuitBreaker),
		logger:          logging.GetGlobalLogger().WithField("component", "rate_limiter"),
		cleanupTicker:   time.NewTicker(5 * time.Minute),
		stopCleanup:     make(chan bool),
	}

	go rl.cleanupRoutine()

	return rl
}

// Allow checks if a lookup against the given source is allowed
func (rl *RateLimiter) Allow(sourceID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	sourceID = strings.ToLower(sourceID)

	if !rl.isCircuitClosed(sourceID) {
		rl.logger.Debug("Lookup rejected by circuit breaker", map[string]interface{}{
			"source": sourceID,
		})
		return false
	}

	limiter := rl.getSourceLimiter(sourceID)

	allowed := limiter.limiter.Allow()
	if allowed {
		limiter.mu.Lock()
		limiter.requests++
		limiter.lastSeen = time.Now()
		limiter.mu.Unlock()
	} else {
		rl.logger.Debug("Lookup rejected by rate limiter", map[string]interface{}{
			"source": sourceID,
		})
	}

	return allowed
}

// RecordSuccess records a successful lookup for the source
func (rl *RateLimiter) RecordSuccess(sourceID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	sourceID = strings.ToLower(sourceID)

	if cb, exists := rl.circuitBreakers[sourceID]; exists {
		cb.mu.Lock()
		if cb.state == CircuitHalfOpen {
			cb.state = CircuitClosed
			cb.failureCount = 0
			rl.logger.Info("Circuit breaker closed after successful lookup", map[string]interface{}{
				"source": sourceID,
			})
		}
		cb.mu.Unlock()
	}
}

// RecordFailure records a failed lookup for the source
func (rl *RateLimiter) RecordFailure(sourceID string, err error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	sourceID = strings.ToLower(sourceID)

	if limiter, exists := rl.sourceLimiters[sourceID]; exists {
		limiter.mu.Lock()
		limiter.failures++
		limiter.mu.Unlock()
	}

	cb := rl.getCircuitBreaker(sourceID)
	cb.mu.Lock()
	cb.failureCount++
	cb.lastFailTime = time.Now()

	switch {
	case cb.state == CircuitHalfOpen:
		// A failed probe re-opens immediately; the portal is still down
		cb.state = CircuitOpen
		rl.logger.Warn("Circuit breaker re-opened after failed probe", map[string]interface{}{
			"source": sourceID,
			"error":  err.Error(),
		})
	case cb.failureCount >= cb.maxFailures && cb.state == CircuitClosed:
		cb.state = CircuitOpen
		rl.logger.Warn("Circuit breaker opened due to failures", map[string]interface{}{
			"source":   sourceID,
			"failures": cb.failureCount,
			"error":    err.Error(),
		})
	}
	cb.mu.Unlock()
}

// getSourceLimiter gets or creates a rate limiter for a source
func (rl *RateLimiter) getSourceLimiter(sourceID string) *SourceLimiter {
	if limiter, exists := rl.sourceLimiters[sourceID]; exists {
		return limiter
	}

	// Rate limit is configured in lookups per minute
	rps := rate.Limit(float64(rl.config.Workers.RateLimit) / 60.0)
	burst := 5

	limiter := &SourceLimiter{
		limiter:  rate.NewLimiter(rps, burst),
		lastSeen: time.Now(),
	}

	rl.sourceLimiters[sourceID] = limiter

	rl.logger.Info("Created new source rate limiter", map[string]interface{}{
		"source": sourceID,
		"rate":   float64(rps),
		"burst":  burst,
	})

	return limiter
}

// getCircuitBreaker gets or creates a circuit breaker for a source
func (rl *RateLimiter) getCircuitBreaker(sourceID string) *CircuitBreaker {
	if cb, exists := rl.circuitBreakers[sourceID]; exists {
		return cb
	}

	cb := &CircuitBreaker{
		maxFailures:  5,
		resetTimeout: 30 * time.Second,
		state:        CircuitClosed,
	}

	rl.circuitBreakers[sourceID] = cb

	return cb
}

// isCircuitClosed checks if the circuit breaker allows lookups
func (rl *RateLimiter) isCircuitClosed(sourceID string) bool {
	cb := rl.getCircuitBreaker(sourceID)

	cb.mu.RLock()
	defer cb.mu.RUnlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailTime) > cb.resetTimeout {
			cb.mu.RUnlock()
			cb.mu.Lock()
			if cb.state == CircuitOpen && time.Since(cb.lastFailTime) > cb.resetTimeout {
				cb.state = CircuitHalfOpen
				rl.logger.Info("Circuit breaker transitioned to half-open", map[string]interface{}{
					"source": sourceID,
				})
			}
			cb.mu.Unlock()
			cb.mu.RLock()
			return cb.state == CircuitHalfOpen
		}
		return false
	case CircuitHalfOpen:
		return true
	default:
		return false
	}
}

// GetSourceStats returns statistics for a specific source
func (rl *RateLimiter) GetSourceStats(sourceID string) map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	sourceID = strings.ToLower(sourceID)
	stats := make(map[string]interface{})

	if limiter, exists := rl.sourceLimiters[sourceID]; exists {
		limiter.mu.RLock()
		stats["requests"] = limiter.requests
		stats["failures"] = limiter.failures
		stats["last_seen"] = limiter.lastSeen
		stats["limit"] = limiter.limiter.Limit()
		stats["burst"] = limiter.limiter.Burst()
		limiter.mu.RUnlock()
	}

	if cb, exists := rl.circuitBreakers[sourceID]; exists {
		cb.mu.RLock()
		stats["circuit_state"] = cb.state.String()
		stats["failure_count"] = cb.failureCount
		stats["max_failures"] = cb.maxFailures
		stats["last_fail_time"] = cb.lastFailTime
		cb.mu.RUnlock()
	}

	return stats
}

// GetAllStats returns statistics for all sources
func (rl *RateLimiter) GetAllStats() map[string]map[string]interface{} {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	allStats := make(map[string]map[string]interface{})

	sourceIDs := make(map[string]bool)
	for id := range rl.sourceLimiters {
		sourceIDs[id] = true
	}
	for id := range rl.circuitBreakers {
		sourceIDs[id] = true
	}

	for id := range sourceIDs {
		allStats[id] = rl.GetSourceStats(id)
	}

	return allStats
}

// cleanupRoutine periodically cleans up old unused limiters
func (rl *RateLimiter) cleanupRoutine() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			rl.cleanupTicker.Stop()
			return
		}
	}
}

// cleanup removes old unused limiters and circuit breakers
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	removedCount := 0

	for id, limiter := range rl.sourceLimiters {
		limiter.mu.RLock()
		lastSeen := limiter.lastSeen
		limiter.mu.RUnlock()

		if lastSeen.Before(cutoff) {
			delete(rl.sourceLimiters, id)
			removedCount++
		}
	}

	for id, cb := range rl.circuitBreakers {
		cb.mu.RLock()
		lastFailTime := cb.lastFailTime
		state := cb.state
		cb.mu.RUnlock()

		if state == CircuitClosed && lastFailTime.Before(cutoff) {
			delete(rl.circuitBreakers, id)
		}
	}

	if removedCount > 0 {
		rl.logger.Info("Cleaned up unused rate limiters", map[string]interface{}{
			"removed_count": removedCount,
		})
	}
}

// Stop stops the rate limiter and cleanup routine
func (rl *RateLimiter) Stop() {
	rl.stopCleanup <- true
}

// String returns string representation of CircuitState
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
