package archive

import (
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreaker guards calls to a flaky backend
type CircuitBreaker interface {
	Execute(fn func() error) error
}

type noopBreaker struct{}

func (noopBreaker) Execute(fn func() error) error {
	return fn()
}

// NoopBreaker always calls through
func NoopBreaker() CircuitBreaker {
	return noopBreaker{}
}

type gobreakerWrapper struct {
	cb *gobreaker.CircuitBreaker
}

func (g *gobreakerWrapper) Execute(fn func() error) error {
	_, err := g.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// BreakerConfig tunes the metrics circuit breaker
type BreakerConfig struct {
	Name             string
	MinRequests      uint32
	FailureThreshold uint32
	Interval         time.Duration
	RecoveryTime     time.Duration
}

// DefaultBreakerConfig trips after five failures out of at least five calls
// in a minute and probes again after thirty seconds
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "metrics",
		MinRequests:      5,
		FailureThreshold: 5,
		Interval:         time.Minute,
		RecoveryTime:     30 * time.Second,
	}
}

// NewBreaker builds a gobreaker backed CircuitBreaker
func NewBreaker(cfg BreakerConfig) CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.RecoveryTime,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return counts.TotalFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}
	return &gobreakerWrapper{cb: gobreaker.NewCircuitBreaker(settings)}
}
