package breaker

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	"github.com/riturajsingh8919/anti-romantic/internal/storage"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

// Config holds configuration for the circuit breaker.
type Config struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval clears the counts while closed. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// FailureRatio of failed to total calls trips the breaker.
	FailureRatio float64

	// MinRequests is the number of calls needed before FailureRatio is
	// evaluated.
	MinRequests uint32
}

// DefaultConfig returns the breaker settings used for remote deletes.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_storage_breaker_state",
		Help: "Current state of the media storage circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Storage guards the Destroy calls of a storage.Storage with a circuit
// breaker, so a failing media service stops receiving cleanup traffic.
// Uploads pass straight through and surface their own errors.
type Storage struct {
	next    storage.Storage
	breaker *gobreaker.CircuitBreaker[bool]
}

// Wrap returns next guarded by a breaker built from cfg.
func Wrap(next storage.Storage, cfg Config, logger *slog.Logger) *Storage {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("media storage breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &Storage{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[bool](settings),
	}
}

func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	return s.next.Upload(ctx, input)
}

// Destroy forwards to the wrapped storage unless the breaker is open. A
// "not deleted" answer counts as success: the service is reachable.
func (s *Storage) Destroy(ctx context.Context, externalID string, kind domain.MediaKind) (bool, error) {
	return s.breaker.Execute(func() (bool, error) {
		return s.next.Destroy(ctx, externalID, kind)
	})
}

// State returns the current breaker state.
func (s *Storage) State() gobreaker.State {
	return s.breaker.State()
}
