// Package async tracks the lifecycle of server round-trips per domain area.
package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"helpdesk/internal/failure"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_client_operations_total",
			Help: "Tracked client operations by area, operation and outcome.",
		},
		[]string{"area", "op", "outcome"},
	)
	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helpdesk_client_operation_duration_seconds",
			Help:    "Duration of tracked client operations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"area", "op"},
	)
)

type Status int

const (
	Idle Status = iota
	Pending
	Fulfilled
	Rejected
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is the tagged state of one operation. Error is set only when Rejected.
type State struct {
	Status Status
	Error  string
}

// Projection is what list/detail screens read for spinners and banners.
type Projection struct {
	Loading bool
	Error   string
}

// Op names a tracked operation and the message stored when it is rejected.
type Op struct {
	Name        string
	FailMessage string
}

// Area is the shared {loading, error} projection of one domain (tickets, users).
type Area struct {
	name string
	log  zerolog.Logger

	mu       sync.Mutex
	inflight int
	err      string
	ops      map[string]State
}

func NewArea(name string, log zerolog.Logger) *Area {
	return &Area{
		name: name,
		log:  log.With().Str("area", name).Logger(),
		ops:  make(map[string]State),
	}
}

func (a *Area) Name() string { return a.name }

func (a *Area) Projection() Projection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Projection{Loading: a.inflight > 0, Error: a.err}
}

// State returns the last recorded state of op; Idle if it never ran.
func (a *Area) State(op string) State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ops[op]
}

func (a *Area) ClearError() {
	a.mu.Lock()
	a.err = ""
	a.mu.Unlock()
}

func (a *Area) begin(op Op) {
	a.mu.Lock()
	a.inflight++
	a.err = ""
	a.ops[op.Name] = State{Status: Pending}
	a.mu.Unlock()
}

func (a *Area) settle(op Op, err error, took time.Duration) {
	operationDuration.WithLabelValues(a.name, op.Name).Observe(took.Seconds())

	a.mu.Lock()
	if a.inflight > 0 {
		a.inflight--
	}
	switch {
	case err == nil:
		a.ops[op.Name] = State{Status: Fulfilled}
	default:
		msg := op.FailMessage
		if msg == "" {
			msg = "unknown error"
		}
		a.err = msg
		a.ops[op.Name] = State{Status: Rejected, Error: msg}
	}
	a.mu.Unlock()

	if err != nil {
		operationsTotal.WithLabelValues(a.name, op.Name, Rejected.String()).Inc()
		a.log.Warn().Err(err).Str("op", op.Name).Str("kind", failure.KindOf(err).String()).Msg("operation rejected")
		return
	}
	operationsTotal.WithLabelValues(a.name, op.Name, Fulfilled.String()).Inc()
	a.log.Debug().Str("op", op.Name).Dur("took", took).Msg("operation fulfilled")
}

// Run executes fn under op's lifecycle. The returned error keeps its failure
// kind so callers can branch on it; the area only stores op.FailMessage.
func Run[T any](ctx context.Context, a *Area, op Op, fn func(context.Context) (T, error)) (v T, err error) {
	a.begin(op)
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			v = zero
			err = failure.Wrap(failure.Unknown, op.Name, fmt.Errorf("panic: %v", rec))
		}
		a.settle(op, err, time.Since(start))
	}()

	v, err = fn(ctx)
	if err != nil {
		var zero T
		return zero, failure.WithOp(op.Name, err)
	}
	return v, nil
}

// Exec is Run for operations without a result.
func Exec(ctx context.Context, a *Area, op Op, fn func(context.Context) error) error {
	_, err := Run(ctx, a, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
