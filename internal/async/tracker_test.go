package async

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/failure"
)

var loadTickets = Op{Name: "tickets.fetchAll", FailMessage: "failed to load tickets"}

func TestLifecycleFulfilled(t *testing.T) {
	a := NewArea("tickets", zerolog.Nop())
	assert.Equal(t, Idle, a.State(loadTickets.Name).Status)

	got, err := Run(context.Background(), a, loadTickets, func(ctx context.Context) (int, error) {
		p := a.Projection()
		assert.True(t, p.Loading)
		assert.Empty(t, p.Error)
		assert.Equal(t, Pending, a.State(loadTickets.Name).Status)
		return 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, Projection{}, a.Projection())
	assert.Equal(t, State{Status: Fulfilled}, a.State(loadTickets.Name))
}

func TestRejectedStoresOperationMessageOnly(t *testing.T) {
	a := NewArea("tickets", zerolog.Nop())
	raw := failure.Wrap(failure.ServerFailure, "GET /tickets", errors.New("pq: connection refused"))

	_, err := Run(context.Background(), a, loadTickets, func(ctx context.Context) ([]int, error) {
		return nil, raw
	})
	require.Error(t, err)
	assert.Equal(t, failure.ServerFailure, failure.KindOf(err))

	p := a.Projection()
	assert.False(t, p.Loading)
	assert.Equal(t, "failed to load tickets", p.Error)
	assert.NotContains(t, p.Error, "pq")
	assert.Equal(t, State{Status: Rejected, Error: "failed to load tickets"}, a.State(loadTickets.Name))
}

func TestPendingClearsPreviousError(t *testing.T) {
	a := NewArea("users", zerolog.Nop())
	_ = Exec(context.Background(), a, Op{Name: "users.fetchAll", FailMessage: "failed"}, func(context.Context) error {
		return errors.New("x")
	})
	require.Equal(t, "failed", a.Projection().Error)

	_ = Exec(context.Background(), a, Op{Name: "users.fetchAll"}, func(context.Context) error {
		assert.Empty(t, a.Projection().Error)
		return nil
	})
	assert.Empty(t, a.Projection().Error)
}

func TestLoadingHeldWhileAnyOperationInFlight(t *testing.T) {
	a := NewArea("tickets", zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = Exec(context.Background(), a, Op{Name: "slow"}, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
		close(done)
	}()
	<-started
	_ = Exec(context.Background(), a, Op{Name: "fast"}, func(context.Context) error { return nil })
	assert.True(t, a.Projection().Loading)
	close(release)
	<-done
	assert.False(t, a.Projection().Loading)
}

func TestPanicBecomesRejection(t *testing.T) {
	a := NewArea("tickets", zerolog.Nop())
	err := Exec(context.Background(), a, Op{Name: "bad", FailMessage: "failed"}, func(context.Context) error {
		panic("nil map")
	})
	require.Error(t, err)
	assert.Equal(t, Rejected, a.State("bad").Status)
	assert.False(t, a.Projection().Loading)
}
