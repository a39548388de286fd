package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/risk-analyzer/internal/config"
)

var errFail = errors.New("fail")

func fail(_ context.Context) (int, error) { return 0, errFail }
func ok(_ context.Context) (int, error)   { return 1, nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(BreakerConfig{FailureThreshold: threshold, Cooldown: cooldown})
	b.now = clock.now
	return b, clock
}

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())

	v, err := Do(context.Background(), b, ok)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := Do(context.Background(), b, fail)
		assert.ErrorIs(t, err, errFail)
	}
	assert.Equal(t, Open, b.State())

	called := false
	_, err := Do(context.Background(), b, func(_ context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	_, _ = Do(context.Background(), b, fail)
	_, _ = Do(context.Background(), b, fail)
	assert.Equal(t, 2, b.Failures())

	_, err := Do(context.Background(), b, ok)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	b, clock := newTestBreaker(1, 30*time.Second)

	_, _ = Do(context.Background(), b, fail)
	assert.Equal(t, Open, b.State())

	clock.advance(31 * time.Second)
	assert.Equal(t, HalfOpen, b.State())

	_, err := Do(context.Background(), b, ok)
	require.NoError(t, err)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(2, 30*time.Second)

	_, _ = Do(context.Background(), b, fail)
	_, _ = Do(context.Background(), b, fail)
	clock.advance(time.Minute)

	_, err := Do(context.Background(), b, fail)
	assert.ErrorIs(t, err, errFail)
	assert.Equal(t, Open, b.State())

	_, err = Do(context.Background(), b, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_SingleProbe(t *testing.T) {
	b, clock := newTestBreaker(1, time.Second)
	_, _ = Do(context.Background(), b, fail)
	clock.advance(2 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = Do(context.Background(), b, func(_ context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	_, err := Do(context.Background(), b, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	close(release)
}

func TestBreaker_ShouldTrip(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       IsTransient,
	})

	_, _ = Do(context.Background(), b, fail)
	assert.Equal(t, Closed, b.State(), "permanent errors do not trip")

	_, _ = Do(context.Background(), b, func(_ context.Context) (int, error) {
		return 0, NewTransientError(errFail, 503)
	})
	assert.Equal(t, Open, b.State())
}

func TestBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_, _ = Do(context.Background(), b, fail)
	b.Reset()
	assert.Equal(t, []string{"closed->open", "open->closed"}, transitions)
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = Do(context.Background(), b, fail)
			} else {
				_, _ = Do(context.Background(), b, ok)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, Closed, b.State())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(BreakerConfig{FailureThreshold: 1})

	a := r.For("virustotal")
	assert.Same(t, a, r.For("virustotal"))
	assert.NotSame(t, a, r.For("urlhaus"))

	_, _ = Do(context.Background(), a, fail)
	assert.Equal(t, map[string]string{
		"virustotal": "open",
		"urlhaus":    "closed",
	}, r.Snapshot())
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.CircuitConfig{FailureThreshold: 3, ResetTimeoutSecs: 10})
	assert.Equal(t, 3, cfg.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.Cooldown)

	def := FromConfig(config.CircuitConfig{})
	assert.Equal(t, 5, def.FailureThreshold)
	assert.Equal(t, 60*time.Second, def.Cooldown)
	require.NotNil(t, def.ShouldTrip)
}

func TestFromConfig_PermanentErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker(FromConfig(config.CircuitConfig{FailureThreshold: 2}))

	for _, err := range []error{
		errors.New("HTTP 400: bad request"),
		errors.New("HTTP 400: bad request"),
		context.Canceled,
		context.Canceled,
	} {
		_, got := Do(context.Background(), b, func(context.Context) (int, error) { return 0, err })
		assert.ErrorIs(t, got, err)
	}
	assert.Equal(t, Closed, b.State())

	for i := 0; i < 2; i++ {
		_, _ = Do(context.Background(), b, func(context.Context) (int, error) {
			return 0, NewTransientError(errors.New("HTTP 503"), 503)
		})
	}
	assert.Equal(t, Open, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
