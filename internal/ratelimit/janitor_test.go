package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_RunOnce(t *testing.T) {
	t.Parallel()

	l := NewSlidingWindowLimiter(5, time.Minute)
	l.AllowAt("old", time.Now().Add(-2*time.Minute))

	cacheSwept := 0
	j := NewJanitor("", nil,
		Task{Name: "ratelimit", Run: l.SweepNow},
		Task{Name: "cache", Run: func() int { cacheSwept++; return 3 }},
	)

	j.RunOnce()

	assert.Equal(t, 0, l.Tracked())
	assert.Equal(t, 1, cacheSwept)
	assert.Equal(t, DefaultCleanupSchedule, j.schedule)
}

func TestJanitor_StartStop(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	j := NewJanitor("@every 1s", nil, Task{Name: "probe", Run: func() int {
		select {
		case ran <- struct{}{}:
		default:
		}
		return 0
	}})

	require.NoError(t, j.Start())
	require.NoError(t, j.Start(), "second start is a no-op")

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("janitor did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.Stop(ctx)
	j.Stop(ctx)
}

func TestJanitor_InvalidSchedule(t *testing.T) {
	t.Parallel()

	j := NewJanitor("every so often", nil)
	assert.Error(t, j.Start())
}
