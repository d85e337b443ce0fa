package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(10*time.Millisecond, time.UTC)
	var runs atomic.Int32
	require.NoError(t, s.Start(context.Background(), func(time.Time) { runs.Add(1) }))
	require.NoError(t, s.Start(context.Background(), func(time.Time) { runs.Add(100) }), "second start is ignored")

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, runs.Load())
	require.Less(t, after, int32(100))
}

func TestIntervalSchedulerReportsLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 5*3600+1800)
	s := NewIntervalScheduler(time.Hour, loc)
	got := make(chan *time.Location, 1)
	require.NoError(t, s.Start(context.Background(), func(at time.Time) { got <- at.Location() }))
	defer func() { _ = s.Stop(context.Background()) }()

	select {
	case l := <-got:
		require.Equal(t, loc, l)
	case <-time.After(time.Second):
		t.Fatalf("job did not run")
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewIntervalScheduler(time.Minute, nil).Stop(context.Background()))
}
