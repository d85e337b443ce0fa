package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

type countingTicker struct {
	ticks int
	err   error
}

func (c *countingTicker) Tick(context.Context) (TickReport, error) {
	c.ticks++
	return TickReport{Evaluated: 1}, c.err
}

func TestSchedulerRunsHookThenTick(t *testing.T) {
	t.Parallel()

	driver := &manualDriver{}
	ticker := &countingTicker{}
	var order []string
	hook := func(context.Context) error {
		order = append(order, "hook")
		return errors.New("signals unavailable")
	}

	s := NewScheduler(driver, ticker, hook, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Now())
	ticker.err = errors.New("store down")
	driver.job(time.Now())

	require.Equal(t, 2, ticker.ticks, "a failing hook or tick does not stop later ticks")
	require.Equal(t, []string{"hook", "hook"}, order)

	require.NoError(t, s.Stop(context.Background()))
	require.True(t, driver.stopped)
}

func TestSchedulerWithoutDriverIsNoop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, &countingTicker{}, nil, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
