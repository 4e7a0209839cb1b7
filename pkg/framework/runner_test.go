package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerAggregatesErrors(t *testing.T) {
	boom := errors.New("boom")
	err := NewRunner().
		Go(RunnableFunc(func(context.Context) error { return nil })).
		Go(NamedRun("failing", RunnableFunc(func(context.Context) error { return boom }))).
		Wait()
	require.Error(t, err)
	var errs *AggregatedError
	require.ErrorAs(t, err, &errs)
	require.Equal(t, []error{boom}, errs.Errors)
}

func TestRunnerIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunnerWith(ctx).
		Go(RunnableFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return context.Canceled
		}))
	cancel()
	require.NoError(t, runner.Wait())
}

type closeFlag struct{ closed bool }

func (c *closeFlag) Close() error {
	c.closed = true
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	var c closeFlag
	err := RunWithContextCloser(context.Background(), &c, func() error { return nil })
	require.NoError(t, err)
	require.True(t, c.closed)
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	unblock := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RunWithContextCancel(ctx,
		func() { close(unblock) },
		func() error {
			<-unblock
			return nil
		})
	require.Equal(t, context.Canceled, err)
}
