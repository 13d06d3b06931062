package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCron struct {
	spec    string
	cmd     func()
	err     error
	started chan struct{}
	stopped bool
}

func (c *fakeCron) AddFunc(spec string, cmd func()) error {
	c.spec = spec
	c.cmd = cmd
	return c.err
}

func (c *fakeCron) Start() {
	close(c.started)
}

func (c *fakeCron) Stop() {
	c.stopped = true
}

func TestScheduler_Run(t *testing.T) {
	c := &fakeCron{started: make(chan struct{})}
	s := NewScheduler(discardLogger(), c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	passes := make(chan struct{}, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.Run(ctx, "@daily", func(ctx context.Context) error {
			passes <- struct{}{}
			return errors.New("pass failed")
		})
	}()

	select {
	case <-c.started:
	case <-time.After(5 * time.Second):
		t.Fatal("cron was not started")
	}

	assert.Equal(t, "@daily", c.spec)

	c.cmd()

	select {
	case <-passes:
	case <-time.After(5 * time.Second):
		t.Fatal("pass was not executed")
	}

	cancel()

	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.True(t, c.stopped)
}

func TestScheduler_Dispatch_DropsBusyTicks(t *testing.T) {
	s := NewScheduler(discardLogger(), &fakeCron{})

	s.dispatch()
	s.dispatch()

	assert.Len(t, s.passes, 1)
}

func TestScheduler_Run_DropsTicksDuringPass(t *testing.T) {
	c := &fakeCron{started: make(chan struct{})}
	s := NewScheduler(discardLogger(), c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entered := make(chan struct{}, 10)
	release := make(chan struct{})

	go func() {
		_ = s.Run(ctx, "@hourly", func(ctx context.Context) error {
			entered <- struct{}{}
			<-release
			return nil
		})
	}()

	<-c.started
	c.cmd()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("pass was not executed")
	}

	// the pass is running and the queue is empty, the tick must still be dropped
	c.cmd()
	assert.Len(t, s.passes, 0)

	close(release)

	assert.Eventually(t, func() bool { return !s.busy.Load() }, 5*time.Second, 10*time.Millisecond)

	c.cmd()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("pass after completion was not executed")
	}

	assert.Len(t, entered, 0)
}

func TestScheduler_Run_InvalidSpec(t *testing.T) {
	c := &fakeCron{started: make(chan struct{}), err: errors.New("bad spec")}
	s := NewScheduler(discardLogger(), c)

	err := s.Run(context.Background(), "nonsense", func(ctx context.Context) error { return nil })

	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "nonsense")
}
