package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/gymcrm-sync/internal/usecase"
)

type fakeJob struct {
	runs    int32
	block   chan struct{}
	started chan struct{}
	err     error
}

func (j *fakeJob) Execute(ctx context.Context) (*usecase.SyncReport, error) {
	atomic.AddInt32(&j.runs, 1)
	if j.started != nil {
		j.started <- struct{}{}
	}
	if j.block != nil {
		<-j.block
	}
	if j.err != nil {
		return nil, j.err
	}
	return &usecase.SyncReport{Kept: 1}, nil
}

func TestRunOnceDoesNotOverlap(t *testing.T) {
	job := &fakeJob{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := NewSyncScheduler(job, time.Hour, false)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		done <- err
	}()
	<-job.started

	_, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(job.block)
	require.NoError(t, <-done)

	// depois que o primeiro termina, um novo sync pode rodar
	job.started = nil
	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, int32(2), atomic.LoadInt32(&job.runs))
}

func TestRunOncePropagatesErrors(t *testing.T) {
	job := &fakeJob{err: &usecase.TechnicalError{Code: usecase.CodeCRMUnavailable, Message: "down"}}
	_, err := NewSyncScheduler(job, time.Hour, false).RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, usecase.CodeCRMUnavailable, usecase.ErrorCode(err))
}

func TestStartTicksUntilCancelled(t *testing.T) {
	job := &fakeJob{err: errors.New("falha")}
	s := NewSyncScheduler(job, 10*time.Millisecond, true)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&job.runs) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler não parou")
	}
}

func TestStartDisabled(t *testing.T) {
	job := &fakeJob{}
	NewSyncScheduler(job, 0, true).Start(context.Background())
	assert.Equal(t, int32(0), atomic.LoadInt32(&job.runs))
}
