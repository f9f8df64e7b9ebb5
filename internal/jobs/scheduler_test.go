package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloser struct {
	calls     int
	olderThan time.Duration
	err       error
}

func (f *fakeCloser) AutoCloseResolved(_ context.Context, olderThan time.Duration) (int, error) {
	f.calls++
	f.olderThan = olderThan
	return 2, f.err
}

type fakeWarmer struct {
	calls int
}

func (f *fakeWarmer) Warm(context.Context) error {
	f.calls++
	return errors.New("store down")
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewScheduler(&fakeCloser{}, &fakeWarmer{}, 24*time.Hour, nil)
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	assert.Len(t, s.cron.Entries(), 2)
}

func TestSchedulerSkipsDisabledAutoClose(t *testing.T) {
	s := NewScheduler(&fakeCloser{}, nil, 0, nil)
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	assert.Empty(t, s.cron.Entries())
}

func TestRunJobs(t *testing.T) {
	closer := &fakeCloser{}
	warmer := &fakeWarmer{}
	s := NewScheduler(closer, warmer, 30*24*time.Hour, nil)

	s.RunAutoClose()
	s.RunCategoryWarm()

	assert.Equal(t, 1, closer.calls)
	assert.Equal(t, 30*24*time.Hour, closer.olderThan)
	assert.Equal(t, 1, warmer.calls)

	closer.err = errors.New("boom")
	assert.NotPanics(t, s.RunAutoClose)
}
