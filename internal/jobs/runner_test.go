package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/jobs"
	"github.com/tarslinks/linkhive/internal/models"
)

func newTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func TestRunnerCompletesSequentiallyInOrder(t *testing.T) {
	r := jobs.NewRunner(newTestLogger())

	var mu sync.Mutex
	var seen []string

	done := make(chan struct{})
	err := r.Start(context.Background(), models.JobKindCrawl, []string{"a", "b", "c"}, func(_ context.Context, item string) jobs.ItemResult {
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
		if item == "c" {
			close(done)
		}
		return jobs.ItemResult{}
	}, nil)
	require.NoError(t, err)

	waitFor(t, func() bool {
		return r.Status(models.JobKindCrawl).State == models.JobCompleted
	})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"a", "b", "c"}, seen)

	status := r.Status(models.JobKindCrawl)
	require.Equal(t, 3, status.Total)
	require.Equal(t, 3, status.Completed)
	require.Equal(t, 3, status.Success)
	require.Equal(t, 0, status.Errors)
	require.NotNil(t, status.StartedAt)
	require.NotNil(t, status.FinishedAt)
}

func TestRunnerAbsorbsPerItemErrors(t *testing.T) {
	r := jobs.NewRunner(newTestLogger())

	err := r.Start(context.Background(), models.JobKindEmbed, []string{"1", "2", "3"}, func(_ context.Context, item string) jobs.ItemResult {
		if item == "2" {
			return jobs.ItemResult{Err: errors.New("embed failed")}
		}
		return jobs.ItemResult{}
	}, nil)
	require.NoError(t, err)

	waitFor(t, func() bool {
		return r.Status(models.JobKindEmbed).State == models.JobCompleted
	})

	status := r.Status(models.JobKindEmbed)
	require.Equal(t, 3, status.Completed)
	require.Equal(t, 2, status.Success)
	require.Equal(t, 1, status.Errors)
	require.Equal(t, models.JobCompleted, status.State)
}

func TestRunnerRejectsConcurrentStartOfSameKind(t *testing.T) {
	r := jobs.NewRunner(newTestLogger())

	release := make(chan struct{})
	started := make(chan struct{})

	err := r.Start(context.Background(), models.JobKindCrawl, []string{"a"}, func(_ context.Context, _ string) jobs.ItemResult {
		close(started)
		<-release
		return jobs.ItemResult{}
	}, nil)
	require.NoError(t, err)

	<-started

	err = r.Start(context.Background(), models.JobKindCrawl, []string{"b"}, func(_ context.Context, _ string) jobs.ItemResult {
		return jobs.ItemResult{}
	}, nil)
	require.Error(t, err)
	require.Equal(t, models.KindBusy, models.KindOf(err))

	close(release)

	waitFor(t, func() bool {
		return r.Status(models.JobKindCrawl).State == models.JobCompleted
	})
}

func TestRunnerTracksKindsIndependently(t *testing.T) {
	r := jobs.NewRunner(newTestLogger())

	release := make(chan struct{})
	err := r.Start(context.Background(), models.JobKindCrawl, []string{"a"}, func(_ context.Context, _ string) jobs.ItemResult {
		<-release
		return jobs.ItemResult{}
	}, nil)
	require.NoError(t, err)

	err = r.Start(context.Background(), models.JobKindEmbed, []string{"x", "y"}, func(_ context.Context, _ string) jobs.ItemResult {
		return jobs.ItemResult{}
	}, nil)
	require.NoError(t, err)

	waitFor(t, func() bool {
		return r.Status(models.JobKindEmbed).State == models.JobCompleted
	})
	require.Equal(t, models.JobRunning, r.Status(models.JobKindCrawl).State)

	close(release)
	waitFor(t, func() bool {
		return r.Status(models.JobKindCrawl).State == models.JobCompleted
	})
}

func TestRunnerIdleBeforeFirstStart(t *testing.T) {
	r := jobs.NewRunner(newTestLogger())
	status := r.Status(models.JobKindCrawl)
	require.Equal(t, models.JobIdle, status.State)
	require.Nil(t, status.StartedAt)
	require.Nil(t, status.FinishedAt)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
