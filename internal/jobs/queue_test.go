package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okExec(_ context.Context, job *TranslationJob) (Result, error) {
	return Result{OutputFiles: []string{job.Payload.InputPath + ".out"}}, nil
}

func TestQueue_Enqueue_DeduplicatesSameKey(t *testing.T) {
	q := NewQueue(2)

	jobA, createdA := q.Enqueue(EnqueueRequest{
		Source:    "api",
		DedupeKey: "/inbox/a.srt|1700000000",
	})
	jobB, createdB := q.Enqueue(EnqueueRequest{
		Source:    "inbox",
		DedupeKey: "/inbox/a.srt|1700000000",
	})

	require.True(t, createdA)
	require.False(t, createdB)
	require.NotNil(t, jobA)
	require.NotNil(t, jobB)
	assert.Equal(t, jobA.ID, jobB.ID)

	_, err := uuid.Parse(jobA.ID)
	assert.NoError(t, err)
}

func TestQueue_Enqueue_AllowsRetryAfterFailure(t *testing.T) {
	q := NewQueue(1)

	var attempts int
	q.Start(func(_ context.Context, _ *TranslationJob) (Result, error) {
		attempts++
		if attempts == 1 {
			return Result{}, assert.AnError
		}
		return Result{}, nil
	})
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{
		Source:    "inbox",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, first)

	require.Eventually(t, func() bool {
		got, ok := q.Get(first.ID)
		return ok && got != nil && got.Status == StatusFailed
	}, time.Second, 10*time.Millisecond)

	got, _ := q.Get(first.ID)
	assert.Equal(t, assert.AnError.Error(), got.Error)

	second, created := q.Enqueue(EnqueueRequest{
		Source:    "inbox",
		DedupeKey: "retry-key",
	})
	require.True(t, created)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	require.Eventually(t, func() bool {
		got, ok := q.Get(second.ID)
		return ok && got != nil && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_Enqueue_AllowsRetryAfterSuccess(t *testing.T) {
	q := NewQueue(1)
	q.Start(okExec)
	defer q.Stop()

	first, created := q.Enqueue(EnqueueRequest{
		Source:    "inbox",
		DedupeKey: "done-key",
	})
	require.True(t, created)
	require.NotNil(t, first)

	require.Eventually(t, func() bool {
		got, ok := q.Get(first.ID)
		return ok && got != nil && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)

	second, created := q.Enqueue(EnqueueRequest{
		Source:    "inbox",
		DedupeKey: "done-key",
	})
	require.True(t, created)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestQueue_PendingJobsRunAfterStart(t *testing.T) {
	q := NewQueue(1)

	job, _ := q.Enqueue(EnqueueRequest{
		Source:  "inbox",
		Payload: JobPayload{InputPath: "/inbox/b.vtt", TargetLanguages: []string{"de"}},
	})
	got, _ := q.Get(job.ID)
	assert.Equal(t, StatusPending, got.Status)

	q.Start(okExec)
	defer q.Stop()

	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusSuccess
	}, time.Second, 10*time.Millisecond)

	got, _ = q.Get(job.ID)
	assert.Equal(t, []string{"/inbox/b.vtt.out"}, got.OutputFiles)
}

func TestQueue_SkippedResult(t *testing.T) {
	q := NewQueue(1)
	q.Start(func(context.Context, *TranslationJob) (Result, error) {
		return Result{Skipped: true}, nil
	})
	defer q.Stop()

	job, _ := q.Enqueue(EnqueueRequest{Source: "inbox", DedupeKey: "skip"})
	require.Eventually(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusSkipped
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, q.Counts()[StatusSkipped])
}

func TestQueue_PrunesOldestTerminalJobs(t *testing.T) {
	q := NewQueue(1, WithMaxJobs(2))
	q.Start(okExec)
	defer q.Stop()

	var ids []string
	for i := 0; i < 3; i++ {
		job, _ := q.Enqueue(EnqueueRequest{Source: "inbox"})
		ids = append(ids, job.ID)
		require.Eventually(t, func() bool {
			got, ok := q.Get(job.ID)
			return ok && got.Status == StatusSuccess
		}, time.Second, 10*time.Millisecond)
	}

	_, ok := q.Get(ids[0])
	assert.False(t, ok)
	assert.Len(t, q.List(), 2)
}

func TestQueue_ListIsNewestFirst(t *testing.T) {
	q := NewQueue(1)

	first, _ := q.Enqueue(EnqueueRequest{Source: "inbox", DedupeKey: "a"})
	time.Sleep(2 * time.Millisecond)
	second, _ := q.Enqueue(EnqueueRequest{Source: "inbox", DedupeKey: "b"})

	list := q.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}
