package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-analytics/models"
)

func openTestRunLog(t *testing.T) *RunLog {
	t.Helper()
	l, err := OpenRunLog(filepath.Join(t.TempDir(), "state", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRunLogNoHistory(t *testing.T) {
	l := openTestRunLog(t)

	_, err := l.NextFileDate(context.Background())

	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestRunLogLifecycle(t *testing.T) {
	l := openTestRunLog(t)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx, "r1", day("2023-08-01")))
	r, err := l.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, RunRunning, r.Status)
	assert.False(t, r.FinishedAt.Valid)

	report := &models.CleaningReport{InputRecords: 3, CleanedRecords: 2, DuplicateRecords: 1}
	require.NoError(t, l.Finish(ctx, "r1", RunSucceeded, report, nil))

	r, err = l.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, r.Status)
	assert.Equal(t, day("2023-08-01"), r.FileDate)
	assert.Equal(t, 3, r.InputRecords)
	assert.Equal(t, 2, r.CleanedRecords)
	assert.Equal(t, 1, r.DuplicateRecords)
	assert.True(t, r.FinishedAt.Valid)
	assert.Empty(t, r.Error)
}

func TestRunLogNextFileDate(t *testing.T) {
	l := openTestRunLog(t)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx, "r1", day("2023-08-01")))
	require.NoError(t, l.Finish(ctx, "r1", RunSucceeded, nil, nil))
	require.NoError(t, l.Start(ctx, "r2", day("2023-08-02")))
	require.NoError(t, l.Finish(ctx, "r2", RunDegraded, nil, errors.New("sink down")))
	require.NoError(t, l.Start(ctx, "r3", day("2023-08-03")))
	require.NoError(t, l.Finish(ctx, "r3", RunFailed, nil, errors.New("schema")))
	require.NoError(t, l.Start(ctx, "r4", day("2023-08-09")))

	next, err := l.NextFileDate(ctx)

	require.NoError(t, err)
	assert.Equal(t, day("2023-08-02"), next, "degraded, failed and unfinished runs are retried")

	r3, err := l.Get(ctx, "r3")
	require.NoError(t, err)
	assert.Equal(t, "schema", r3.Error)
}

func TestRunLogDegradedRunDoesNotAdvance(t *testing.T) {
	l := openTestRunLog(t)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx, "r1", day("2023-07-31")))
	require.NoError(t, l.Finish(ctx, "r1", RunSucceeded, nil, nil))
	require.NoError(t, l.Start(ctx, "r2", day("2023-08-01")))
	require.NoError(t, l.Finish(ctx, "r2", RunDegraded, nil, errors.New("all sinks down")))

	next, err := l.NextFileDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, day("2023-08-01"), next)

	require.NoError(t, l.Start(ctx, "r3", day("2023-08-01")))
	require.NoError(t, l.Finish(ctx, "r3", RunSucceeded, nil, nil))

	next, err = l.NextFileDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, day("2023-08-02"), next, "a successful rerun moves the checkpoint")
}

func TestRunLogOnlyDegradedHistory(t *testing.T) {
	l := openTestRunLog(t)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx, "r1", day("2023-08-01")))
	require.NoError(t, l.Finish(ctx, "r1", RunDegraded, nil, errors.New("sink down")))

	_, err := l.NextFileDate(ctx)

	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestRunLogDuplicateStart(t *testing.T) {
	l := openTestRunLog(t)
	ctx := context.Background()

	require.NoError(t, l.Start(ctx, "r1", day("2023-08-01")))
	assert.Error(t, l.Start(ctx, "r1", day("2023-08-01")))
}

func TestRunLogGetUnknown(t *testing.T) {
	l := openTestRunLog(t)

	_, err := l.Get(context.Background(), "nope")

	assert.Error(t, err)
}
