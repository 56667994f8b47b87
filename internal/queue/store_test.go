package queue_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesmith/internal/config"
	"notesmith/internal/queue"
	"notesmith/internal/services"
	"notesmith/internal/testsupport"
)

func openStores(t *testing.T) map[string]*queue.Store {
	t.Helper()
	stores := map[string]*queue.Store{
		"sqlite": testsupport.MustOpenStore(t, testsupport.NewConfig(t)),
	}
	if dsn := os.Getenv("NOTESMITH_TEST_DATABASE_URL"); dsn != "" {
		stores["postgres"] = testsupport.MustOpenStore(t, testsupport.NewConfig(t, testsupport.WithPostgres(dsn)))
	}
	return stores
}

func completedPatch(notes string) queue.Patch {
	return queue.Patch{}.
		WithMedia("media-1", "/media/media-1.m4a").
		WithTranscript("[0.00s -> 1.00s] hi").
		WithNotes(notes).
		WithStatus(queue.StatusCompleted)
}

func TestCreateAndGet(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job, err := store.Create(ctx, queue.JobInit{SourceRef: "https://example.com/a"})
			require.NoError(t, err)
			assert.NotEmpty(t, job.ID)
			assert.Equal(t, queue.StatusPending, job.Status)

			fetched, err := store.Get(ctx, job.ID)
			require.NoError(t, err)
			require.NotNil(t, fetched)
			assert.Equal(t, "https://example.com/a", fetched.SourceRef)
			assert.False(t, fetched.HasMedia())
			assert.False(t, fetched.CreatedAt.IsZero())

			missing, err := store.Get(ctx, "does-not-exist")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestCreateRejectsCompletedWithoutNotes(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Create(context.Background(), queue.JobInit{SourceRef: "https://example.com/a", Status: queue.StatusCompleted})
	require.ErrorIs(t, err, queue.ErrInvariant)
}

func TestUpdatePersistsCheckpoints(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := testsupport.NewJob(t, store, "https://example.com/b")

			updated := testsupport.MustUpdate(t, store, job.ID, queue.Patch{}.
				WithStatus(queue.StatusProcessing).
				WithMedia("m1", "/media/m1.webm").
				WithStage("transcribe"))
			assert.Equal(t, queue.StatusProcessing, updated.Status)
			assert.True(t, updated.UpdatedAt.After(job.UpdatedAt) || updated.UpdatedAt.Equal(job.UpdatedAt))

			testsupport.MustUpdate(t, store, job.ID, queue.Patch{}.WithTranscript("[0.00s -> 1.00s] hi"))
			final := testsupport.MustUpdate(t, store, job.ID, queue.Patch{}.WithNotes("<notes/>").WithStatus(queue.StatusCompleted))

			fetched, err := store.Get(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, final.Notes, fetched.Notes)
			assert.Equal(t, "m1", fetched.MediaID)
			assert.Equal(t, "transcribe", fetched.Stage)
			assert.Equal(t, queue.StatusCompleted, fetched.Status)
		})
	}
}

func TestUpdateRejectsInvariantViolations(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://example.com/c")

	cases := map[string]queue.Patch{
		"notes without transcript":    queue.Patch{}.WithNotes("<notes/>"),
		"transcript without media":    queue.Patch{}.WithTranscript("[0.00s -> 1.00s] x"),
		"completed without notes":     queue.Patch{}.WithStatus(queue.StatusCompleted),
		"failed without last error":   queue.Patch{}.WithStatus(queue.StatusFailed),
		"last error while not failed": queue.Patch{}.WithLastError("boom"),
		"unknown status":              queue.Patch{}.WithStatus(queue.Status("paused")),
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := store.Update(ctx, job.ID, patch)
			require.ErrorIs(t, err, queue.ErrInvariant)
		})
	}

	fetched, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, fetched.Status)
	assert.Empty(t, fetched.Notes)
	assert.Empty(t, fetched.LastError)
}

func TestUpdateUnknownJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Update(context.Background(), "missing", queue.Patch{}.WithStage("acquire"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNotFound))
}

func TestFailedJobCarriesLastError(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "https://example.com/d")

	failed := testsupport.MustUpdate(t, store, job.ID, queue.Patch{}.
		WithStatus(queue.StatusFailed).
		WithLastError("acquire failed after 3 attempts: boom"))
	assert.Equal(t, "acquire failed after 3 attempts: boom", failed.LastError)

	resumed := testsupport.MustUpdate(t, store, job.ID, queue.Patch{}.WithStatus(queue.StatusProcessing).ClearLastError())
	assert.Empty(t, resumed.LastError)
}

func TestEmptyStringsStoredAsAbsent(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://example.com/e")
	testsupport.MustUpdate(t, store, job.ID, queue.Patch{}.WithMedia("m", "/media/m.mp3").WithTranscript("[0.00s -> 1.00s] x"))
	testsupport.MustUpdate(t, store, job.ID, queue.Patch{}.WithTranscript(""))

	no := false
	jobs, err := store.Find(ctx, queue.Filter{SourceRef: "https://example.com/e", HasTranscript: &no})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].HasTranscript())
}

func TestFindNewestCompletedWithNotes(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ref := "https://v/1-" + name

			older := testsupport.NewJob(t, store, ref)
			testsupport.MustUpdate(t, store, older.ID, completedPatch("<notes>old</notes>"))
			time.Sleep(2 * time.Millisecond)
			newer := testsupport.NewJob(t, store, ref)
			testsupport.MustUpdate(t, store, newer.ID, completedPatch("<notes>new</notes>"))
			time.Sleep(2 * time.Millisecond)
			testsupport.NewJob(t, store, ref)
			testsupport.NewJob(t, store, "https://v/other")

			yes := true
			jobs, err := store.Find(ctx, queue.Filter{
				SourceRef: ref,
				Statuses:  []queue.Status{queue.StatusCompleted},
				HasNotes:  &yes,
				Order:     queue.OrderNewest,
				Limit:     1,
			})
			require.NoError(t, err)
			require.Len(t, jobs, 1)
			assert.Equal(t, newer.ID, jobs[0].ID)
			assert.Equal(t, "<notes>new</notes>", jobs[0].Notes)

			all, err := store.Find(ctx, queue.Filter{SourceRef: ref, Order: queue.OrderOldest})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, older.ID, all[0].ID)
		})
	}
}

func TestEnqueueDedupesQueuedTask(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://example.com/f")

	first, err := store.Enqueue(ctx, "acquire", job.ID, "")
	require.NoError(t, err)
	second, err := store.Enqueue(ctx, "transcribe", job.ID, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	tasks, err := store.TasksForJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestClaimSkipsJobWithRunningTask(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := testsupport.NewJob(t, store, "https://example.com/g")

			_, err := store.Enqueue(ctx, "acquire", job.ID, "")
			require.NoError(t, err)
			claimed, err := store.Claim(ctx)
			require.NoError(t, err)
			require.NotNil(t, claimed)
			assert.Equal(t, queue.TaskRunning, claimed.Status)
			assert.Equal(t, 1, claimed.Attempts)
			assert.NotNil(t, claimed.HeartbeatAt)

			// A second delivery for the same job waits behind the running one.
			_, err = store.Enqueue(ctx, "acquire", job.ID, "")
			require.NoError(t, err)
			none, err := store.Claim(ctx)
			require.NoError(t, err)
			assert.Nil(t, none)

			require.NoError(t, store.Complete(ctx, claimed.ID))
			next, err := store.Claim(ctx)
			require.NoError(t, err)
			require.NotNil(t, next)
			assert.NotEqual(t, claimed.ID, next.ID)
			require.NoError(t, store.Complete(ctx, next.ID))
		})
	}
}

func TestRequeueDelaysAvailability(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://example.com/h")
	_, err := store.Enqueue(ctx, "acquire", job.ID, "")
	require.NoError(t, err)

	claimed, err := store.Claim(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Requeue(ctx, claimed.ID, time.Hour, "store unavailable"))

	none, err := store.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	task, err := store.GetTask(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.TaskQueued, task.Status)
	assert.Equal(t, "store unavailable", task.LastError)
	assert.True(t, task.AvailableAt.After(time.Now().Add(30*time.Minute)))
}

func TestReclaimStaleTasks(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://example.com/i")
	_, err := store.Enqueue(ctx, "acquire", job.ID, "")
	require.NoError(t, err)
	claimed, err := store.Claim(ctx)
	require.NoError(t, err)
	require.NoError(t, store.HeartbeatTask(ctx, claimed.ID))

	count, err := store.ReclaimStaleTasks(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, count, "fresh heartbeat must not be reclaimed")

	count, err = store.ReclaimStaleTasks(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	again, err := store.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, claimed.ID, again.ID)
	assert.Equal(t, 2, again.Attempts)

	require.Error(t, store.HeartbeatTask(ctx, "missing"))
}

func TestRemoveDeletesJobAndTasks(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://example.com/j")
	task, err := store.Enqueue(ctx, "acquire", job.ID, "")
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, job.ID))
	fetched, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched)
	gone, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	err = store.Remove(ctx, job.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestHealthAndCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	pending := testsupport.NewJob(t, store, "https://example.com/k")
	done := testsupport.NewJob(t, store, "https://example.com/l")
	testsupport.MustUpdate(t, store, done.ID, completedPatch("<notes/>"))
	_, err := store.Enqueue(ctx, "acquire", pending.ID, "")
	require.NoError(t, err)

	health, err := store.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, health.Total)
	assert.Equal(t, 1, health.Pending)
	assert.Equal(t, 1, health.Completed)
	assert.Equal(t, 1, health.QueuedTasks)

	db, err := store.CheckHealth(ctx)
	require.NoError(t, err)
	assert.True(t, db.Reachable)
	assert.True(t, db.IntegrityCheck)
	assert.Empty(t, db.MissingTables)
	assert.EqualValues(t, 1, db.SchemaVersion)
	assert.Equal(t, 2, db.TotalJobs)
	assert.Equal(t, cfg.DatabasePath(), db.Location)
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	require.NoError(t, err)
	job, err := store.Create(context.Background(), queue.JobInit{SourceRef: "https://example.com/m"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := testsupport.MustOpenStore(t, cfg)
	fetched, err := reopened.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store = config.Store{Driver: "mysql"}
	_, err := queue.Open(cfg)
	require.Error(t, err)
}
